package currency

import "github.com/shopspring/decimal"

// Amount is a stored money column. Scanning never fails: NULL, blank or
// malformed values read as zero so documents still render over dirty rows.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		a.Decimal = decimal.Zero
	case string:
		a.Decimal = ParseAmount(v)
	case []byte:
		a.Decimal = ParseAmount(string(v))
	default:
		if err := a.Decimal.Scan(v); err != nil {
			a.Decimal = decimal.Zero
		}
	}
	return nil
}
