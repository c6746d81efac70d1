package order

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DraftLine is a line as submitted by a client. Values are kept textual so
// that numbers sent as strings are accepted.
type DraftLine struct {
	ProductID string
	Quantity  string
	UnitPrice string
}

// LineInput is a validated creation line.
type LineInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
}

// NormalizeLines keeps the lines whose product id is a positive integer,
// quantity a positive whole number and unit price a positive amount.
func NormalizeLines(raw []DraftLine) []LineInput {
	return lo.FilterMap(raw, func(d DraftLine, _ int) (LineInput, bool) {
		productID, ok := positiveInt(d.ProductID)
		if !ok {
			return LineInput{}, false
		}
		quantity, ok := positiveInt(d.Quantity)
		if !ok {
			return LineInput{}, false
		}
		price, err := decimal.NewFromString(strings.TrimSpace(d.UnitPrice))
		if err != nil || !price.IsPositive() {
			return LineInput{}, false
		}
		return LineInput{ProductID: productID, Quantity: quantity, UnitPrice: price}, true
	})
}

func positiveInt(raw string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return 0, false
	}
	return d.IntPart(), true
}
