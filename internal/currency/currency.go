package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrInvalidRate is returned when an exchange rate is zero or negative.
var ErrInvalidRate = errors.New("exchange rate must be positive")

// Currency identifies one side of a currency pair.
type Currency struct {
	Code   string
	Symbol string
}

// Matches reports whether tag names this currency by symbol or ISO code.
func (c Currency) Matches(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	return tag == c.Symbol || strings.EqualFold(tag, c.Code)
}

// Pair couples the invoice base currency with the secondary currency shown on documents.
type Pair struct {
	Base    Currency
	Foreign Currency
}

// NewPair validates ISO codes and fills empty symbols with the code.
func NewPair(baseCode, baseSymbol, foreignCode, foreignSymbol string) (Pair, error) {
	base, err := newCurrency(baseCode, baseSymbol)
	if err != nil {
		return Pair{}, err
	}
	foreign, err := newCurrency(foreignCode, foreignSymbol)
	if err != nil {
		return Pair{}, err
	}
	if base.Code == foreign.Code {
		return Pair{}, fmt.Errorf("currency pair needs two distinct currencies, got %s twice", base.Code)
	}
	return Pair{Base: base, Foreign: foreign}, nil
}

func newCurrency(code, symbol string) (Currency, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Currency{}, fmt.Errorf("parse currency %q: %w", code, err)
	}
	if symbol == "" {
		symbol = unit.String()
	}
	return Currency{Code: unit.String(), Symbol: symbol}, nil
}

// Converter translates amounts between the pair's currencies at a fixed rate.
// The rate is expressed as base units per one foreign unit.
type Converter struct {
	rate decimal.Decimal
	pair Pair
}

// NewConverter returns a Converter or ErrInvalidRate when rate <= 0.
func NewConverter(rate decimal.Decimal, pair Pair) (Converter, error) {
	if !rate.IsPositive() {
		return Converter{}, fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}
	return Converter{rate: rate, pair: pair}, nil
}

// Rate returns the exchange rate in force.
func (c Converter) Rate() decimal.Decimal { return c.rate }

// Pair returns the currency pair.
func (c Converter) Pair() Pair { return c.pair }

// IsForeign reports whether tag denotes the foreign currency.
func (c Converter) IsForeign(tag string) bool {
	return c.pair.Foreign.Matches(tag)
}

// ToBase converts amount tagged with tag into the base currency.
// Unknown and empty tags are treated as base.
func (c Converter) ToBase(amount decimal.Decimal, tag string) decimal.Decimal {
	if c.IsForeign(tag) {
		return amount.Mul(c.rate)
	}
	return amount
}

// ToForeign converts a base amount into the foreign currency.
func (c Converter) ToForeign(base decimal.Decimal) decimal.Decimal {
	return base.Div(c.rate)
}

// LineTotal returns quantity x unit price in base currency.
func (c Converter) LineTotal(quantity int64, unitPrice decimal.Decimal, tag string) decimal.Decimal {
	return c.ToBase(unitPrice, tag).Mul(decimal.NewFromInt(quantity))
}

// ParseAmount reads a stored or user supplied amount, yielding zero for blank or malformed input.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders amount with two decimals prefixed by symbol, e.g. C$203.00.
func Format(amount decimal.Decimal, symbol string) string {
	return symbol + amount.StringFixed(2)
}
