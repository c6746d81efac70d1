package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number accepts a JSON number or a numeric string and keeps its text.
// Clients submit form values either way.
type Number string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected number or numeric string: %w", err)
	}
	*n = Number(num.String())
	return nil
}

// String returns the raw text.
func (n Number) String() string { return string(n) }

// Int64 parses n as a whole number, returning 0 when it is not one.
func (n Number) Int64() int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// IsBlank reports whether no value was submitted.
func (n Number) IsBlank() bool {
	return strings.TrimSpace(string(n)) == ""
}

// Whole parses n as an integral value, accepting forms such as "5.0".
// ok is false when n is blank, fractional or not a number.
func (n Number) Whole() (v int64, ok bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(string(n)))
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return d.IntPart(), true
}
