package ledger

import (
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Amount is an optional monetary amount. The zero value is None.
type Amount struct {
	value decimal.Decimal
	set   bool
}

// Some returns an amount holding d.
func Some(d decimal.Decimal) Amount {
	return Amount{value: d, set: true}
}

// None returns an unset amount.
func None() Amount {
	return Amount{}
}

// IsSet reports whether the amount holds a value.
func (a Amount) IsSet() bool {
	return a.set
}

// Value returns the held amount, or zero for None.
func (a Amount) Value() decimal.Decimal {
	if !a.set {
		return decimal.Zero
	}
	return a.value
}

// Equal reports whether both amounts are unset, or both set to equal values.
func (a Amount) Equal(b Amount) bool {
	if a.set != b.set {
		return false
	}
	return !a.set || a.value.Equal(b.value)
}

// String formats a set amount with two decimals and an unset one as "none".
func (a Amount) String() string {
	if !a.set {
		return "none"
	}
	return a.value.StringFixed(2)
}

// MarshalJSON encodes None as null and a set amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.value.String())
}

// UnmarshalJSON accepts null, a JSON number or a decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = None()
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return errors.Wrap(err, "decode amount")
	}
	*a = Some(d)
	return nil
}

// ParseAmount reads operator-entered numeric text. Thousands separators and
// surrounding space are ignored; text that is not a number reads as zero.
func ParseAmount(text string) decimal.Decimal {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}
