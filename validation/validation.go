// Package validation collects field-level violations keyed by field name.
package validation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Violation codes.
const (
	CodeRequired      = "required"
	CodePositive      = "must_be_positive"
	CodeNonNegative   = "must_not_be_negative"
	CodeOutOfRange    = "out_of_range"
	CodeInvalid       = "invalid"
	CodeAlreadyExists = "already_exists"
	CodePrecision     = "too_many_decimals"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless a violation is already recorded.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, CodeRequired)
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v.Add(field, CodePositive)
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, CodeNonNegative)
	}
}

// MaxDecimals rejects values carrying more than places significant decimals.
func MaxDecimals(field string, val decimal.Decimal, places int32, v Violations) {
	if !val.Equal(val.Round(places)) {
		v.Add(field, CodePrecision)
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, CodeOutOfRange)
	}
}

// OneOf flags value when it is not among allowed.
func OneOf[T ~string](field string, value T, allowed []T, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, CodeInvalid)
}
