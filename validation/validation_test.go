package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	PositiveInt("line_items[0].quantity", 0, v)
	NonNegativeDecimal("line_items[0].rate", decimal.NewFromInt(-1), v)
	RangeInt("count", 121, 1, 120, v)
	OneOf("status", "draft", []string{"pending", "paid"}, v)
	MaxDecimals("discount", decimal.RequireFromString("0.005"), 2, v)

	assert.Equal(t, Violations{
		"name":                   CodeRequired,
		"line_items[0].quantity": CodePositive,
		"line_items[0].rate":     CodeNonNegative,
		"count":                  CodeOutOfRange,
		"status":                 CodeInvalid,
		"discount":               CodePrecision,
	}, v)
}

func TestValidatorsAccept(t *testing.T) {
	v := Violations{}
	Required("name", "Acme", v)
	PositiveInt("qty", 1, v)
	NonNegativeDecimal("rate", decimal.Zero, v)
	RangeInt("count", 120, 1, 120, v)
	OneOf("status", "paid", []string{"pending", "paid"}, v)
	MaxDecimals("rate", decimal.RequireFromString("12.500"), 2, v)
	assert.True(t, v.Empty())
}

func TestAddKeepsFirst(t *testing.T) {
	v := Violations{}
	v.Add("x", CodeRequired)
	v.Add("x", CodeInvalid)
	assert.Equal(t, CodeRequired, v["x"])
}
