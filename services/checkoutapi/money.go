package checkoutapi

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToCents rounds half away from zero to whole cents.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func FormatCents(cents int64) string {
	return FromCents(cents).StringFixed(2)
}
