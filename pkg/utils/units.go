package utils

import "github.com/shopspring/decimal"

// DefaultTokenDecimals applies when a token's precision is not supplied.
const DefaultTokenDecimals int32 = 18

// ToHumanUnits converts a base-unit amount to human token units, e.g.
// 10^18 base units of an 18-decimal token becomes 1.
func ToHumanUnits(amount decimal.Decimal, tokenDecimals int32) decimal.Decimal {
	if tokenDecimals <= 0 {
		tokenDecimals = DefaultTokenDecimals
	}
	return amount.Shift(-tokenDecimals)
}

// ToBaseUnits converts a human-unit amount to base units.
func ToBaseUnits(amount decimal.Decimal, tokenDecimals int32) decimal.Decimal {
	if tokenDecimals <= 0 {
		tokenDecimals = DefaultTokenDecimals
	}
	return amount.Shift(tokenDecimals)
}
