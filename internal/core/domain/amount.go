package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultTokenDecimals is used when the contract cannot report its own.
const DefaultTokenDecimals uint8 = 18

// ErrPrecisionLoss is returned when an amount has more fractional digits than the token.
var ErrPrecisionLoss = errors.New("amount has more fractional digits than the token supports")

// ToBaseUnits converts a human amount into integer base units (amount * 10^decimals).
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", amount)
	}
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrPrecisionLoss
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits converts integer base units back into a human amount.
func FromBaseUnits(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}
