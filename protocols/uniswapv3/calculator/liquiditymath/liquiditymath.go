// Package liquiditymath applies signed liquidity deltas to uint128 liquidity.
package liquiditymath

import (
	"errors"
	"math/big"
)

var (
	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")

	maxLiquidity = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// AddDelta sets dest to x + y, failing when the sum leaves the uint128 range.
// dest may alias x.
func AddDelta(dest, x, y *big.Int) error {
	dest.Add(x, y)
	switch {
	case dest.Sign() < 0:
		return ErrLiquidityUnderflow
	case dest.Cmp(maxLiquidity) > 0:
		return ErrLiquidityOverflow
	}
	return nil
}
