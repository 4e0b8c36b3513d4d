package uniswapv3

import (
	"math/big"

	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
)

// Schema is the decode contract for a snapshot of concentrated-liquidity pools.
const Schema engine.ProtocolSchema = "veraswap/uniswap-v3/Pool@v1"

// PoolKey identifies a deployed V3 pool. The factory allows one pool per
// (pair, fee); tick spacing is a property of the fee tier.
type PoolKey struct {
	Currency0 currency.Currency `json:"currency0"`
	Currency1 currency.Currency `json:"currency1"`
	Fee       uint32            `json:"fee"`
}

// NewPoolKey sorts an unordered pair into a PoolKey.
func NewPoolKey(a, b currency.Currency, fee uint32) PoolKey {
	c0, c1 := currency.Sort(a, b)
	return PoolKey{Currency0: c0, Currency1: c1, Fee: fee}
}

// TickInfo represents the information about an initialized tick.
// The presence of the object implies the tick is initialized.
type TickInfo struct {
	Index          int32    `json:"index"`
	LiquidityGross *big.Int `json:"liquidityGross"`
	LiquidityNet   *big.Int `json:"liquidityNet"`
}

// PoolState is the swappable state of a concentrated-liquidity pool. V4 pools
// held by the singleton manager share the same layout.
type PoolState struct {
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	Tick         int32    `json:"tick"`
	Liquidity    *big.Int `json:"liquidity"`
	// Ticks must be sorted by Index.
	Ticks []TickInfo `json:"ticks"`
}

// Clone deep copies the mutable price and liquidity values. Ticks are shared
// since swaps never modify them.
func (s PoolState) Clone() PoolState {
	out := s
	if s.SqrtPriceX96 != nil {
		out.SqrtPriceX96 = new(big.Int).Set(s.SqrtPriceX96)
	}
	if s.Liquidity != nil {
		out.Liquidity = new(big.Int).Set(s.Liquidity)
	}
	return out
}

// Pool is a deployed V3 pool with its current state.
type Pool struct {
	Currency0   currency.Currency `json:"currency0"`
	Currency1   currency.Currency `json:"currency1"`
	Fee         uint32            `json:"fee"` // hundredths of a bip, i.e. 3000 for 0.3%
	TickSpacing int32             `json:"tickSpacing"`
	PoolState   `json:",inline"`
}

func (p Pool) Key() PoolKey {
	return NewPoolKey(p.Currency0, p.Currency1, p.Fee)
}
