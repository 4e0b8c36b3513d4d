package uniswapv2

import (
	"math/big"

	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
)

// Schema is the decode contract for a snapshot of constant-product pools.
const Schema engine.ProtocolSchema = "veraswap/uniswap-v2/Pool@v1"

// DefaultFeeBps is the canonical 0.3% swap fee.
const DefaultFeeBps = 30

// PoolKey identifies a constant-product pool. Fee and curve are fixed by the
// deployed pair, so the sorted currency pair is the whole identity.
type PoolKey struct {
	Currency0 currency.Currency `json:"currency0"`
	Currency1 currency.Currency `json:"currency1"`
}

// NewPoolKey sorts an unordered pair into a PoolKey.
func NewPoolKey(a, b currency.Currency) PoolKey {
	c0, c1 := currency.Sort(a, b)
	return PoolKey{Currency0: c0, Currency1: c1}
}

type Pool struct {
	Currency0 currency.Currency `json:"currency0"`
	Currency1 currency.Currency `json:"currency1"`
	Reserve0  *big.Int          `json:"reserve0"`
	Reserve1  *big.Int          `json:"reserve1"`
	// FeeBps is nil for pairs charging DefaultFeeBps.
	FeeBps *uint16 `json:"feeBps,omitempty"`
}

func (p Pool) Key() PoolKey {
	return NewPoolKey(p.Currency0, p.Currency1)
}

// Fee returns the pool's effective fee in basis points.
func (p Pool) Fee() uint16 {
	if p.FeeBps == nil {
		return DefaultFeeBps
	}
	return *p.FeeBps
}

// WithFee returns a copy of the pool charging bps, which may be zero.
func (p Pool) WithFee(bps uint16) Pool {
	p.FeeBps = &bps
	return p
}

// Canonical returns the pool with its currencies (and reserves) in sorted order.
func (p Pool) Canonical() Pool {
	if p.Currency1.Less(p.Currency0) {
		p.Currency0, p.Currency1 = p.Currency1, p.Currency0
		p.Reserve0, p.Reserve1 = p.Reserve1, p.Reserve0
	}
	return p
}
