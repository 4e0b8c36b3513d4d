package metaquoter

import (
	"iter"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	uniswapv2 "github.com/owlprotocol/veraswap-sub000/protocols/uniswapv2"
	"github.com/owlprotocol/veraswap-sub000/protocols/uniswapv4"
)

// Leg is a single pool identity to quote. V2 legs carry a key with zero
// fee, tick spacing and hooks since the pair alone identifies the pool.
type Leg struct {
	Version Version
	PoolKey uniswapv4.PoolKey
}

// PathKey returns the path entry for the leg, reaching the given currency.
func (l Leg) PathKey(reached currency.Currency) PathKey {
	return PathKey{
		IntermediateCurrency: reached,
		Fee:                  l.PoolKey.Fee,
		TickSpacing:          l.PoolKey.TickSpacing,
		Hooks:                l.PoolKey.Hooks,
		Version:              l.Version,
	}
}

// MultihopCandidate is a route through Hop. ExactLeg joins the exact
// currency and the hop, VariableLeg joins the hop and the variable currency.
type MultihopCandidate struct {
	Hop         currency.Currency
	ExactLeg    Leg
	VariableLeg Leg
}

// PoolKeys returns one canonical key per option, in option order.
func PoolKeys(a, b currency.Currency, options []PoolKeyOptions) []uniswapv4.PoolKey {
	keys := make([]uniswapv4.PoolKey, len(options))
	for i, o := range options {
		keys[i] = uniswapv4.NewPoolKey(a, b, o.Fee, o.TickSpacing, o.Hooks)
	}
	return keys
}

// V2PoolKey returns the constant-product key for a pair.
func V2PoolKey(a, b currency.Currency) uniswapv2.PoolKey {
	return uniswapv2.NewPoolKey(a, b)
}

// HopCurrencies returns the query's hops without duplicates and without
// either endpoint, keeping first occurrence order.
func HopCurrencies(params MetaQuoteExactParams) []currency.Currency {
	seen := mapset.NewThreadUnsafeSet(params.ExactCurrency, params.VariableCurrency)
	hops := make([]currency.Currency, 0, len(params.HopCurrencies))
	for _, hop := range params.HopCurrencies {
		if seen.Add(hop) {
			hops = append(hops, hop)
		}
	}
	return hops
}

// Legs yields every pool identity to try for a pair: for each option a V4
// and a V3 leg, then a single V2 leg. Disabled versions are skipped.
func Legs(a, b currency.Currency, options []PoolKeyOptions, versions Versions) iter.Seq[Leg] {
	return func(yield func(Leg) bool) {
		for _, o := range options {
			key := uniswapv4.NewPoolKey(a, b, o.Fee, o.TickSpacing, o.Hooks)
			if versions.Has(V4) && !yield(Leg{Version: V4, PoolKey: key}) {
				return
			}
			if versions.Has(V3) && !yield(Leg{Version: V3, PoolKey: key}) {
				return
			}
		}
		if versions.Has(V2) {
			yield(Leg{Version: V2, PoolKey: uniswapv4.NewPoolKey(a, b, 0, 0, common.Address{})})
		}
	}
}

// SingleCandidates yields the direct routes of a query.
func SingleCandidates(params MetaQuoteExactParams, versions Versions) iter.Seq[Leg] {
	return Legs(params.ExactCurrency, params.VariableCurrency, params.PoolKeyOptions, versions)
}

// MultihopCandidates yields every (hop, exact leg, variable leg) triple. The
// options of the two legs vary independently.
func MultihopCandidates(params MetaQuoteExactParams, versions Versions) iter.Seq[MultihopCandidate] {
	hops := HopCurrencies(params)
	return func(yield func(MultihopCandidate) bool) {
		for _, hop := range hops {
			for exactLeg := range Legs(params.ExactCurrency, hop, params.PoolKeyOptions, versions) {
				for variableLeg := range Legs(hop, params.VariableCurrency, params.PoolKeyOptions, versions) {
					if !yield(MultihopCandidate{Hop: hop, ExactLeg: exactLeg, VariableLeg: variableLeg}) {
						return
					}
				}
			}
		}
	}
}
