package metaquoter

import (
	"cmp"
	"math/big"
	"sync"
)

type ranked interface {
	amount() *big.Int
	gas() uint64
}

// compareResults returns a positive number when a is better than b: more
// output for exact input, less input for exact output, then less gas.
func compareResults(exactInput bool, a, b ranked) int {
	c := a.amount().Cmp(b.amount())
	if !exactInput {
		c = -c
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(b.gas(), a.gas())
}

// tracker keeps the best result offered so far. Results may arrive in any
// order; among equals the lowest enumeration index wins, so the outcome does
// not depend on scheduling.
type tracker[R ranked] struct {
	mu         sync.Mutex
	exactInput bool
	best       R
	index      int
	found      bool
}

func newTracker[R ranked](exactInput bool) *tracker[R] {
	return &tracker[R]{exactInput: exactInput}
}

func (t *tracker[R]) offer(index int, r R) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.found {
		t.best, t.index, t.found = r, index, true
		return
	}
	c := compareResults(t.exactInput, r, t.best)
	if c > 0 || (c == 0 && index < t.index) {
		t.best, t.index = r, index
	}
}

func (t *tracker[R]) result() (R, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.best, t.found
}

func reduce[R ranked](exactInput bool, results []R) (R, bool) {
	t := newTracker[R](exactInput)
	for i, r := range results {
		t.offer(i, r)
	}
	return t.result()
}

// BestSingle returns the best direct route of a result list, which is
// expected in enumeration order.
func BestSingle(exactInput bool, results []MetaQuoteExactSingleResult) (MetaQuoteExactSingleResult, bool) {
	return reduce(exactInput, results)
}

// BestMultihop returns the best one-hop route of a result list, which is
// expected in enumeration order.
func BestMultihop(exactInput bool, results []MetaQuoteExactResult) (MetaQuoteExactResult, bool) {
	return reduce(exactInput, results)
}

// NewBestResult picks the overall best of a best direct and a best one-hop
// route. A full tie goes to the direct route.
func NewBestResult(exactInput bool, single *MetaQuoteExactSingleResult, multihop *MetaQuoteExactResult) BestResult {
	res := BestResult{BestSingleSwap: single, BestMultihopSwap: multihop}
	switch {
	case single == nil && multihop == nil:
		res.BestSwapType = BestSwapNone
	case multihop == nil:
		res.BestSwapType = BestSwapSingle
	case single == nil:
		res.BestSwapType = BestSwapMultihop
	case compareResults(exactInput, *single, *multihop) >= 0:
		res.BestSwapType = BestSwapSingle
	default:
		res.BestSwapType = BestSwapMultihop
	}
	return res
}
