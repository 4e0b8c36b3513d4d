package metaquoter

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"math/big"
	"slices"
	"sync"

	"github.com/owlprotocol/veraswap-sub000/protocols/currency"
	"golang.org/x/sync/errgroup"
)

// composer turns candidates into routes. It is built per query around one
// state snapshot.
type composer struct {
	sims    *simulators
	workers int
	logger  Logger
	metrics *Metrics
}

// leg simulates one leg and reports whether the candidate survives. Only
// failures that abort the query are returned as errors.
func (c *composer) leg(ctx context.Context, leg Leg, in currency.Currency, exactInput bool, amount *big.Int) (LegQuote, bool, error) {
	q, err := c.sims.quote(ctx, leg, in, exactInput, amount)
	c.metrics.observeLeg(leg.Version, err)
	if err == nil {
		return q, true, nil
	}
	kind := Classify(err)
	if kind.Dropped() {
		c.logger.Debug("Dropping candidate", "version", leg.Version, "pool", leg.PoolKey.ID(), "kind", kind, "error", err)
		return LegQuote{}, false, nil
	}
	return LegQuote{}, false, fmt.Errorf("%s leg %s: %w", leg.Version, leg.PoolKey.ID(), err)
}

// single quotes a direct route.
func (c *composer) single(ctx context.Context, params MetaQuoteExactParams, leg Leg, exactInput bool) (MetaQuoteExactSingleResult, bool, error) {
	in := params.ExactCurrency
	if !exactInput {
		in = params.VariableCurrency
	}
	q, ok, err := c.leg(ctx, leg, in, exactInput, params.ExactAmount)
	if !ok {
		return MetaQuoteExactSingleResult{}, false, err
	}
	return MetaQuoteExactSingleResult{
		PoolKey:        leg.PoolKey,
		Version:        leg.Version,
		ZeroForOne:     in == leg.PoolKey.Currency0,
		HookData:       []byte{},
		VariableAmount: q.Amount,
		GasEstimate:    q.GasEstimate,
	}, true, nil
}

// multihop quotes a route through one hop. The leg touching the exact
// currency is simulated first, so for exact output the legs run in reverse
// swap order.
func (c *composer) multihop(ctx context.Context, params MetaQuoteExactParams, cand MultihopCandidate, exactInput bool) (MetaQuoteExactResult, bool, error) {
	var first LegQuote
	var ok bool
	var err error
	if exactInput {
		first, ok, err = c.leg(ctx, cand.ExactLeg, params.ExactCurrency, true, params.ExactAmount)
	} else {
		first, ok, err = c.leg(ctx, cand.ExactLeg, cand.Hop, false, params.ExactAmount)
	}
	if !ok {
		return MetaQuoteExactResult{}, false, err
	}

	var second LegQuote
	if exactInput {
		second, ok, err = c.leg(ctx, cand.VariableLeg, cand.Hop, true, first.Amount)
	} else {
		second, ok, err = c.leg(ctx, cand.VariableLeg, params.VariableCurrency, false, first.Amount)
	}
	if !ok {
		return MetaQuoteExactResult{}, false, err
	}

	res := MetaQuoteExactResult{
		VariableAmount: second.Amount,
		GasEstimate:    first.GasEstimate + second.GasEstimate,
	}
	if exactInput {
		res.Path = []PathKey{
			cand.ExactLeg.PathKey(cand.Hop),
			cand.VariableLeg.PathKey(params.VariableCurrency),
		}
	} else {
		res.Path = []PathKey{
			cand.VariableLeg.PathKey(params.VariableCurrency),
			cand.ExactLeg.PathKey(cand.Hop),
		}
	}
	for i := range res.Path {
		res.Path[i].HookData = []byte{}
	}
	return res, true, nil
}

// evaluate runs quote over every candidate with at most workers in flight
// and hands each surviving result to emit with its enumeration index. emit
// must be safe for concurrent use. The first aborting error cancels the
// remaining candidates and is returned. Cancellation is checked between
// candidates, never inside a simulation.
func evaluate[C, R any](
	ctx context.Context,
	workers int,
	candidates iter.Seq[C],
	quote func(context.Context, C) (R, bool, error),
	emit func(int, R),
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	i := 0
	for cand := range candidates {
		if gctx.Err() != nil {
			break
		}
		index := i
		i++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, ok, err := quote(gctx, cand)
			if err != nil {
				return err
			}
			if ok {
				emit(index, r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// the parent context may have ended without any candidate observing it
	return ctx.Err()
}

type indexed[R any] struct {
	index  int
	result R
}

// collector gathers results and restores enumeration order.
type collector[R any] struct {
	mu      sync.Mutex
	results []indexed[R]
}

func (c *collector[R]) emit(index int, r R) {
	c.mu.Lock()
	c.results = append(c.results, indexed[R]{index: index, result: r})
	c.mu.Unlock()
}

func (c *collector[R]) sorted() []R {
	slices.SortFunc(c.results, func(a, b indexed[R]) int { return cmp.Compare(a.index, b.index) })
	out := make([]R, len(c.results))
	for i, r := range c.results {
		out[i] = r.result
	}
	return out
}
