// Package metaquoter finds the best direct and one-hop routes for a trade
// across V2, V3 and V4 pools.
//
// Every query enumerates its candidates lazily, simulates each against one
// consistent state snapshot and drops candidates whose pools are missing or
// too shallow. Failures of the simulation mechanism abort the query.
package metaquoter

import (
	"context"
	"errors"
	"time"

	"github.com/owlprotocol/veraswap-sub000/gas"
	"github.com/prometheus/client_golang/prometheus"
)

// StateFunc returns the current state snapshot. Each query calls it once.
type StateFunc func() StateReader

// Config holds the configuration for a MetaQuoter.
type Config struct {
	State    StateFunc
	Schedule gas.Schedule
	// Versions limits the pool versions routes may use.
	Versions Versions
	// Workers bounds the candidates simulated concurrently per query.
	Workers  int
	Logger   Logger
	Registry prometheus.Registerer
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.State == nil {
		return errors.New("config: State is required")
	}
	if c.Versions == 0 {
		return errors.New("config: at least one pool version must be enabled")
	}
	if c.Workers < 1 {
		return errors.New("config: Workers must be greater than 0")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// MetaQuoter answers meta-quote queries. It is safe for concurrent use.
type MetaQuoter struct {
	state    StateFunc
	schedule gas.Schedule
	versions Versions
	workers  int
	logger   Logger
	metrics  *Metrics
}

// New constructs a MetaQuoter from a configuration.
func New(cfg *Config) (*MetaQuoter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MetaQuoter{
		state:    cfg.State,
		schedule: cfg.Schedule,
		versions: cfg.Versions,
		workers:  cfg.Workers,
		logger:   cfg.Logger,
		metrics:  NewMetrics(cfg.Registry),
	}, nil
}

func (m *MetaQuoter) composer() *composer {
	return &composer{
		sims:    newSimulators(m.state(), m.schedule, m.versions),
		workers: m.workers,
		logger:  m.logger,
		metrics: m.metrics,
	}
}

// MetaQuoteExactInputSingle returns every viable direct route paying
// ExactAmount of ExactCurrency, in enumeration order.
func (m *MetaQuoter) MetaQuoteExactInputSingle(ctx context.Context, params MetaQuoteExactParams) ([]MetaQuoteExactSingleResult, error) {
	return m.singles(ctx, "exact_input_single", params, true)
}

// MetaQuoteExactOutputSingle returns every viable direct route receiving
// ExactAmount of ExactCurrency, in enumeration order.
func (m *MetaQuoter) MetaQuoteExactOutputSingle(ctx context.Context, params MetaQuoteExactParams) ([]MetaQuoteExactSingleResult, error) {
	return m.singles(ctx, "exact_output_single", params, false)
}

// MetaQuoteExactInput returns every viable one-hop route paying ExactAmount
// of ExactCurrency, in enumeration order.
func (m *MetaQuoter) MetaQuoteExactInput(ctx context.Context, params MetaQuoteExactParams) ([]MetaQuoteExactResult, error) {
	return m.multihops(ctx, "exact_input", params, true)
}

// MetaQuoteExactOutput returns every viable one-hop route receiving
// ExactAmount of ExactCurrency, in enumeration order.
func (m *MetaQuoter) MetaQuoteExactOutput(ctx context.Context, params MetaQuoteExactParams) ([]MetaQuoteExactResult, error) {
	return m.multihops(ctx, "exact_output", params, false)
}

// MetaQuoteExactInputBest returns the routes paying ExactAmount that buy the
// most VariableCurrency.
func (m *MetaQuoter) MetaQuoteExactInputBest(ctx context.Context, params MetaQuoteExactParams) (BestResult, error) {
	return m.best(ctx, "exact_input_best", params, true)
}

// MetaQuoteExactOutputBest returns the routes receiving ExactAmount that cost
// the least VariableCurrency.
func (m *MetaQuoter) MetaQuoteExactOutputBest(ctx context.Context, params MetaQuoteExactParams) (BestResult, error) {
	return m.best(ctx, "exact_output_best", params, false)
}

func (m *MetaQuoter) singles(ctx context.Context, op string, params MetaQuoteExactParams, exactInput bool) (results []MetaQuoteExactSingleResult, err error) {
	defer m.observe(op, time.Now(), &err, func() int { return len(results) })
	if err := validate(params); err != nil {
		return nil, err
	}
	c := m.composer()
	var out collector[MetaQuoteExactSingleResult]
	err = evaluate(ctx, m.workers, SingleCandidates(params, m.versions),
		func(ctx context.Context, leg Leg) (MetaQuoteExactSingleResult, bool, error) {
			return c.single(ctx, params, leg, exactInput)
		}, out.emit)
	if err != nil {
		return nil, err
	}
	return out.sorted(), nil
}

func (m *MetaQuoter) multihops(ctx context.Context, op string, params MetaQuoteExactParams, exactInput bool) (results []MetaQuoteExactResult, err error) {
	defer m.observe(op, time.Now(), &err, func() int { return len(results) })
	if err := validate(params); err != nil {
		return nil, err
	}
	c := m.composer()
	var out collector[MetaQuoteExactResult]
	err = evaluate(ctx, m.workers, MultihopCandidates(params, m.versions),
		func(ctx context.Context, cand MultihopCandidate) (MetaQuoteExactResult, bool, error) {
			return c.multihop(ctx, params, cand, exactInput)
		}, out.emit)
	if err != nil {
		return nil, err
	}
	return out.sorted(), nil
}

func (m *MetaQuoter) best(ctx context.Context, op string, params MetaQuoteExactParams, exactInput bool) (result BestResult, err error) {
	defer m.observe(op, time.Now(), &err, func() int {
		n := 0
		if result.BestSingleSwap != nil {
			n++
		}
		if result.BestMultihopSwap != nil {
			n++
		}
		return n
	})
	if err := validate(params); err != nil {
		return BestResult{}, err
	}
	// one composer, so both reductions read the same snapshot
	c := m.composer()

	singles := newTracker[MetaQuoteExactSingleResult](exactInput)
	err = evaluate(ctx, m.workers, SingleCandidates(params, m.versions),
		func(ctx context.Context, leg Leg) (MetaQuoteExactSingleResult, bool, error) {
			return c.single(ctx, params, leg, exactInput)
		}, singles.offer)
	if err != nil {
		return BestResult{}, err
	}

	multihops := newTracker[MetaQuoteExactResult](exactInput)
	err = evaluate(ctx, m.workers, MultihopCandidates(params, m.versions),
		func(ctx context.Context, cand MultihopCandidate) (MetaQuoteExactResult, bool, error) {
			return c.multihop(ctx, params, cand, exactInput)
		}, multihops.offer)
	if err != nil {
		return BestResult{}, err
	}

	var bestSingle *MetaQuoteExactSingleResult
	if r, ok := singles.result(); ok {
		bestSingle = &r
	}
	var bestMultihop *MetaQuoteExactResult
	if r, ok := multihops.result(); ok {
		bestMultihop = &r
	}
	return NewBestResult(exactInput, bestSingle, bestMultihop), nil
}

func (m *MetaQuoter) observe(op string, start time.Time, err *error, routes func() int) {
	m.metrics.queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if *err != nil {
		m.metrics.queries.WithLabelValues(op, statusFailed).Inc()
		m.logger.Warn("Meta-quote failed", "operation", op, "error", *err)
		return
	}
	m.metrics.queries.WithLabelValues(op, statusOK).Inc()
	m.metrics.routesReturned.WithLabelValues(op).Observe(float64(routes()))
}

func validate(params MetaQuoteExactParams) error {
	if params.ExactAmount == nil || params.ExactAmount.Sign() <= 0 || params.ExactAmount.BitLen() > 128 {
		return ErrInvalidExactAmount
	}
	if params.ExactCurrency == params.VariableCurrency {
		return ErrIdenticalCurrencies
	}
	return nil
}
