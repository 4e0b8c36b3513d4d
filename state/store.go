package state

import (
	"context"
	"sync/atomic"

	"github.com/owlprotocol/veraswap-sub000/engine"
	"github.com/owlprotocol/veraswap-sub000/metaquoter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type storeMetrics struct {
	block   prometheus.Gauge
	pools   *prometheus.GaugeVec
	updates *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	factory := promauto.With(reg)
	return &storeMetrics{
		block: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "metaquoter",
			Subsystem: "state",
			Name:      "block_number",
			Help:      "Block number of the snapshot queries read.",
		}),
		pools: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "metaquoter",
			Subsystem: "state",
			Name:      "pools",
			Help:      "Pools in the current snapshot by version.",
		}, []string{"version"}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metaquoter",
			Subsystem: "state",
			Name:      "updates_total",
			Help:      "Snapshot updates by status.",
		}, []string{"status"}),
	}
}

// Store publishes the current snapshot. Readers always observe a complete
// snapshot; replacing it never affects queries already holding the old one.
type Store struct {
	current atomic.Pointer[Snapshot]
	opts    Options
	logger  Logger
	metrics *storeMetrics
}

// NewStore returns a store holding an empty snapshot. opts configures the
// snapshots Follow builds.
func NewStore(opts Options, logger Logger, reg prometheus.Registerer) *Store {
	s := &Store{opts: opts, logger: logger, metrics: newStoreMetrics(reg)}
	s.current.Store(Empty())
	return s
}

// Load returns the current snapshot. It is never nil.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Reader is a metaquoter.StateFunc over the store.
func (s *Store) Reader() metaquoter.StateReader {
	return s.Load()
}

// Swap publishes snap and returns the snapshot it replaces.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	old := s.current.Swap(snap)

	counts := snap.Counts()
	s.metrics.block.Set(float64(snap.BlockNumber))
	s.metrics.pools.WithLabelValues(metaquoter.V2.String()).Set(float64(counts.V2))
	s.metrics.pools.WithLabelValues(metaquoter.V3.String()).Set(float64(counts.V3))
	s.metrics.pools.WithLabelValues(metaquoter.V4.String()).Set(float64(counts.V4))
	s.metrics.updates.WithLabelValues("ok").Inc()

	s.logger.Info("Snapshot updated",
		"chain_id", snap.ChainID,
		"block", snap.BlockNumber,
		"v2_pools", counts.V2,
		"v3_pools", counts.V3,
		"v4_pools", counts.V4,
	)
	return old
}

// Follow publishes a snapshot for every state received until states is
// closed or ctx ends. A state that cannot be indexed is logged and the
// previous snapshot stays current.
func (s *Store) Follow(ctx context.Context, states <-chan *engine.State) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-states:
			if !ok {
				return nil
			}
			snap, skipped, err := FromEngine(st, s.opts)
			if err != nil {
				s.metrics.updates.WithLabelValues("failed").Inc()
				s.logger.Error("Failed to build snapshot, keeping the previous one", "error", err)
				continue
			}
			if len(skipped) > 0 {
				s.logger.Warn("Skipped protocols without usable data", "block", snap.BlockNumber, "protocols", skipped)
			}
			s.Swap(snap)
		}
	}
}
