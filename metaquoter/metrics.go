package metaquoter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	statusOK     = "ok"
	statusFailed = "failed"
)

// Metrics holds the quoter's Prometheus collectors.
type Metrics struct {
	queries        *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	legs           *prometheus.CounterVec
	routesReturned *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metaquoter",
			Name:      "queries_total",
			Help:      "Meta-quote queries by operation and status.",
		}, []string{"operation", "status"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metaquoter",
			Name:      "query_duration_seconds",
			Help:      "Meta-quote query latency by operation.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		legs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metaquoter",
			Name:      "leg_simulations_total",
			Help:      "Single pool leg simulations by pool version and outcome.",
		}, []string{"version", "outcome"}),
		routesReturned: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metaquoter",
			Name:      "routes_returned",
			Help:      "Viable routes found per query.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"operation"}),
	}
}

func (m *Metrics) observeLeg(v Version, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = Classify(err).String()
	}
	m.legs.WithLabelValues(v.String(), outcome).Inc()
}
