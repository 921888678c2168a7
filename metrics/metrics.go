// Package metrics decorates a graph.Store with Prometheus instrumentation.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

const (
	OutcomeCommit   = "commit"
	OutcomeRollback = "rollback"
	OutcomeFailed   = "failed"
)

// Metrics holds the collectors shared by all transactions of an instrumented store.
type Metrics struct {
	transactions *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	open         *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them. A nil registerer
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neoinventory_transactions_total",
			Help: "Total number of graph transactions started",
		}, []string{"mode"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neoinventory_transaction_outcomes_total",
			Help: "Total number of finished graph transactions by outcome",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neoinventory_transaction_duration_seconds",
			Help:    "Duration of graph transactions in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"mode"}),
		open: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neoinventory_transactions_open",
			Help: "Number of currently open graph transactions",
		}, []string{"mode"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.transactions, m.outcomes, m.duration, m.open} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Transactions returns the counter of started transactions for a mode.
func (m *Metrics) Transactions(mode graph.Mode) prometheus.Counter {
	return m.transactions.WithLabelValues(mode.String())
}

// Outcomes returns the counter of finished transactions for a mode and outcome.
func (m *Metrics) Outcomes(mode graph.Mode, outcome string) prometheus.Counter {
	return m.outcomes.WithLabelValues(mode.String(), outcome)
}

// Open returns the gauge of currently open transactions for a mode.
func (m *Metrics) Open(mode graph.Mode) prometheus.Gauge {
	return m.open.WithLabelValues(mode.String())
}

// Store is an instrumented graph.Store.
type Store struct {
	graph.Store
	metrics *Metrics
}

var _ graph.Store = (*Store)(nil)

// Instrument wraps a store and registers its collectors at reg.
func Instrument(store graph.Store, reg prometheus.Registerer) (*Store, error) {
	m, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Store{Store: store, metrics: m}, nil
}

// Metrics returns the collectors of the store.
func (s *Store) Metrics() *Metrics {
	return s.metrics
}

// Unwrap returns the decorated store.
func (s *Store) Unwrap() graph.Store {
	return s.Store
}

func (s *Store) Begin(ctx context.Context, mode graph.Mode) (graph.Tx, error) {
	tx, err := s.Store.Begin(ctx, mode)
	if err != nil {
		s.metrics.Outcomes(mode, OutcomeFailed).Inc()
		return nil, err
	}
	s.metrics.Transactions(mode).Inc()
	s.metrics.Open(mode).Inc()
	t := &instrumentedTx{Tx: tx, metrics: s.metrics, mode: mode, start: time.Now()}
	if q, ok := tx.(graph.Querier); ok {
		return &querierTx{instrumentedTx: t, querier: q}, nil
	}
	return t, nil
}

type instrumentedTx struct {
	graph.Tx
	metrics *Metrics
	mode    graph.Mode
	start   time.Time
	done    bool
}

func (t *instrumentedTx) finish(outcome string) {
	if t.done {
		return
	}
	t.done = true
	t.metrics.Open(t.mode).Dec()
	t.metrics.Outcomes(t.mode, outcome).Inc()
	t.metrics.duration.WithLabelValues(t.mode.String()).Observe(time.Since(t.start).Seconds())
}

func (t *instrumentedTx) Commit(ctx context.Context) error {
	err := t.Tx.Commit(ctx)
	if err != nil {
		t.finish(OutcomeFailed)
		return err
	}
	t.finish(OutcomeCommit)
	return nil
}

func (t *instrumentedTx) Rollback(ctx context.Context) error {
	err := t.Tx.Rollback(ctx)
	if err == nil {
		t.finish(OutcomeRollback)
	}
	return err
}

// querierTx keeps the native query capability of the decorated transaction visible.
type querierTx struct {
	*instrumentedTx
	querier graph.Querier
}

func (t *querierTx) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return t.querier.Query(ctx, cypher, params)
}
