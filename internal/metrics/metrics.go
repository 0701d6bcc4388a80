// Package metrics exposes Prometheus counters for decisor sync runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// WithBuckets overrides the reconcile duration buckets (seconds).
func WithBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// Manager owns the sync metrics. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	decisorsCreated     prometheus.Counter
	decisorsUpdated     prometheus.Counter
	decisorsDeleted     prometheus.Counter
	deletionGuardSkips  prometheus.Counter
	accountsReconciled  prometheus.Counter
	accountSyncFailures prometheus.Counter
	reconcileDuration   prometheus.Histogram
	scrapeFailures      *prometheus.CounterVec
}

// NewManager creates and registers the sync metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "glimora",
		// scrapes poll a remote job, so runs take seconds to minutes
		buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	f := promauto.With(m.registry)
	const subsystem = "decisor_sync"

	m.decisorsCreated = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "decisors_created_total",
		Help: "Decisors created by reconciliation.",
	})
	m.decisorsUpdated = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "decisors_updated_total",
		Help: "Decisors refreshed by reconciliation.",
	})
	m.decisorsDeleted = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "decisors_deleted_total",
		Help: "Stale or invalid decisors removed by reconciliation.",
	})
	m.deletionGuardSkips = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "deletion_guard_skips_total",
		Help: "Reconciliations whose stale-record pass was skipped because the scrape had no usable profiles.",
	})
	m.accountsReconciled = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "accounts_reconciled_total",
		Help: "Accounts reconciled successfully.",
	})
	m.accountSyncFailures = f.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "account_failures_total",
		Help: "Accounts skipped during an organization sync because reconciliation failed.",
	})
	m.reconcileDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name:    "reconcile_duration_seconds",
		Help:    "Wall time of one account reconciliation, scrape included.",
		Buckets: m.buckets,
	})
	m.scrapeFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem,
		Name: "scrape_failures_total",
		Help: "Employee scrape failures by reason.",
	}, []string{"reason"})

	return m
}

// Registry returns the registry the metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReconcile records the outcome of one account reconciliation.
func (m *Manager) ObserveReconcile(r model.ReconcileResult, d time.Duration) {
	if m == nil {
		return
	}
	m.decisorsCreated.Add(float64(r.Created))
	m.decisorsUpdated.Add(float64(r.Updated))
	m.decisorsDeleted.Add(float64(r.Deleted))
	m.accountsReconciled.Inc()
	m.reconcileDuration.Observe(d.Seconds())
}

// DeletionGuardSkipped counts a skipped stale-record pass.
func (m *Manager) DeletionGuardSkipped() {
	if m == nil {
		return
	}
	m.deletionGuardSkips.Inc()
}

// AccountSyncFailed counts an account skipped during an organization sync.
func (m *Manager) AccountSyncFailed() {
	if m == nil {
		return
	}
	m.accountSyncFailures.Inc()
}

// ScrapeFailed counts a scrape failure. reason is a short fixed string such
// as "circuit_open" or "provider".
func (m *Manager) ScrapeFailed(reason string) {
	if m == nil {
		return
	}
	m.scrapeFailures.WithLabelValues(reason).Inc()
}
