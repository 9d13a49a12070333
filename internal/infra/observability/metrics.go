package observability

import (
	"errors"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics for the budget calendar.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	Registry *prometheus.Registry

	calendarBuilds *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	warnings       *prometheus.CounterVec
	transactions   *prometheus.CounterVec
	transfers      prometheus.Counter
	movedAmount    prometheus.Counter
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	externalErrors *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		calendarBuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_calendar_builds_total",
				Help: "Total calendar builds by result.",
			},
			[]string{"result"},
		),
		buildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "budget_calendar_build_duration_seconds",
				Help:    "Duration of calendar builds, including recurring injection and replay.",
				Buckets: prometheus.DefBuckets,
			},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_warnings_total",
				Help: "Warnings attached to plans and calendars, by code.",
			},
			[]string{"code"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_transactions_total",
				Help: "Transactions applied, by type and resulting day status.",
			},
			[]string{"type", "status"},
		),
		transfers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budget_redistribution_transfers_total",
				Help: "Budget transfers produced by redistribution.",
			},
		),
		movedAmount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "budget_redistribution_moved_amount_total",
				Help: "Currency moved between days by redistribution.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budget_external_errors_total",
				Help: "Total errors from external collaborators.",
			},
			[]string{"service"},
		),
	}
}

// Warning codes used as metric labels.
const (
	WarningAllocationUnresolved = "allocation_unresolved"
	WarningSavingsClamped       = "savings_goal_clamped"
	WarningOther                = "other"
)

// WarningCode maps a warning to its metric label.
func WarningCode(err error) string {
	var unresolved *domain.AllocationUnresolvedWarning
	var clamped *domain.SavingsGoalClampedWarning
	switch {
	case errors.As(err, &unresolved):
		return WarningAllocationUnresolved
	case errors.As(err, &clamped):
		return WarningSavingsClamped
	}
	return WarningOther
}

// RecordBuild records the result and duration of a calendar build.
func (m *Metrics) RecordBuild(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.calendarBuilds.WithLabelValues(result).Inc()
	m.buildDuration.Observe(d.Seconds())
}

// RecordWarnings counts warnings by code.
func (m *Metrics) RecordWarnings(warnings []error) {
	for _, w := range warnings {
		m.warnings.WithLabelValues(WarningCode(w)).Inc()
	}
}

// RecordTransaction counts an applied transaction.
func (m *Metrics) RecordTransaction(txType domain.TransactionType, status domain.Status) {
	m.transactions.WithLabelValues(string(txType), string(status)).Inc()
}

// RecordTransfers counts redistribution transfers and the amount moved.
func (m *Metrics) RecordTransfers(transfers []domain.BudgetTransfer) {
	for _, t := range transfers {
		m.transfers.Inc()
		m.movedAmount.Add(t.Amount.InexactFloat64())
	}
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// Snapshot is a point-in-time view of the metrics, for CLI output.
type Snapshot struct {
	CalendarBuilds int64            `json:"calendar_builds"`
	BuildErrors    int64            `json:"build_errors"`
	AvgBuildMs     float64          `json:"avg_build_ms"`
	Warnings       map[string]int64 `json:"warnings"`
	Transactions   map[string]int64 `json:"transactions"`
	Transfers      int64            `json:"transfers"`
	MovedAmount    decimal.Decimal  `json:"moved_amount"`
	CacheHitRate   float64          `json:"cache_hit_rate"`
	ExternalErrors map[string]int64 `json:"external_errors"`
}

// Snapshot gathers the current metric values from the registry.
func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Warnings:       map[string]int64{},
		Transactions:   map[string]int64{},
		ExternalErrors: map[string]int64{},
		MovedAmount:    decimal.Zero,
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return s
	}

	var hits, misses float64
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch mf.GetName() {
			case "budget_calendar_builds_total":
				n := int64(metric.GetCounter().GetValue())
				s.CalendarBuilds += n
				if label(metric, "result") == "error" {
					s.BuildErrors += n
				}
			case "budget_calendar_build_duration_seconds":
				if h := metric.GetHistogram(); h.GetSampleCount() > 0 {
					s.AvgBuildMs = h.GetSampleSum() / float64(h.GetSampleCount()) * 1000
				}
			case "budget_warnings_total":
				s.Warnings[label(metric, "code")] = int64(metric.GetCounter().GetValue())
			case "budget_transactions_total":
				key := label(metric, "type") + "/" + label(metric, "status")
				s.Transactions[key] = int64(metric.GetCounter().GetValue())
			case "budget_redistribution_transfers_total":
				s.Transfers = int64(metric.GetCounter().GetValue())
			case "budget_redistribution_moved_amount_total":
				s.MovedAmount = domain.RoundCents(decimal.NewFromFloat(metric.GetCounter().GetValue()))
			case "budget_cache_hits_total":
				hits += metric.GetCounter().GetValue()
			case "budget_cache_misses_total":
				misses += metric.GetCounter().GetValue()
			case "budget_external_errors_total":
				s.ExternalErrors[label(metric, "service")] = int64(metric.GetCounter().GetValue())
			}
		}
	}
	if hits+misses > 0 {
		s.CacheHitRate = hits / (hits + misses)
	}
	return s
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
