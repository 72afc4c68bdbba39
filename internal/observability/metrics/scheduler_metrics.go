package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	facilitydomain "github.com/smallbiznis/followup/internal/facility/domain"
	"github.com/smallbiznis/followup/pkg/db"
	"gorm.io/gorm"
)

// Outcomes of a single recurring call attempt.
const (
	AttemptOutcomeSuccess   = "success"
	AttemptOutcomeFailure   = "failure"
	AttemptOutcomeExhausted = "exhausted"
	AttemptOutcomeCompleted = "completed"
	AttemptOutcomeConflict  = "conflict"
	AttemptOutcomeError     = "error"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonFacilityCall         = "facility_call"
	ReasonPersistence          = "persistence"
	ReasonUnknown              = "unknown"
)

// SchedulerMetrics captures recurring call scheduler health signals.
type SchedulerMetrics struct {
	tickRuns      prometheus.Counter
	tickDuration  prometheus.Histogram
	tickErrors    *prometheus.CounterVec
	callsDue      prometheus.Gauge
	attempts      *prometheus.CounterVec
	callDuration  prometheus.Histogram
	runLoopLag    prometheus.Histogram
	lockSkipped   prometheus.Counter
	attemptCounts map[string]prometheus.Counter
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// NewSchedulerMetrics builds scheduler metrics on a caller-owned registry.
func NewSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	return newSchedulerMetrics(registerer, cfg)
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "followup"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	tickRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "followup_scheduler_tick_runs_total",
		Help:        "Recurring call scheduler ticks started.",
		ConstLabels: constLabels,
	})
	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "followup_scheduler_tick_duration_seconds",
		Help:        "Wall time spent draining due recurring calls in one tick.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	tickErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "followup_scheduler_tick_errors_total",
		Help:        "Scheduler tick errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	callsDue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "followup_scheduler_calls_due",
		Help:        "Recurring calls selected as due in the last tick.",
		ConstLabels: constLabels,
	})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "followup_scheduler_call_attempts_total",
		Help:        "Recurring call attempts by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	callDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "followup_scheduler_call_duration_seconds",
		Help:        "Latency of a single recurring call attempt including persistence.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "followup_scheduler_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	lockSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "followup_scheduler_tick_lock_skipped_total",
		Help:        "Ticks skipped because another instance held the tick lock.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		tickRuns,
		tickDuration,
		tickErrors,
		callsDue,
		attempts,
		callDuration,
		runLoopLag,
		lockSkipped,
	)

	attemptCounts := make(map[string]prometheus.Counter)
	for _, outcome := range []string{
		AttemptOutcomeSuccess,
		AttemptOutcomeFailure,
		AttemptOutcomeExhausted,
		AttemptOutcomeCompleted,
		AttemptOutcomeConflict,
		AttemptOutcomeError,
	} {
		attemptCounts[outcome] = attempts.WithLabelValues(outcome)
	}

	return &SchedulerMetrics{
		tickRuns:      tickRuns,
		tickDuration:  tickDuration,
		tickErrors:    tickErrors,
		callsDue:      callsDue,
		attempts:      attempts,
		callDuration:  callDuration,
		runLoopLag:    runLoopLag,
		lockSkipped:   lockSkipped,
		attemptCounts: attemptCounts,
	}
}

func (m *SchedulerMetrics) IncTickRun() {
	if m == nil {
		return
	}
	m.tickRuns.Inc()
}

func (m *SchedulerMetrics) ObserveTickDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(duration.Seconds())
}

// IncTickError classifies err into a low-cardinality reason.
func (m *SchedulerMetrics) IncTickError(err error) {
	if m == nil || err == nil {
		return
	}
	m.tickErrors.WithLabelValues(ClassifyReason(err)).Inc()
}

func (m *SchedulerMetrics) SetCallsDue(count int) {
	if m == nil {
		return
	}
	m.callsDue.Set(float64(count))
}

func (m *SchedulerMetrics) IncAttempt(outcome string) {
	if m == nil {
		return
	}
	if counter, ok := m.attemptCounts[outcome]; ok {
		counter.Inc()
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) ObserveCallDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.callDuration.Observe(duration.Seconds())
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *SchedulerMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

func (m *SchedulerMetrics) IncLockSkipped() {
	if m == nil {
		return
	}
	m.lockSkipped.Inc()
}

// ClassifyReason maps scheduler errors to low-cardinality reasons.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if hasPGCode(err, "55P03") {
		return ReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return ReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return ReasonUniqueViolation
	}
	var callErr *facilitydomain.FacilityCallError
	if errors.As(err, &callErr) {
		return ReasonFacilityCall
	}
	if db.IsPersistenceErr(err) {
		return ReasonPersistence
	}
	return ReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
