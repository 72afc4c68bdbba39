package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/followup/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/followup/internal/observability/metrics"
	"github.com/smallbiznis/followup/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const schedulerActor = "scheduler"

// TickSummary counts what one tick did.
type TickSummary struct {
	RunID     string
	Skipped   bool
	Due       int
	Succeeded int
	Completed int
	Failed    int
	Exhausted int
	Conflicts int
	Errors    int
}

type tickRun struct {
	mu        sync.Mutex
	summary   TickSummary
	startedAt time.Time
}

func (r *tickRun) record(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case obsmetrics.AttemptOutcomeSuccess:
		r.summary.Succeeded++
	case obsmetrics.AttemptOutcomeCompleted:
		r.summary.Completed++
	case obsmetrics.AttemptOutcomeFailure:
		r.summary.Failed++
	case obsmetrics.AttemptOutcomeExhausted:
		r.summary.Exhausted++
	case obsmetrics.AttemptOutcomeConflict:
		r.summary.Conflicts++
	default:
		r.summary.Errors++
	}
}

func (r *tickRun) addDue(n int) {
	r.mu.Lock()
	r.summary.Due += n
	r.mu.Unlock()
}

func (r *tickRun) snapshot() TickSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

func (s *Scheduler) withLogContext(ctx context.Context, runID string) context.Context {
	ctx = correlation.ContextWithActor(ctx, schedulerActor)
	ctx = correlation.ContextWithCorrelationID(ctx, runID)
	return ctx
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, s.log)
}

func (s *Scheduler) logTickFinish(ctx context.Context, run *tickRun) {
	summary := run.snapshot()
	fields := []zap.Field{
		zap.String("run_id", summary.RunID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("due", summary.Due),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("exhausted", summary.Exhausted),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("errors", summary.Errors),
	}
	log := s.logger(ctx)
	if summary.Errors > 0 {
		log.Warn("scheduler.tick.finish", fields...)
		return
	}
	if summary.Due == 0 {
		log.Debug("scheduler.tick.finish", fields...)
		return
	}
	log.Info("scheduler.tick.finish", fields...)
}

func (s *Scheduler) logCallError(ctx context.Context, msg string, callID string, err error, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("call_id", callID),
		zap.String("error_type", obsmetrics.ClassifyReason(err)),
		zap.Error(err),
	}
	s.logger(ctx).Error(msg, append(base, fields...)...)
}
