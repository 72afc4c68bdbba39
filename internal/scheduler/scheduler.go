package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/followup/internal/clock"
	"github.com/smallbiznis/followup/internal/config"
	obsmetrics "github.com/smallbiznis/followup/internal/observability/metrics"
	"github.com/smallbiznis/followup/internal/outbound"
	"github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/smallbiznis/followup/internal/scheduler/guard"
	"github.com/smallbiznis/followup/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const persistTimeout = 5 * time.Second

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Caller issues one recorded HTTP exchange.
type Caller interface {
	Do(ctx context.Context, req outbound.Request) (*outbound.Response, error)
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Caller  Caller
	Clock   clock.Clock
	GenID   *snowflake.Node
	Config  *config.SchedulerConfigHolder `optional:"true"`
	Locker  *TickLocker                   `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics  `optional:"true"`
}

// Scheduler drains due recurring calls on a fixed tick.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	caller  Caller
	clock   clock.Clock
	genID   *snowflake.Node
	holder  *config.SchedulerConfigHolder
	locker  *TickLocker
	metrics *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Repo == nil || p.Caller == nil || p.Clock == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		repo:    p.Repo,
		caller:  p.Caller,
		clock:   p.Clock,
		genID:   p.GenID,
		holder:  p.Config,
		locker:  p.Locker,
		metrics: m,
	}, nil
}

// RunOnce executes a single tick: every call that is active and due at the
// start of the tick is attempted at most once.
func (s *Scheduler) RunOnce(parent context.Context) (TickSummary, error) {
	opts := s.options()
	run := &tickRun{startedAt: time.Now()}
	run.summary.RunID = s.genID.Generate().String()
	ctx := s.withLogContext(parent, run.summary.RunID)

	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx)
		switch {
		case err != nil:
			s.logger(ctx).Warn("scheduler.lock.failed", zap.Error(err))
		case !acquired:
			s.metrics.IncLockSkipped()
			s.logger(ctx).Debug("scheduler.tick.skipped", zap.String("run_id", run.summary.RunID))
			run.summary.Skipped = true
			return run.summary, nil
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
				defer cancel()
				if err := s.locker.Release(releaseCtx, token); err != nil {
					s.logger(ctx).Warn("scheduler.lock.release_failed", zap.Error(err))
				}
			}()
		}
	}

	s.metrics.IncTickRun()
	defer func() {
		s.metrics.ObserveTickDuration(time.Since(run.startedAt))
		s.logTickFinish(ctx, run)
	}()

	now := s.clock.Now()
	seen := make(map[snowflake.ID]struct{})
	var afterID snowflake.ID

	for batch := 0; batch < opts.MaxBatchesPerTick; batch++ {
		if err := ctx.Err(); err != nil {
			return run.snapshot(), err
		}

		calls, err := s.repo.ListDue(ctx, s.db, now, afterID, opts.BatchSize)
		if err != nil {
			err = db.Wrap("recurring.list_due", err)
			s.metrics.IncTickError(err)
			s.logger(ctx).Error("scheduler.tick.select_failed", zap.Error(err))
			return run.snapshot(), err
		}
		run.addDue(len(calls))

		g := new(errgroup.Group)
		g.SetLimit(opts.WorkerConcurrency)
		for _, call := range calls {
			afterID = call.ID
			if _, dup := seen[call.ID]; dup {
				continue
			}
			seen[call.ID] = struct{}{}
			if err := guard.EnsureCallDue(call, now); err != nil {
				if errors.Is(err, guard.ErrNoRetries) {
					s.retire(ctx, call)
				}
				continue
			}

			call := call
			g.Go(func() error {
				outcome := s.attempt(ctx, call, opts)
				run.record(outcome)
				s.metrics.IncAttempt(outcome)
				return nil
			})
		}
		_ = g.Wait()

		if len(calls) < opts.BatchSize {
			break
		}
	}

	s.metrics.SetCallsDue(run.snapshot().Due)
	return run.snapshot(), nil
}

// RunForever ticks until ctx is done. A tick that overruns the interval
// delays the next one rather than overlapping it.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.options().TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := time.Now()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("scheduler.tick.failed", zap.Error(err))
		}

		if current := s.options().TickInterval; current != interval {
			s.log.Info("scheduler.interval.changed", zap.Duration("from", interval), zap.Duration("to", current))
			interval = current
			ticker.Reset(interval)
		}
		nextRun = time.Now().Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// retire deactivates an active call that has no retries left without
// attempting it.
func (s *Scheduler) retire(ctx context.Context, call domain.RecurringCall) {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if _, err := s.repo.Deactivate(persistCtx, s.db, call.ID, s.clock.Now()); err != nil {
		err = db.Wrap("recurring.deactivate", err)
		s.metrics.IncTickError(err)
		s.logCallError(ctx, "scheduler.call.retire_failed", call.ID.String(), err)
		return
	}
	s.logger(ctx).Info("scheduler.call.retired", zap.String("call_id", call.ID.String()))
}

// attempt performs one HTTP exchange for call and persists the resulting
// transition. It returns the attempt outcome label.
func (s *Scheduler) attempt(ctx context.Context, call domain.RecurringCall, opts config.SchedulerOptions) (outcome string) {
	id := call.ID.String()
	err := safely(func() error {
		outcome = s.execute(ctx, call, opts)
		return nil
	})
	if err != nil {
		s.metrics.IncTickError(err)
		s.logCallError(ctx, "scheduler.call.panic", id, err)
		return obsmetrics.AttemptOutcomeError
	}
	return outcome
}

func (s *Scheduler) execute(ctx context.Context, call domain.RecurringCall, opts config.SchedulerOptions) string {
	log := s.logger(ctx).With(zap.String("call_id", call.ID.String()))

	callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
	defer cancel()

	req := outbound.Request{
		Method:          call.Method,
		URL:             call.Endpoint,
		Timeout:         opts.CallTimeout,
		RecurringCallID: &call.ID,
		InitiatorID:     call.OwnerID,
	}
	if call.HasBody() {
		req.Body = []byte(call.Payload)
	}

	start := time.Now()
	resp, callErr := s.caller.Do(callCtx, req)
	s.metrics.ObserveCallDuration(time.Since(start))

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info("scheduler.call.abandoned", zap.Error(callErr))
		return obsmetrics.AttemptOutcomeError
	}

	attempt := domain.Attempt{At: s.clock.Now()}
	if resp != nil {
		attempt.StatusCode = resp.StatusCode
	}
	switch {
	case callErr == nil:
	case db.IsPersistenceErr(callErr):
		// The exchange happened but was not logged; still advance the call so
		// it is not repeated.
		s.metrics.IncTickError(callErr)
		s.logCallError(ctx, "scheduler.call.record_failed", call.ID.String(), callErr)
		if resp == nil {
			attempt.Err = callErr
		}
	default:
		attempt.Err = callErr
	}

	next := domain.NextTransition(call, attempt)

	persistCtx, cancelPersist := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancelPersist()
	applied, err := s.repo.ApplyTransition(persistCtx, s.db, call.ID, call.Version, next, s.clock.Now())
	if err != nil {
		err = db.Wrap("recurring.apply_transition", err)
		s.metrics.IncTickError(err)
		s.logCallError(ctx, "scheduler.call.persist_failed", call.ID.String(), err)
		return obsmetrics.AttemptOutcomeError
	}
	if !applied {
		log.Info("scheduler.call.superseded", zap.Int64("version", call.Version))
		return obsmetrics.AttemptOutcomeConflict
	}

	outcome := outcomeOf(attempt, next)
	fields := []zap.Field{
		zap.String("outcome", outcome),
		zap.Int("status", attempt.StatusCode),
		zap.Int("retries_remaining", next.RetriesRemaining),
		zap.Bool("active", next.Active),
		zap.Time("next_call", next.NextCall),
	}
	if attempt.Succeeded() {
		log.Info("scheduler.call.ok", fields...)
	} else {
		log.Warn("scheduler.call.failed", append(fields, zap.Error(attempt.Err))...)
	}
	return outcome
}

func outcomeOf(a domain.Attempt, t domain.Transition) string {
	switch {
	case a.Succeeded() && t.Active:
		return obsmetrics.AttemptOutcomeSuccess
	case a.Succeeded():
		return obsmetrics.AttemptOutcomeCompleted
	case t.Exhausted():
		return obsmetrics.AttemptOutcomeExhausted
	default:
		return obsmetrics.AttemptOutcomeFailure
	}
}
