package scheduler

import (
	"context"

	"github.com/smallbiznis/followup/internal/config"
	"github.com/smallbiznis/followup/internal/outbound"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(config.NewSchedulerConfigHolder),
	fx.Provide(ProvideTickLocker),
	fx.Provide(NewCaller),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// NewCaller exposes the recording outbound client as the scheduler's Caller.
func NewCaller(c *outbound.Client) Caller { return c }

func NewScheduler(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, sched *Scheduler) {
	if !cfg.SchedulerEnabled {
		log.Info("scheduler.disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				sched.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
