package cli

import (
	"context"

	"github.com/smallbiznis/followup/internal/app"
	"github.com/smallbiznis/followup/internal/config"
	"github.com/smallbiznis/followup/internal/facility/registry"
	obslogger "github.com/smallbiznis/followup/internal/observability/logger"
	recurringdomain "github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/smallbiznis/followup/internal/scheduler"
	"go.uber.org/fx"
)

// LoadApp assembles the daemon's modules without the HTTP server and without
// starting the scheduler loop.
func LoadApp(ctx context.Context) (*Deps, func(), error) {
	deps := &Deps{}
	fxApp := fx.New(
		app.Core,
		fx.Provide(config.NewSchedulerConfigHolder),
		fx.Provide(scheduler.ProvideTickLocker),
		fx.Provide(scheduler.NewCaller),
		fx.Provide(scheduler.New),
		fx.NopLogger,
		// stdout carries command output.
		fx.Decorate(func(cfg obslogger.Config) obslogger.Config {
			cfg.Output = "stderr"
			return cfg
		}),
		fx.Invoke(func(calls recurringdomain.Service, s *scheduler.Scheduler, r *registry.Registry) {
			deps.Recurring = calls
			deps.Scheduler = s
			deps.Facilities = r
		}),
	)
	if err := fxApp.Err(); err != nil {
		return nil, nil, err
	}
	if err := fxApp.Start(ctx); err != nil {
		return nil, nil, err
	}
	release := func() {
		_ = fxApp.Stop(context.Background())
	}
	return deps, release, nil
}
