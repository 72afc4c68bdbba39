package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SchedulerOptions tunes the recurring call loop.
type SchedulerOptions struct {
	TickInterval      time.Duration
	WorkerConcurrency int
	CallTimeout       time.Duration
	BatchSize         int
	// MaxBatchesPerTick bounds the drain loop so one tick cannot run forever.
	MaxBatchesPerTick int
}

func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		TickInterval:      time.Minute,
		WorkerConcurrency: 8,
		CallTimeout:       30 * time.Second,
		BatchSize:         100,
		MaxBatchesPerTick: 50,
	}
}

type SchedulerConfigHolder struct {
	current atomic.Value // holds SchedulerOptions
}

// NewStaticSchedulerConfigHolder returns a holder that never reloads.
func NewStaticSchedulerConfigHolder(opts SchedulerOptions) (*SchedulerConfigHolder, error) {
	if err := ValidateSchedulerOptions(opts); err != nil {
		return nil, err
	}
	holder := &SchedulerConfigHolder{}
	holder.current.Store(opts)
	return holder, nil
}

func NewSchedulerConfigHolder(cfg Config, log *zap.Logger) (*SchedulerConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scheduler-config")

	v := viper.New()
	if cfg.SchedulerConfigPath != "" {
		v.SetConfigFile(cfg.SchedulerConfigPath)
	} else {
		v.SetConfigName("scheduler")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/followup")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FOLLOWUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSchedulerOptions()
	v.SetDefault("scheduler.tick_interval", defaults.TickInterval)
	v.SetDefault("scheduler.worker_concurrency", defaults.WorkerConcurrency)
	v.SetDefault("scheduler.call_timeout", defaults.CallTimeout)
	v.SetDefault("scheduler.batch_size", defaults.BatchSize)
	v.SetDefault("scheduler.max_batches_per_tick", defaults.MaxBatchesPerTick)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	opts, err := unmarshalSchedulerOptions(v)
	if err != nil {
		return nil, err
	}

	holder := &SchedulerConfigHolder{}
	holder.current.Store(opts)

	if !fileLoaded {
		log.Info("scheduler.config.defaults", zap.Any("options", opts))
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalSchedulerOptions(v)
		if err != nil {
			log.Warn("scheduler.config.reload_ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("scheduler.config.reloaded", zap.String("file", e.Name), zap.Any("options", updated))
	})

	return holder, nil
}

func (h *SchedulerConfigHolder) Get() SchedulerOptions {
	return h.current.Load().(SchedulerOptions)
}

// unmarshalSchedulerOptions reads key by key; UnmarshalKey on the parent
// would skip the defaults for keys missing from the file.
func unmarshalSchedulerOptions(v *viper.Viper) (SchedulerOptions, error) {
	opts := SchedulerOptions{
		TickInterval:      v.GetDuration("scheduler.tick_interval"),
		WorkerConcurrency: v.GetInt("scheduler.worker_concurrency"),
		CallTimeout:       v.GetDuration("scheduler.call_timeout"),
		BatchSize:         v.GetInt("scheduler.batch_size"),
		MaxBatchesPerTick: v.GetInt("scheduler.max_batches_per_tick"),
	}
	if err := ValidateSchedulerOptions(opts); err != nil {
		return SchedulerOptions{}, err
	}
	return opts, nil
}

func ValidateSchedulerOptions(opts SchedulerOptions) error {
	if opts.TickInterval <= 0 {
		return errors.New("scheduler.tick_interval must be positive")
	}
	if opts.WorkerConcurrency <= 0 {
		return errors.New("scheduler.worker_concurrency must be positive")
	}
	if opts.CallTimeout <= 0 {
		return errors.New("scheduler.call_timeout must be positive")
	}
	if opts.BatchSize <= 0 {
		return errors.New("scheduler.batch_size must be positive")
	}
	if opts.MaxBatchesPerTick <= 0 {
		return errors.New("scheduler.max_batches_per_tick must be positive")
	}
	return nil
}
