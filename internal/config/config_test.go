package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_PATH", "/tmp/followup-test.db")
	t.Setenv("SCHEDULER_ENABLED", "off")
	t.Setenv("SCHEDULER_TICK_LOCK_TTL", "45s")
	t.Setenv("NODE_ID", "7")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DB.Type)
	assert.Equal(t, "/tmp/followup-test.db", cfg.DB.Path)
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 45*time.Second, cfg.TickLockTTL)
	assert.Equal(t, int64(7), cfg.NodeID)
}

func TestLoadReadsObservabilitySettings(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTLP_PROTOCOL", "GRPC")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	cfg := Load()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "grpc", cfg.OTLPProtocol)
	assert.Equal(t, 0.5, cfg.OTelSamplingRatio)

	t.Setenv("OTEL_ENABLED", "no")
	assert.False(t, Load().OTelEnabled)
}

func TestGetenvFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FOLLOWUP_TEST_INT", "nope")
	t.Setenv("FOLLOWUP_TEST_BOOL", "maybe")
	t.Setenv("FOLLOWUP_TEST_DURATION", "soon")

	assert.Equal(t, int64(3), getenvInt64("FOLLOWUP_TEST_INT", 3))
	assert.True(t, getenvBool("FOLLOWUP_TEST_BOOL", true))
	assert.Equal(t, time.Second, getenvDuration("FOLLOWUP_TEST_DURATION", time.Second))
}

func TestSchedulerConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yml")
	body := []byte("scheduler:\n  tick_interval: 5s\n  worker_concurrency: 3\n  call_timeout: 2s\n  batch_size: 10\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	holder, err := NewSchedulerConfigHolder(Config{SchedulerConfigPath: path}, zaptest.NewLogger(t))
	require.NoError(t, err)

	opts := holder.Get()
	assert.Equal(t, 5*time.Second, opts.TickInterval)
	assert.Equal(t, 3, opts.WorkerConcurrency)
	assert.Equal(t, 2*time.Second, opts.CallTimeout)
	assert.Equal(t, 10, opts.BatchSize)
	assert.Equal(t, DefaultSchedulerOptions().MaxBatchesPerTick, opts.MaxBatchesPerTick)
}

func TestSchedulerConfigHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  worker_concurrency: 0\n"), 0o600))

	_, err := NewSchedulerConfigHolder(Config{SchedulerConfigPath: path}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestStaticSchedulerConfigHolder(t *testing.T) {
	_, err := NewStaticSchedulerConfigHolder(SchedulerOptions{})
	require.Error(t, err)

	holder, err := NewStaticSchedulerConfigHolder(DefaultSchedulerOptions())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedulerOptions(), holder.Get())
}
