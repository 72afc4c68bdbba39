package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/followup/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	tickLockKey = "followup:scheduler:tick"

	lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`
)

// TickLocker keeps scheduler replicas from draining the same batch at the
// same time. Row updates are guarded by version checks, so losing the lock
// only costs duplicate work.
type TickLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewTickLocker(client *redis.Client, ttl time.Duration) *TickLocker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TickLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

func (l *TickLocker) TryLock(ctx context.Context) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, tickLockKey, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *TickLocker) Release(ctx context.Context, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{tickLockKey}, token).Err()
}

type LockerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// ProvideTickLocker returns nil when REDIS_URL is unset.
func ProvideTickLocker(p LockerParams) (*TickLocker, error) {
	if p.Config.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(p.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				p.Log.Warn("scheduler.lock.unavailable", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewTickLocker(client, p.Config.TickLockTTL), nil
}
