package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/config"
	"github.com/phrazzld/skillmatch-api/internal/lock"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "skillmatch:lock:"

// releaseScript deletes the key only when it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements lock.Locker with SET NX PX and token-checked release.
type Locker struct {
	client goredis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ lock.Locker = (*Locker)(nil)

// NewLocker wraps an existing client. A non-positive ttl is rejected.
func NewLocker(client goredis.UniversalClient, ttl time.Duration, logger *slog.Logger) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locker{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "redis_locker")),
	}, nil
}

// Connect parses cfg.URL, pings the server and returns a Locker.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Locker, *goredis.Client, error) {
	opt, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	l, err := NewLocker(client, time.Duration(cfg.LockTTLSeconds)*time.Second, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return l, client, nil
}

// TryAcquire implements lock.Locker.
// The lock expires after the configured TTL if the holder never releases it.
func (l *Locker) TryAcquire(ctx context.Context, name string) (lock.ReleaseFunc, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		log.Error("failed to acquire redis lock",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("acquire lock %q: %w", name, err)
	}
	if !ok {
		log.Debug("redis lock already held", slog.String("key", key))
		return nil, lock.ErrHeld
	}

	log.Debug("redis lock acquired", slog.String("key", key), slog.Duration("ttl", l.ttl))

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true

		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			log.Error("failed to release redis lock",
				slog.String("key", key),
				slog.String("error", err.Error()))
			return fmt.Errorf("release lock %q: %w", name, err)
		}
		if n == 0 {
			log.Warn("redis lock expired before release", slog.String("key", key))
		}
		return nil
	}, nil
}
