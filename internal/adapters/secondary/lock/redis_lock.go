package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lorrc/ticket-workflow/internal/core/ports"
)

// DefaultKey is the Redis key guarding automation runs.
const DefaultKey = "ticket-workflow:automation:lock"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisConfig holds the connection settings for the lock store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisRunLock is a single-holder lock shared by every API instance. The TTL
// bounds how long a crashed holder can block later runs.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.RunLock = (*RedisRunLock)(nil)

// NewRedisRunLock creates a lock on key. An empty key uses DefaultKey.
func NewRedisRunLock(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *RedisRunLock {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRunLock{client: client, key: key, ttl: ttl, logger: logger}
}

// TryAcquire sets the key with a fresh token if it is absent.
func (l *RedisRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The run's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release run lock", "key", l.key, "error", err)
		}
	}
	return release, true, nil
}
