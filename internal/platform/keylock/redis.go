package keylock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/video-insight-backend/internal/platform/logger"
)

var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	Lease        time.Duration
	PollInterval time.Duration
}

// Redis is a lease-based Locker shared across processes. A held lease is
// extended in the background until unlock; if the holder dies the lease
// expires on its own.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	lease  time.Duration
	poll   time.Duration
	log    *logger.Logger
}

func NewRedis(log *logger.Logger, cfg RedisConfig) (*Redis, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedis(log, rdb, cfg), nil
}

func newRedis(log *logger.Logger, rdb *goredis.Client, cfg RedisConfig) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "insight:lock:"
	}
	lease := cfg.Lease
	if lease <= 0 {
		lease = 2 * time.Minute
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Redis{
		rdb:    rdb,
		prefix: prefix,
		lease:  lease,
		poll:   poll,
		log:    log.With("service", "RedisKeyLock"),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.lease).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(k, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, r.rdb, []string{k}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
				r.log.Warn("Failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}

func (r *Redis) keepAlive(k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.lease / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			n, err := extendScript.Run(ctx, r.rdb, []string{k}, token, r.lease.Milliseconds()).Int64()
			cancel()
			if err != nil {
				r.log.Warn("Failed to extend lock lease", "key", k, "error", err)
				continue
			}
			if n == 0 {
				r.log.Warn("Lock lease lost", "key", k)
				return
			}
		}
	}
}

func (r *Redis) Close() error { return r.rdb.Close() }
