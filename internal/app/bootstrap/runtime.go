package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/elite-waitlist/internal/config"
	"github.com/wolfman30/elite-waitlist/internal/countdown"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

// Countdown store backends accepted by COUNTDOWN_STORE.
const (
	StoreAuto     = "auto"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

// ErrUnknownStore is returned for an unrecognised COUNTDOWN_STORE value.
var ErrUnknownStore = errors.New("bootstrap: unknown countdown store")

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL or returns nil when unset or
// unreachable.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres config invalid", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not available", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// CountdownBackends are the connections a countdown store may use. Either may
// be nil.
type CountdownBackends struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	StateDir string
}

// BuildCountdownStore picks the persistence for the countdown. "auto" prefers
// Redis, then Postgres, then the state directory, and finally memory.
func BuildCountdownStore(kind string, backends CountdownBackends, logger *logging.Logger) (countdown.Store, string, error) {
	if logger == nil {
		logger = logging.Default()
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = StoreAuto
	}

	switch kind {
	case StoreRedis:
		if backends.Redis == nil {
			return nil, "", fmt.Errorf("bootstrap: countdown store %q requires REDIS_ADDR", kind)
		}
		return countdown.NewRedisStore(backends.Redis), StoreRedis, nil
	case StorePostgres:
		if backends.Postgres == nil {
			return nil, "", fmt.Errorf("bootstrap: countdown store %q requires DATABASE_URL", kind)
		}
		return countdown.NewPostgresStore(backends.Postgres), StorePostgres, nil
	case StoreFile:
		store, err := buildFileStore(backends.StateDir)
		if err != nil {
			return nil, "", err
		}
		return store, StoreFile, nil
	case StoreMemory:
		logger.Warn("countdown is not persisted; it restarts from the default on every boot")
		return countdown.NewMemoryStore(), StoreMemory, nil
	case StoreAuto:
		switch {
		case backends.Redis != nil:
			return countdown.NewRedisStore(backends.Redis), StoreRedis, nil
		case backends.Postgres != nil:
			return countdown.NewPostgresStore(backends.Postgres), StorePostgres, nil
		case backends.StateDir != "":
			store, err := buildFileStore(backends.StateDir)
			if err != nil {
				return nil, "", err
			}
			return store, StoreFile, nil
		}
		logger.Warn("no countdown backend configured; falling back to memory")
		return countdown.NewMemoryStore(), StoreMemory, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownStore, kind)
	}
}

func buildFileStore(dir string) (*countdown.FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("bootstrap: file countdown store requires a state directory")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bootstrap: create state dir: %w", err)
	}
	return countdown.NewFileStore(dir), nil
}
