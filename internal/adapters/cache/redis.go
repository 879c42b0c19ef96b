package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/flowsense/internal/domain/model"
)

// Redis defaults.
const (
	defaultKeyPrefix   = "flowsense:report:"
	defaultPingTimeout = 5 * time.Second
)

// RedisConfig configures the Redis-backed cache.
type RedisConfig struct {
	Address  string // e.g. "localhost:6379"
	Password string
	DB       int

	KeyPrefix string // default "flowsense:report:"

	// FallbackOnError treats Redis failures as misses and swallows write
	// errors, so the engine keeps serving from recomputation.
	FallbackOnError bool
}

// Redis stores reports as JSON with a per-key TTL, shared across replicas.
type Redis struct {
	counters
	client          *redis.Client
	keyPrefix       string
	fallbackOnError bool
	ownsClient      bool
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, ErrMissingAddress
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRedisConnection, err)
	}

	r := NewRedisWithClient(client, cfg)
	r.ownsClient = true
	return r, nil
}

// NewRedisWithClient wraps an existing client. The caller keeps ownership.
func NewRedisWithClient(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return &Redis{
		counters:        counters{backend: BackendRedis},
		client:          client,
		keyPrefix:       cfg.KeyPrefix,
		fallbackOnError: cfg.FallbackOnError,
	}
}

func (r *Redis) fullKey(key Key) string {
	return r.keyPrefix + key.String()
}

func (r *Redis) Get(ctx context.Context, key Key) (model.InsightsReport, bool) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.miss()
		} else {
			r.fail()
		}
		return model.InsightsReport{}, false
	}

	var report model.InsightsReport
	if err := json.Unmarshal(data, &report); err != nil {
		r.fail()
		return model.InsightsReport{}, false
	}
	r.hit()
	return report, true
}

func (r *Redis) Set(ctx context.Context, key Key, report model.InsightsReport, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := r.client.Set(ctx, r.fullKey(key), data, ttl).Err(); err != nil {
		r.fail()
		if r.fallbackOnError {
			return nil
		}
		return fmt.Errorf("redis set: %w", err)
	}
	r.sets.Add(1)
	return nil
}

func (r *Redis) Close() error {
	if !r.ownsClient {
		return nil
	}
	return r.client.Close()
}
