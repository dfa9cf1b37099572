// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"quill/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

func redisOptions(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	return redis.ParseURL(addr)
}

// InitRedis connects to addr, either host:port or a redis:// URL. When the
// server does not answer within five seconds the client stays nil and the
// blog runs uncached.
func InitRedis(addr string) {
	client = nil
	opts, err := redisOptions(addr)
	if err != nil {
		log.Printf("cache disabled: bad REDIS_URL %q: %v", addr, err)
		return
	}

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("cache disabled: redis at %s unreachable: %v", opts.Addr, err)
		_ = c.Close()
		return
	}

	c.AddHook(metricsHook{})
	client = c
	log.Printf("cache enabled: redis at %s", opts.Addr)
}

// SetClient replaces the package client. Tests use it to point the cache at miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(metricsHook{})
	}
	client = c
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis client if one is open.
func Close() {
	if client != nil {
		_ = client.Close()
		client = nil
	}
}

// Aside implements the cache-aside pattern. On a hit the cached JSON is decoded
// into dest; on a miss (or with no Redis) fetch fills dest and the result is
// stored for ttl. Redis failures never fail the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
	}

	if err := fetch(); err != nil {
		return err
	}

	if payload, err := json.Marshal(dest); err == nil {
		client.Set(ctx, key, payload, ttl)
	}
	return nil
}
