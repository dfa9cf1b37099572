package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be asked.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoRedis = errors.New("redis client is nil")

// rateLimitBypassed reports whether the environment disables throttling.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

func rateLimitKey(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}

// CheckRateLimit counts one hit for id against resource and reports whether
// it is still within limit hits per window. The window starts at the first hit.
// Throttling is disabled when APP_ENV is unset, "test", "development" or "stress".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}

	key := rateLimitKey(resource, id)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// RateLimit throttles form submissions to limit per window, keyed by the
// signed-in user or else the client IP. It fails open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit FailPolicy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Only form submissions are counted; rendering the form is free.
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		ctx := c.UserContext()
		allowed, err := CheckRateLimit(ctx, rdb, resource, id, limit, window)
		if err != nil {
			Logger.WarnContext(ctx, "rate limit check failed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			if policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			if ttl, err := rdb.TTL(ctx, rateLimitKey(resource, id)).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Seconds()+0.5)))
			}
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    models.CodeRateLimited,
				Message: "Too many attempts, please try again later.",
			})
		}
		return c.Next()
	}
}
