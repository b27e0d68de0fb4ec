package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Key pattern: ratelimit:{user}:{event} - window TTL, fixed window counter.

type RateLimitConfig struct {
	Limit  int           // Max events per window, per user and event name
	Window time.Duration // Counter lifetime
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  30,
		Window: 60 * time.Second,
	}
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// EventLimiter caps how many inbound socket events a user may send per window.
type EventLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

func NewEventLimiter(client *goredis.Client, config RateLimitConfig) *EventLimiter {
	return &EventLimiter{
		client: client,
		config: config,
	}
}

// INCR first so concurrent callers never both see the last free slot.
var fixedWindowScript = goredis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[2])
	end
	local ttl = redis.call('TTL', KEYS[1])
	if ttl < 0 then
		ttl = tonumber(ARGV[2])
	end
	local limit = tonumber(ARGV[1])
	if current <= limit then
		return {1, limit - current, ttl}
	end
	return {0, 0, ttl}
`)

func (l *EventLimiter) Allow(ctx context.Context, user, event string) (bool, error) {
	res, err := l.Check(ctx, user, event)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *EventLimiter) Check(ctx context.Context, user, event string) (*RateLimitResult, error) {
	window := int(l.config.Window.Seconds())
	if window < 1 {
		window = 1
	}
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{limitKey(user, event)}, l.config.Limit, window).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	return parseResult(raw, l.config.Limit)
}

func (l *EventLimiter) Reset(ctx context.Context, user, event string) error {
	return l.client.Del(ctx, limitKey(user, event)).Err()
}

func limitKey(user, event string) string {
	return fmt.Sprintf("ratelimit:%s:%s", user, event)
}

func parseResult(raw interface{}, limit int) (*RateLimitResult, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	nums := make([]int64, 3)
	for i := range nums {
		n, ok := values[i].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected rate limit result element %d: %T", i, values[i])
		}
		nums[i] = n
	}
	return &RateLimitResult{
		Allowed:   nums[0] == 1,
		Remaining: int(nums[1]),
		ResetIn:   time.Duration(nums[2]) * time.Second,
		Limit:     limit,
	}, nil
}
