package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiterInterface is the fixed-window limiter used for chat commands
// and the HTTP command endpoint.
type RateLimiterInterface interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

const defaultRateLimitPrefix = "oweather:rate_limit:"

// RateLimitService counts hits per key in Redis. The window starts with
// the first hit and is not extended by later ones.
type RateLimitService struct {
	redis     redis.Cmdable
	keyPrefix string
}

var _ RateLimiterInterface = (*RateLimitService)(nil)

func NewRateLimitService(client redis.Cmdable) *RateLimitService {
	return &RateLimitService{
		redis:     client,
		keyPrefix: defaultRateLimitPrefix,
	}
}

// CheckLimit records a hit for key and reports whether it is within limit.
// When it is not, the second value is the time left in the window.
func (s *RateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	rKey := s.keyPrefix + key

	pipe := s.redis.Pipeline()
	incr := pipe.Incr(ctx, rKey)
	pipe.ExpireNX(ctx, rKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := s.redis.TTL(ctx, rKey).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl <= 0 {
		// The key expired between the two calls or lost its TTL.
		ttl = window
	}
	return false, ttl, nil
}
