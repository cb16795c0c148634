package middleware

import (
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/oweather-bot/errors"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/services"
	"github.com/gin-gonic/gin"
)

// CommandRateLimiter limits requests per client IP with a fixed window kept in
// Redis. Limiter failures let the request through.
func CommandRateLimiter(limiter services.RateLimiterInterface, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "http:" + getClientIP(c)

		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed, allowing request",
				"key", key,
				"error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(seconds))

			_ = c.Error(apperrors.RateLimitExceeded("Too many requests. Please try again later.", seconds))
			c.Abort()
			return
		}

		c.Next()
	}
}

// getClientIP extracts the client IP, preferring the first X-Forwarded-For
// hop and then X-Real-IP.
func getClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}

	return c.ClientIP()
}
