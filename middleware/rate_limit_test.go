package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/oweather-bot/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newRateLimitRouter(limiter *MockRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/v1/commands", CommandRateLimiter(limiter, 5, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func postCommand(r *gin.Engine, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", nil)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCommandRateLimiter_Allows(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("CheckLimit", mock.Anything, "http:203.0.113.7", 5, time.Minute).
		Return(true, time.Duration(0), nil).Once()

	w := postCommand(newRateLimitRouter(limiter), "203.0.113.7, 10.0.0.1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	limiter.AssertExpectations(t)
}

func TestCommandRateLimiter_Rejects(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("CheckLimit", mock.Anything, "http:203.0.113.7", 5, time.Minute).
		Return(false, 1500*time.Millisecond, nil).Once()

	w := postCommand(newRateLimitRouter(limiter), "203.0.113.7")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), string(apperrors.RateLimitError))
	assert.Contains(t, w.Body.String(), "retry after 2 seconds")
}

func TestCommandRateLimiter_FailsOpen(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("CheckLimit", mock.Anything, mock.AnythingOfType("string"), 5, time.Minute).
		Return(false, time.Duration(0), errors.New("redis down")).Once()

	w := postCommand(newRateLimitRouter(limiter), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
