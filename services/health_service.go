package services

import (
	"context"
	"time"

	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService aggregates the state of the settings store and Redis.
type HealthService struct {
	settings    Pinger
	redisClient redis.Cmdable
	version     string
	log         *zap.SugaredLogger
	startTime   time.Time
	timeout     time.Duration

	// apiKeyConfigured reports whether lookups can succeed at all.
	apiKeyConfigured func(ctx context.Context) bool
}

// NewHealthService creates the service. redisClient may be nil when Redis
// is not configured.
func NewHealthService(settings Pinger, redisClient redis.Cmdable, version string) *HealthService {
	return &HealthService{
		settings:    settings,
		redisClient: redisClient,
		version:     version,
		log:         logger.GetLogger().Named("health"),
		startTime:   time.Now(),
		timeout:     2 * time.Second,
	}
}

// SetAPIKeyCheck adds an "openweather" component that is DEGRADED while no
// valid API key is configured.
func (h *HealthService) SetAPIKeyCheck(check func(ctx context.Context) bool) {
	h.apiKeyConfigured = check
}

// CheckHealth pings every dependency. The settings store is required;
// Redis only backs rate limiting, so losing it degrades the service.
func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overall := types.HealthStatusUp

	settings := h.checkPinger(ctx, "settings", h.settings)
	components["settings"] = settings
	if settings.Status == types.HealthStatusDown {
		overall = types.HealthStatusDown
	}

	if h.redisClient != nil {
		r := h.checkPinger(ctx, "redis", redisPinger{h.redisClient})
		components["redis"] = r
		if r.Status == types.HealthStatusDown && overall == types.HealthStatusUp {
			r.Status = types.HealthStatusDegraded
			components["redis"] = r
			overall = types.HealthStatusDegraded
		}
	}

	if h.apiKeyConfigured != nil {
		ow := types.HealthComponent{Status: types.HealthStatusUp}
		if !h.apiKeyConfigured(ctx) {
			ow = types.HealthComponent{Status: types.HealthStatusDegraded, Details: "No valid API key configured"}
			if overall == types.HealthStatusUp {
				overall = types.HealthStatusDegraded
			}
		}
		components["openweather"] = ow
	}

	return types.HealthCheck{
		Status:     overall,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

// IsLive reports whether the process can serve requests at all.
func (h *HealthService) IsLive() bool {
	return true
}

// IsReady reports whether the settings store answers.
func (h *HealthService) IsReady(ctx context.Context) bool {
	return h.checkPinger(ctx, "settings", h.settings).Status == types.HealthStatusUp
}

func (h *HealthService) checkPinger(ctx context.Context, name string, p Pinger) types.HealthComponent {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		h.log.Errorw("Health check failed", "component", name, "error", err)
		return types.HealthComponent{
			Status:    types.HealthStatusDown,
			Details:   name + " connection failed",
			LatencyMS: latency,
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp, LatencyMS: latency}
}

type redisPinger struct {
	client redis.Cmdable
}

func (r redisPinger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
