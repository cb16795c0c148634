// Package router wires the HTTP surface of the bot.
package router

import (
	"github.com/NomadCrew/oweather-bot/config"
	"github.com/NomadCrew/oweather-bot/handlers"
	"github.com/NomadCrew/oweather-bot/internal/websocket"
	"github.com/NomadCrew/oweather-bot/middleware"
	"github.com/NomadCrew/oweather-bot/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config          *config.Config
	HealthHandler   *handlers.HealthHandler
	CommandHandler  *handlers.CommandHandler
	SettingsHandler *handlers.SettingsHandler
	WSHandler       *websocket.Handler
	// JWTValidator is nil when no JWT secret is configured; the settings
	// routes are not mounted then.
	JWTValidator middleware.Validator
	// RateLimiter is nil when Redis is disabled.
	RateLimiter services.RateLimiterInterface
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware(&deps.Config.Server))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Long-lived, so kept out of the traced group.
	if deps.WSHandler != nil {
		r.GET("/v1/ws", deps.WSHandler.HandleWebSocket)
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.TracingMiddleware())
	{
		if deps.RateLimiter != nil {
			v1.POST("/commands",
				middleware.CommandRateLimiter(deps.RateLimiter,
					deps.Config.RateLimit.CommandsPerWindow,
					deps.Config.RateLimit.Window()),
				deps.CommandHandler.HandleCommand)
		} else {
			v1.POST("/commands", deps.CommandHandler.HandleCommand)
		}

		if deps.JWTValidator != nil {
			settingsRoutes := v1.Group("/settings")
			settingsRoutes.Use(middleware.AuthMiddleware(deps.JWTValidator))
			{
				settingsRoutes.GET("", deps.SettingsHandler.ListSettings)
				settingsRoutes.GET("/:name", deps.SettingsHandler.GetSetting)
				settingsRoutes.PUT("/:name", deps.SettingsHandler.UpdateSetting)
			}
		}
	}

	return r
}
