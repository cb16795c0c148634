package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NomadCrew/oweather-bot/config"
	"github.com/NomadCrew/oweather-bot/handlers"
	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/internal/tracing"
	"github.com/NomadCrew/oweather-bot/internal/websocket"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/middleware"
	"github.com/NomadCrew/oweather-bot/pkg/openweather"
	"github.com/NomadCrew/oweather-bot/pkg/weatherfmt"
	"github.com/NomadCrew/oweather-bot/router"
	"github.com/NomadCrew/oweather-bot/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	templateEnv := flag.String("config-template", "", "Print a YAML config template for the given environment (development, production) and exit")
	flag.Parse()
	if *templateEnv != "" {
		out, err := config.ConfigTemplate(config.Environment(*templateEnv))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		_, _ = os.Stdout.Write(out)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to read .env: " + err.Error())
	}

	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfigForEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Tracing, cfg.Server.Version)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	// Redis is optional; without it commands are not throttled.
	var redisClient *redis.Client
	var redisCmd redis.Cmdable
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(config.RedisOptions(&cfg.Redis))
		if err := config.WaitForRedis(ctx, redisClient, 5, 2*time.Second); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		redisCmd = redisClient
		log.Infow("Connected to Redis", "address", cfg.Redis.Address)
	}

	store, err := settings.Open(ctx, cfg, redisCmd)
	if err != nil {
		log.Fatalf("Failed to open settings store: %v", err)
	}
	manager := settings.NewManager(store)
	if err := manager.Register(command.APIKeyDefinition()); err != nil {
		log.Fatalf("Failed to register settings: %v", err)
	}
	if cfg.OpenWeather.APIKey != "" {
		seeded, err := manager.Seed(ctx, command.APIKeySetting, cfg.OpenWeather.APIKey)
		if err != nil {
			log.Fatalf("Failed to seed API key: %v", err)
		}
		if seeded {
			log.Info("Seeded OpenWeatherMap API key from environment")
		}
	}

	renderer := text.AOML{}
	client := openweather.NewClient(
		openweather.WithBaseURL(cfg.OpenWeather.BaseURL),
		openweather.WithTimeout(cfg.OpenWeather.Timeout()),
		openweather.WithRateLimit(cfg.OpenWeather.RequestsPerMinute, cfg.OpenWeather.Burst),
	)
	formatter := weatherfmt.NewFormatter(renderer, cfg.Server.BotName)

	specs, err := command.DefaultSpecs()
	if err != nil {
		log.Fatalf("Failed to load command definitions: %v", err)
	}

	var dispatcherOpts []command.DispatcherOption
	var rateLimiter services.RateLimiterInterface
	if redisClient != nil {
		limiter := services.NewRateLimitService(redisClient)
		rateLimiter = limiter
		dispatcherOpts = append(dispatcherOpts,
			command.WithRateLimiter(limiter, cfg.RateLimit.CommandsPerWindow, cfg.RateLimit.Window()))
	}

	dispatcher, err := command.NewDispatcher(specs, renderer, cfg.Server.BotName, dispatcherOpts...)
	if err != nil {
		log.Fatalf("Failed to create command dispatcher: %v", err)
	}
	if err := command.NewWeatherCommands(manager, client, formatter, renderer).Register(dispatcher); err != nil {
		log.Fatalf("Failed to register weather commands: %v", err)
	}

	workerPool := services.NewCommandWorkerPool(cfg.WorkerPool)
	workerPool.Start()

	hub := websocket.NewHub()
	wsHandler := websocket.NewHandler(hub, dispatcher, workerPool, &cfg.Server)

	healthService := services.NewHealthService(manager, redisCmd, cfg.Server.Version)
	healthService.SetAPIKeyCheck(func(ctx context.Context) bool {
		key, err := manager.Get(ctx, command.APIKeySetting)
		return err == nil && key != ""
	})

	deps := router.Dependencies{
		Config:          cfg,
		HealthHandler:   handlers.NewHealthHandler(healthService),
		CommandHandler:  handlers.NewCommandHandler(dispatcher),
		SettingsHandler: handlers.NewSettingsHandler(manager),
		WSHandler:       wsHandler,
	}
	if rateLimiter != nil {
		deps.RateLimiter = rateLimiter
	}
	if cfg.Server.JwtSecretKey != "" {
		validator, err := middleware.NewJWTValidator(cfg.Server.JwtSecretKey)
		if err != nil {
			log.Fatalf("Failed to create JWT validator: %v", err)
		}
		deps.JWTValidator = validator
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server",
			"port", cfg.Server.Port,
			"bot_name", cfg.Server.BotName,
			"version", cfg.Server.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	// Hijacked websocket connections are not closed by srv.Shutdown.
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Errorw("WebSocket hub shutdown failed", "error", err)
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Errorw("Tracing shutdown failed", "error", err)
	}
	if err := manager.Close(); err != nil {
		log.Errorw("Settings store close failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Errorw("Redis close failed", "error", err)
		}
	}

	log.Info("Server stopped")
}
