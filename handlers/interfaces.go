package handlers

import (
	"context"

	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/NomadCrew/oweather-bot/types"
)

// CommandDispatcher is implemented by *command.Dispatcher.
type CommandDispatcher interface {
	Match(message string) (command.Spec, []string, bool)
	Handle(ctx context.Context, sender, message string, reply command.Replier) (bool, error)
}

// SettingsManager is implemented by *settings.Manager.
type SettingsManager interface {
	Definition(name string) (settings.Definition, bool)
	Definitions() []settings.Definition
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Display(def settings.Definition, value string) string
}

// HealthChecker is implemented by *services.HealthService.
type HealthChecker interface {
	CheckHealth(ctx context.Context) types.HealthCheck
	IsLive() bool
	IsReady(ctx context.Context) bool
}
