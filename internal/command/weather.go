package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/pkg/openweather"
	"github.com/NomadCrew/oweather-bot/pkg/weatherfmt"
	"go.uber.org/zap"
)

// APIKeySetting holds the OpenWeatherMap API key.
const APIKeySetting = "oweather_api_key"

const (
	MsgNoAPIKey     = "There is either no API key or an invalid one was set."
	MsgUnknownError = "Unknown error while looking up the weather."
)

// APIKeyDefinition describes the API key setting. Only mods may change it.
func APIKeyDefinition() settings.Definition {
	return settings.Definition{
		Name:        APIKeySetting,
		Description: "The OpenWeatherMap API key",
		AccessLevel: settings.AccessMod,
		Sensitive:   true,
		Validate: func(value string) error {
			if value != "" && len(value) != openweather.APIKeyLength {
				return fmt.Errorf("API key must be %d characters", openweather.APIKeyLength)
			}
			return nil
		},
	}
}

// SettingsReader is the part of settings.Manager the commands need.
type SettingsReader interface {
	Get(ctx context.Context, name string) (string, error)
}

// WeatherCommands implements the oweather and forecast commands.
type WeatherCommands struct {
	settings  SettingsReader
	fetcher   openweather.Fetcher
	formatter *weatherfmt.Formatter
	renderer  text.Renderer
	log       *zap.SugaredLogger
	metrics   *commandMetrics
}

func NewWeatherCommands(store SettingsReader, fetcher openweather.Fetcher, formatter *weatherfmt.Formatter, renderer text.Renderer) *WeatherCommands {
	return &WeatherCommands{
		settings:  store,
		fetcher:   fetcher,
		formatter: formatter,
		renderer:  renderer,
		log:       logger.GetLogger().Named("weather"),
		metrics:   newCommandMetrics(),
	}
}

// Register attaches both handlers to d.
func (w *WeatherCommands) Register(d *Dispatcher) error {
	if err := d.Register(CommandOWeather, w.OWeather); err != nil {
		return err
	}
	return d.Register(CommandForecast, w.Forecast)
}

// OWeather replies with a one-line summary of the current weather and a
// details blob.
func (w *WeatherCommands) OWeather(ctx context.Context, req Request, reply Replier) error {
	location := req.Args[0]
	apiKey, ok := w.apiKey(ctx)
	if !ok {
		w.metrics.observe(CommandOWeather, outcomeNoAPIKey)
		return reply.Reply(ctx, MsgNoAPIKey)
	}

	res, err := await(ctx, openweather.FetchWeather(ctx, w.fetcher, apiKey, location))
	if err != nil {
		return w.replyError(ctx, CommandOWeather, location, err, reply)
	}
	weather, err := openweather.DecodeCurrent(res.Body)
	if err != nil {
		return w.replyError(ctx, CommandOWeather, location, err, reply)
	}

	w.metrics.observe(CommandOWeather, outcomeOK)
	return reply.Reply(ctx, w.formatter.CurrentSummary(weather))
}

// Forecast replies with the multi-day forecast blob.
func (w *WeatherCommands) Forecast(ctx context.Context, req Request, reply Replier) error {
	location := req.Args[0]
	apiKey, ok := w.apiKey(ctx)
	if !ok {
		w.metrics.observe(CommandForecast, outcomeNoAPIKey)
		return reply.Reply(ctx, MsgNoAPIKey)
	}

	res, err := await(ctx, openweather.FetchForecast(ctx, w.fetcher, apiKey, location))
	if err != nil {
		return w.replyError(ctx, CommandForecast, location, err, reply)
	}
	forecast, err := openweather.DecodeForecast(res.Body)
	if err != nil {
		return w.replyError(ctx, CommandForecast, location, err, reply)
	}

	w.metrics.observe(CommandForecast, outcomeOK)
	return reply.Reply(ctx, w.formatter.ForecastReply(forecast))
}

// apiKey reads the configured key. Anything but exactly APIKeyLength
// characters counts as unset, and no request is made.
func (w *WeatherCommands) apiKey(ctx context.Context) (string, bool) {
	key, err := w.settings.Get(ctx, APIKeySetting)
	if err != nil {
		w.log.Errorw("Failed to read API key setting", "error", err)
		return "", false
	}
	return key, len(key) == openweather.APIKeyLength
}

func await(ctx context.Context, ch <-chan openweather.FetchResult) (*openweather.RawResponse, error) {
	select {
	case res := <-ch:
		return res.Response, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", openweather.ErrTransport, ctx.Err())
	}
}

func (w *WeatherCommands) replyError(ctx context.Context, command, location string, err error, reply Replier) error {
	var perr *openweather.ProviderError
	var msg, outcome string
	switch {
	case errors.As(err, &perr) && perr.HasMessage:
		outcome = outcomeProviderError
		msg = fmt.Sprintf("Error looking up the weather: %s.", w.renderer.Highlight(perr.Message))
	case errors.Is(err, openweather.ErrLocationNotFound):
		outcome = outcomeNotFound
		msg = fmt.Sprintf("Location %s could not be found in the weather database.", w.renderer.Highlight(location))
	default:
		outcome = outcomeUnknownError
		msg = MsgUnknownError
	}

	w.metrics.observe(command, outcome)
	w.log.Infow("Weather lookup failed",
		"command", command,
		"location", location,
		"outcome", outcome,
		"error", err)
	return reply.Reply(ctx, msg)
}
