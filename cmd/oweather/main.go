// Command oweather looks up the weather once and prints the bot's reply as
// plain text.
//
//	oweather [-forecast] [-key KEY] <location>
//
// The key defaults to OWEATHER_API_KEY.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/internal/command"
	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/logger"
	"github.com/NomadCrew/oweather-bot/pkg/openweather"
	"github.com/NomadCrew/oweather-bot/pkg/weatherfmt"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// staticKey serves the API key given on the command line.
type staticKey string

func (k staticKey) Get(_ context.Context, name string) (string, error) {
	if name != command.APIKeySetting {
		return "", fmt.Errorf("unknown setting %q", name)
	}
	return string(k), nil
}

func main() {
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "warn")
	}
	logger.InitLogger()
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("oweather", flag.ContinueOnError)
	fs.SetOutput(stderr)
	forecast := fs.Bool("forecast", false, "Show the 3-day forecast instead of current conditions")
	key := fs.String("key", os.Getenv("OWEATHER_API_KEY"), "OpenWeatherMap API key")
	baseURL := fs.String("base-url", openweather.DefaultBaseURL, "OpenWeatherMap API base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "Request timeout")
	botName := fs.String("bot-name", "Weatherbot", "Bot name used in chat command links")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: oweather [-forecast] [-key KEY] <location>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	location := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if location == "" {
		fs.Usage()
		return exitUsage
	}
	if len(*key) != openweather.APIKeyLength {
		fmt.Fprintf(stderr, "oweather: API key must be %d characters (use -key or OWEATHER_API_KEY)\n", openweather.APIKeyLength)
		return exitUsage
	}

	renderer := text.Plain{}
	client := openweather.NewClient(
		openweather.WithBaseURL(*baseURL),
		openweather.WithTimeout(*timeout),
	)
	weather := command.NewWeatherCommands(staticKey(*key), client,
		weatherfmt.NewFormatter(renderer, *botName), renderer)

	handler := weather.OWeather
	if *forecast {
		handler = weather.Forecast
	}

	var reply command.BufferReplier
	if err := handler(ctx, command.Request{Sender: "cli", Message: location, Args: []string{location}}, &reply); err != nil {
		fmt.Fprintf(stderr, "oweather: %v\n", err)
		return exitError
	}

	out := reply.Text()
	fmt.Fprintln(stdout, out)
	if out == command.MsgUnknownError || out == command.MsgNoAPIKey {
		return exitError
	}
	return exitOK
}
