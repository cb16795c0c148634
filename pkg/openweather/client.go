// Package openweather fetches and decodes OpenWeatherMap 2.5 API responses.
package openweather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "http://api.openweathermap.org/data/2.5"

	EndpointWeather  = "weather"
	EndpointForecast = "forecast"

	// ForecastSampleCount limits forecasts to 24 three-hour samples (3 days).
	ForecastSampleCount = 24

	// APIKeyLength is the length of a valid OpenWeatherMap API key.
	APIKeyLength = 32

	tracerName = "github.com/NomadCrew/oweather-bot/pkg/openweather"
)

// ErrTransport marks failures to get any response from the provider.
var ErrTransport = errors.New("openweather: transport error")

// RawResponse is an undecoded provider response. Non-2xx statuses are kept
// as data because the provider reports its own status inside the body.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// FetchResult is delivered exactly once on the channel returned by FetchAsync.
type FetchResult struct {
	Response *RawResponse
	Err      error
}

// Fetcher is the provider lookup used by the chat commands.
type Fetcher interface {
	Fetch(ctx context.Context, apiKey, location, endpoint string, extra url.Values) (*RawResponse, error)
	FetchAsync(ctx context.Context, apiKey, location, endpoint string, extra url.Values) <-chan FetchResult
}

// Client talks to the OpenWeatherMap REST API. It performs one request per
// call and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
	tracer     trace.Tracer
	metrics    *clientMetrics
}

var _ Fetcher = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the current HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit caps outbound requests to perMinute with the given burst.
// A non-positive perMinute disables the limiter.
func WithRateLimit(perMinute, burst int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// NewClient creates a Client with a 10 second timeout and traced transport.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:     logger.GetLogger().Named("openweather"),
		tracer:  otel.Tracer(tracerName),
		metrics: newClientMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs a single GET against endpoint ("weather" or "forecast").
// The query always carries q, appid, units=metric and mode=json; extra
// values are merged on top.
func (c *Client) Fetch(ctx context.Context, apiKey, location, endpoint string, extra url.Values) (*RawResponse, error) {
	ctx, span := c.tracer.Start(ctx, "openweather."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("weather.endpoint", endpoint),
			attribute.String("weather.location", location),
		))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.observe(endpoint, outcomeTransportError, 0)
			span.SetStatus(codes.Error, "rate limiter")
			return nil, fmt.Errorf("%w: waiting for rate limiter: %w", ErrTransport, err)
		}
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", apiKey)
	params.Set("units", "metric")
	params.Set("mode", "json")
	for k, v := range extra {
		params[k] = v
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debugw("Requesting weather data",
		"endpoint", endpoint,
		"location", location,
		"apiKey", logger.MaskAPIKey(apiKey))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, outcomeTransportError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.log.Warnw("Weather request failed", "endpoint", endpoint, "location", location, "error", redact(err, apiKey))
		return nil, fmt.Errorf("%w: %s", ErrTransport, redact(err, apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(endpoint, outcomeTransportError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading body failed")
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	outcome := outcomeOK
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = outcomeHTTPError
	}
	c.metrics.observe(endpoint, outcome, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	c.log.Debugw("Weather response received",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))

	return &RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// FetchAsync runs Fetch in its own goroutine. The returned channel receives
// exactly one FetchResult and is then closed.
func (c *Client) FetchAsync(ctx context.Context, apiKey, location, endpoint string, extra url.Values) <-chan FetchResult {
	resultCh := make(chan FetchResult, 1)
	go func() {
		defer close(resultCh)
		resp, err := c.Fetch(ctx, apiKey, location, endpoint, extra)
		resultCh <- FetchResult{Response: resp, Err: err}
	}()
	return resultCh
}

// FetchWeather looks up current conditions.
func FetchWeather(ctx context.Context, f Fetcher, apiKey, location string) <-chan FetchResult {
	return f.FetchAsync(ctx, apiKey, location, EndpointWeather, nil)
}

// FetchForecast looks up the next ForecastSampleCount 3-hour samples.
func FetchForecast(ctx context.Context, f Fetcher, apiKey, location string) <-chan FetchResult {
	extra := url.Values{}
	extra.Set("cnt", strconv.Itoa(ForecastSampleCount))
	return f.FetchAsync(ctx, apiKey, location, EndpointForecast, extra)
}

// redact keeps the API key out of errors, which embed the request URL.
func redact(err error, apiKey string) string {
	msg := err.Error()
	if apiKey != "" {
		msg = strings.ReplaceAll(msg, url.QueryEscape(apiKey), logger.MaskAPIKey(apiKey))
		msg = strings.ReplaceAll(msg, apiKey, logger.MaskAPIKey(apiKey))
	}
	return msg
}
