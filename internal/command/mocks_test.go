package command

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/NomadCrew/oweather-bot/pkg/openweather"
	"github.com/stretchr/testify/mock"
)

// MockSettings implements SettingsReader.
type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) Get(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// MockRateLimiter implements RateLimiter.
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

type fetchCall struct {
	apiKey   string
	location string
	endpoint string
	extra    url.Values
}

// fakeFetcher answers every request with a canned response.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall

	status int
	body   string
	err    error
}

var _ openweather.Fetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) Fetch(_ context.Context, apiKey, location, endpoint string, extra url.Values) (*openweather.RawResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{apiKey: apiKey, location: location, endpoint: endpoint, extra: extra})
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return &openweather.RawResponse{StatusCode: status, Body: []byte(f.body)}, nil
}

func (f *fakeFetcher) FetchAsync(ctx context.Context, apiKey, location, endpoint string, extra url.Values) <-chan openweather.FetchResult {
	ch := make(chan openweather.FetchResult, 1)
	go func() {
		defer close(ch)
		resp, err := f.Fetch(ctx, apiKey, location, endpoint, extra)
		ch <- openweather.FetchResult{Response: resp, Err: err}
	}()
	return ch
}

func (f *fakeFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

// recorder collects replies.
type recorder struct {
	mu      sync.Mutex
	replies []string
}

func (r *recorder) Reply(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return nil
}

func (r *recorder) Replies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}
