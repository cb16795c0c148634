package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/NomadCrew/oweather-bot/types"
	"github.com/go-redis/redismock/v9"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNewHealthService(t *testing.T) {
	service := NewHealthService(pingFunc(func(context.Context) error { return nil }), nil, "1.0.0")

	assert.Equal(t, "1.0.0", service.version)
	assert.NotNil(t, service.log)
	assert.True(t, time.Since(service.startTime) < time.Second)
	assert.True(t, service.IsLive())
}

func TestHealthService_CheckHealth(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(pgxmock.PgxPoolIface, redismock.ClientMock)
		expectedStatus types.HealthStatus
		expectedComps  map[string]types.HealthStatus
	}{
		{
			name: "all dependencies healthy",
			setupMocks: func(db pgxmock.PgxPoolIface, r redismock.ClientMock) {
				db.ExpectPing()
				r.ExpectPing().SetVal("PONG")
			},
			expectedStatus: types.HealthStatusUp,
			expectedComps: map[string]types.HealthStatus{
				"settings": types.HealthStatusUp,
				"redis":    types.HealthStatusUp,
			},
		},
		{
			name: "settings store down",
			setupMocks: func(db pgxmock.PgxPoolIface, r redismock.ClientMock) {
				db.ExpectPing().WillReturnError(errors.New("connection refused"))
				r.ExpectPing().SetVal("PONG")
			},
			expectedStatus: types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				"settings": types.HealthStatusDown,
				"redis":    types.HealthStatusUp,
			},
		},
		{
			name: "redis down degrades the service",
			setupMocks: func(db pgxmock.PgxPoolIface, r redismock.ClientMock) {
				db.ExpectPing()
				r.ExpectPing().SetErr(errors.New("redis connection failed"))
			},
			expectedStatus: types.HealthStatusDegraded,
			expectedComps: map[string]types.HealthStatus{
				"settings": types.HealthStatusUp,
				"redis":    types.HealthStatusDegraded,
			},
		},
		{
			name: "everything down",
			setupMocks: func(db pgxmock.PgxPoolIface, r redismock.ClientMock) {
				db.ExpectPing().WillReturnError(errors.New("db error"))
				r.ExpectPing().SetErr(errors.New("redis error"))
			},
			expectedStatus: types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				"settings": types.HealthStatusDown,
				"redis":    types.HealthStatusDown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer mockDB.Close()
			redisClient, redisMock := redismock.NewClientMock()

			tt.setupMocks(mockDB, redisMock)

			service := NewHealthService(settings.NewPostgresStore(mockDB), redisClient, "2.0.0")
			result := service.CheckHealth(context.Background())

			assert.Equal(t, tt.expectedStatus, result.Status)
			assert.Equal(t, "2.0.0", result.Version)
			assert.NotEmpty(t, result.Timestamp)
			assert.NotEmpty(t, result.Uptime)
			assert.Len(t, result.Components, len(tt.expectedComps))
			for comp, expected := range tt.expectedComps {
				assert.Equal(t, expected, result.Components[comp].Status, comp)
			}

			require.NoError(t, mockDB.ExpectationsWereMet())
			require.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestHealthService_WithoutRedis(t *testing.T) {
	service := NewHealthService(pingFunc(func(context.Context) error { return nil }), nil, "1.0.0")
	result := service.CheckHealth(context.Background())

	assert.Equal(t, types.HealthStatusUp, result.Status)
	assert.NotContains(t, result.Components, "redis")
}

func TestHealthService_APIKeyCheck(t *testing.T) {
	service := NewHealthService(pingFunc(func(context.Context) error { return nil }), nil, "1.0.0")

	configured := false
	service.SetAPIKeyCheck(func(context.Context) bool { return configured })

	result := service.CheckHealth(context.Background())
	assert.Equal(t, types.HealthStatusDegraded, result.Status)
	assert.Equal(t, "No valid API key configured", result.Components["openweather"].Details)

	configured = true
	result = service.CheckHealth(context.Background())
	assert.Equal(t, types.HealthStatusUp, result.Status)
	assert.Equal(t, types.HealthStatusUp, result.Components["openweather"].Status)
}

func TestHealthService_IsReady(t *testing.T) {
	var pingErr error
	service := NewHealthService(pingFunc(func(context.Context) error { return pingErr }), nil, "1.0.0")
	assert.True(t, service.IsReady(context.Background()))

	pingErr = errors.New("database is locked")
	assert.False(t, service.IsReady(context.Background()))
}

func TestHealthService_PingUsesTimeout(t *testing.T) {
	service := NewHealthService(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), nil, "1.0.0")
	service.timeout = 20 * time.Millisecond

	result := service.CheckHealth(context.Background())
	assert.Equal(t, types.HealthStatusDown, result.Status)
	assert.Equal(t, "settings connection failed", result.Components["settings"].Details)
}
