package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurePostgresPool(t *testing.T) {
	tests := []struct {
		name    string
		config  *DatabaseConfig
		wantTLS bool
	}{
		{
			name: "local database without TLS",
			config: &DatabaseConfig{
				Host: "localhost", Port: 5432, User: "bot", Password: "secret",
				Name: "oweather", SSLMode: "disable", MaxConnections: 4,
			},
		},
		{
			name: "managed database requires TLS",
			config: &DatabaseConfig{
				Host: "db.example.com", Port: 5432, User: "bot", Password: "p@ss word",
				Name: "oweather", SSLMode: "require", MaxConnections: 8,
			},
			wantTLS: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ConfigurePostgresPool(tt.config)
			require.NoError(t, err)

			assert.Equal(t, tt.config.User, cfg.ConnConfig.User)
			assert.Equal(t, tt.config.Password, cfg.ConnConfig.Password)
			assert.Equal(t, tt.config.Name, cfg.ConnConfig.Database)
			assert.Equal(t, int32(tt.config.MaxConnections), cfg.MaxConns)
			assert.Equal(t, 30*time.Second, cfg.HealthCheckPeriod)
			if tt.wantTLS {
				require.NotNil(t, cfg.ConnConfig.TLSConfig)
				assert.Equal(t, tt.config.Host, cfg.ConnConfig.TLSConfig.ServerName)
			} else {
				assert.Nil(t, cfg.ConnConfig.TLSConfig)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions(&RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5})
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)
	assert.Nil(t, opts.TLSConfig)

	opts = RedisOptions(&RedisConfig{Address: "eu1-cache.upstash.io:6379"})
	assert.NotNil(t, opts.TLSConfig)

	opts = RedisOptions(&RedisConfig{Address: "redis:6379", UseTLS: true})
	assert.NotNil(t, opts.TLSConfig)
}

func TestWaitForRedis(t *testing.T) {
	t.Run("succeeds after a retry", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectPing().SetErr(errors.New("connection refused"))
		mock.ExpectPing().SetVal("PONG")

		err := WaitForRedis(context.Background(), client, 3, time.Millisecond)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectPing().SetErr(errors.New("connection refused"))
		mock.ExpectPing().SetErr(errors.New("connection refused"))

		err := WaitForRedis(context.Background(), client, 2, time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})
}
