package settings

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("oweather"),
		postgres.WithUsername("bot"),
		postgres.WithPassword("bot"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, RunMigrations(dbURL))
	// A second run finds nothing to do.
	require.NoError(t, RunMigrations(dbURL))

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	store := NewPostgresStore(pool)
	defer store.Close()

	_, err = store.Get(ctx, "oweather_api_key")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, store.Set(ctx, "oweather_api_key", "one"))
	require.NoError(t, store.Set(ctx, "oweather_api_key", "two"))

	value, err := store.Get(ctx, "oweather_api_key")
	require.NoError(t, err)
	assert.Equal(t, "two", value)
	assert.NoError(t, store.Ping(ctx))
}
