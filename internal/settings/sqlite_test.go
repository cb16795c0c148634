package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)

	_, err = store.Get(ctx, "oweather_api_key")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	require.NoError(t, store.Set(ctx, "oweather_api_key", "first"))
	require.NoError(t, store.Set(ctx, "oweather_api_key", "second"))
	require.NoError(t, store.Ping(ctx))

	value, err := store.Get(ctx, "oweather_api_key")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
	require.NoError(t, store.Close())

	// Values survive reopening the file.
	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err = reopened.Get(ctx, "oweather_api_key")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}
