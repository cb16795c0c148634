package settings

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresStore(mock)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT value FROM settings WHERE name = $1`)

	t.Run("stored value", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("oweather_api_key").
			WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("stored"))

		value, err := store.Get(ctx, "oweather_api_key")
		require.NoError(t, err)
		assert.Equal(t, "stored", value)
	})

	t.Run("missing value", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("oweather_api_key").
			WillReturnRows(pgxmock.NewRows([]string{"value"}))

		_, err := store.Get(ctx, "oweather_api_key")
		assert.ErrorIs(t, err, ErrSettingNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("oweather_api_key").
			WillReturnError(errors.New("connection reset"))

		_, err := store.Get(ctx, "oweather_api_key")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSettingNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Set(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectExec("INSERT INTO settings").
		WithArgs("oweather_api_key", "value").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Set(context.Background(), "oweather_api_key", "value"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()
	store := NewPostgresStore(mock)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("db down"))

	assert.NoError(t, store.Ping(context.Background()))
	assert.Error(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertToPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", convertToPgx5URL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h:5432/db", convertToPgx5URL("postgresql://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://already", convertToPgx5URL("pgx5://already"))
}
