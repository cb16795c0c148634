package openweather

import (
	"embed"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed testdata
var fixtures embed.FS

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	body, err := fixtures.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return body
}
