package command

import (
	"testing"

	"github.com/NomadCrew/oweather-bot/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSpecs(t *testing.T) {
	specs, err := DefaultSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, CommandOWeather, specs[0].Name)
	assert.Equal(t, settings.AccessAll, specs[0].AccessLevel)
	assert.Equal(t, "View Weather for any location", specs[0].Description)
	assert.Contains(t, specs[0].Help, "oweather &lt;location&gt;")
	assert.NotRegexp(t, `\n$`, specs[0].Help)

	assert.Equal(t, CommandForecast, specs[1].Name)
	assert.Equal(t, CommandHelp, specs[2].Name)
}

func TestLoadSpecs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"invalid yaml", "commands: [", "parsing command definitions"},
		{"missing pattern", "commands:\n  - name: x\n", "name and pattern are required"},
		{"no capture group", "commands:\n  - name: x\n    pattern: '^x$'\n", "exactly one capture group"},
		{"bad regexp", "commands:\n  - name: x\n    pattern: '^x (.+$'\n", "command x"},
		{"duplicate", "commands:\n  - name: x\n    pattern: '^x (.+)$'\n  - name: x\n    pattern: '^y (.+)$'\n", "defined twice"},
		{"bad access level", "commands:\n  - name: x\n    pattern: '^x (.+)$'\n    access_level: god\n", "unknown access level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSpecs([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSpecs_DefaultsAccessLevel(t *testing.T) {
	specs, err := LoadSpecs([]byte("commands:\n  - name: x\n    pattern: '^x (.+)$'\n"))
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, settings.AccessAll, specs[0].AccessLevel)
}
