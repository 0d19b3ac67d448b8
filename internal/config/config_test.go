package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 24*time.Hour, cfg.Sources.USGSWindow)
	assert.InDelta(t, 10.0, cfg.V2V.BroadcastRadiusKm, 0.001)
	assert.Equal(t, "@every 5m", cfg.Schedule.Refresh)
	assert.Len(t, cfg.Sources.OpenWeatherLocations, 5)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("V2V_BROADCAST_RADIUS_KM", "25")
	t.Setenv("OPENWEATHER_LOCATIONS", "Oslo:59.91:10.75")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.InDelta(t, 25.0, cfg.V2V.BroadcastRadiusKm, 0.001)
	require.Len(t, cfg.Sources.OpenWeatherLocations, 1)
	assert.Equal(t, "Oslo", cfg.Sources.OpenWeatherLocations[0].Name)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "SERVER_PORT", "70000"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"log format", "LOG_FORMAT", "xml"},
		{"broadcast radius over max", "V2V_BROADCAST_RADIUS_KM", "500"},
		{"retention", "RETENTION_MESSAGES", "5m"},
		{"location", "OPENWEATHER_LOCATIONS", "Nowhere:95:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLocations(t *testing.T) {
	locs, err := ParseLocations(" A:1:2 ; B:-3.5:4.25;")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, Location{Name: "B", Latitude: -3.5, Longitude: 4.25}, locs[1])

	_, err = ParseLocations("bad-entry")
	assert.Error(t, err)
}
