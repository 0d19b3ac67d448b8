package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/ingestion"
)

func feedNames(feeds []ingestion.Feed) []string {
	names := make([]string, 0, len(feeds))
	for _, f := range feeds {
		names = append(names, f.Name())
	}
	return names
}

func TestBuildFeeds(t *testing.T) {
	all := config.SourcesConfig{
		USGSEnabled:        true,
		TsunamiEnabled:     true,
		OpenWeatherEnabled: true,
		OpenWeatherAPIKey:  "key",
		GDACSEnabled:       true,
	}

	tests := []struct {
		name string
		src  func(config.SourcesConfig) config.SourcesConfig
		want int
	}{
		{"all enabled", func(s config.SourcesConfig) config.SourcesConfig { return s }, 4},
		{"weather without key", func(s config.SourcesConfig) config.SourcesConfig {
			s.OpenWeatherAPIKey = ""
			return s
		}, 3},
		{"usgs off", func(s config.SourcesConfig) config.SourcesConfig {
			s.USGSEnabled = false
			s.TsunamiEnabled = false
			return s
		}, 2},
		{"none", func(config.SourcesConfig) config.SourcesConfig { return config.SourcesConfig{} }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feeds := buildFeeds(tt.src(all), http.DefaultClient)
			assert.Len(t, feeds, tt.want)
		})
	}

	assert.Contains(t, feedNames(buildFeeds(all, http.DefaultClient)), "gdacs")
}

func TestRunCmd_ValidatesJobName(t *testing.T) {
	assert.NoError(t, runCmd.Args(runCmd, []string{"sweep"}))
	assert.Error(t, runCmd.Args(runCmd, []string{"backup"}))
	assert.Error(t, runCmd.Args(runCmd, nil))
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "run"})
}
