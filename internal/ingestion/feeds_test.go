package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const usgsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"id": "us7000abcd", "properties": {"mag": 6.4, "place": "45 km S of Hualien City, Taiwan", "time": 1700000000000, "title": "M 6.4 - 45 km S of Hualien City, Taiwan", "url": "https://earthquake.usgs.gov/earthquakes/eventpage/us7000abcd", "tsunami": 1}, "geometry": {"coordinates": [121.6, 23.6, 12.5]}},
    {"id": "ci40000001", "properties": {"mag": 3.1, "place": "5 km NW of Ridgecrest, CA", "time": 1700000500000, "title": "M 3.1 - 5 km NW of Ridgecrest, CA", "tsunami": 0}, "geometry": {"coordinates": [-117.7, 35.6, 8.0]}},
    {"id": "broken", "properties": {"mag": 4.0, "place": "nowhere", "time": 1700000600000}, "geometry": {"coordinates": [1.0]}}
  ]
}`

const gdacsFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:gdacs="http://www.gdacs.org" xmlns:georss="http://www.georss.org/georss">
  <channel>
    <item>
      <title>Orange alert for volcanic eruption in Indonesia</title>
      <description>Eruption of Mount Semeru</description>
      <link>https://www.gdacs.org/report.aspx?eventid=1000123</link>
      <pubDate>Tue, 14 Nov 2023 08:00:00 GMT</pubDate>
      <georss:point>-8.108 112.922</georss:point>
      <gdacs:eventtype>VO</gdacs:eventtype>
      <gdacs:alertlevel>Orange</gdacs:alertlevel>
      <gdacs:eventid>1000123</gdacs:eventid>
      <gdacs:country>Indonesia</gdacs:country>
    </item>
    <item>
      <title>Green flood alert</title>
      <pubDate>Tue, 14 Nov 2023 09:00:00 GMT</pubDate>
      <georss:point>10 10</georss:point>
      <gdacs:eventtype>FL</gdacs:eventtype>
      <gdacs:alertlevel>Green</gdacs:alertlevel>
      <gdacs:eventid>2000456</gdacs:eventid>
    </item>
  </channel>
</rss>`

func sourcesFor(url string) config.SourcesConfig {
	return config.SourcesConfig{
		USGSURL:             url,
		USGSWindow:          24 * time.Hour,
		USGSMinMagnitude:    2.5,
		TsunamiWindow:       7 * 24 * time.Hour,
		TsunamiMinMagnitude: 6.0,
		OpenWeatherURL:      url,
		OpenWeatherAPIKey:   "test-key",
		GDACSURL:            url,
	}
}

func TestEarthquakeFeed(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Write([]byte(usgsFixture))
	}))
	defer srv.Close()

	feed := NewEarthquakeFeed(sourcesFor(srv.URL), srv.Client())
	got, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{"geojson"}, q["format"])
	assert.Equal(t, []string{"2.5"}, q["minmagnitude"])
	assert.Equal(t, []string{"time"}, q["orderby"])
	assert.NotEmpty(t, q["starttime"])

	d := got[0]
	assert.Equal(t, "usgs_us7000abcd", d.ID)
	assert.Equal(t, models.DisasterTypeEarthquake, d.Type)
	assert.Equal(t, models.SeverityHigh, d.Severity)
	assert.Equal(t, "Taiwan", d.Country)
	assert.InDelta(t, 23.6, d.Latitude, 0.0001)
	assert.InDelta(t, 121.6, d.Longitude, 0.0001)
	assert.InDelta(t, 12.5, d.DepthKm, 0.0001)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), d.Timestamp)

	assert.Equal(t, models.SeverityLow, got[1].Severity)
}

func TestTsunamiFeed(t *testing.T) {
	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		w.Write([]byte(usgsFixture))
	}))
	defer srv.Close()

	feed := NewTsunamiFeed(sourcesFor(srv.URL), srv.Client())
	assert.Equal(t, "tsunami", feed.Name())

	got, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tsunami_us7000abcd", got[0].ID)
	assert.Equal(t, models.DisasterTypeTsunami, got[0].Type)
	assert.Equal(t, models.SeverityModerate, got[0].Severity)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{"6"}, q["minmagnitude"])
}

func TestUSGSFeed_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewEarthquakeFeed(sourcesFor(srv.URL), srv.Client()).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGDACSFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(gdacsFixture))
	}))
	defer srv.Close()

	got, err := NewGDACSFeed(sourcesFor(srv.URL), srv.Client()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.Equal(t, "gdacs_1000123", d.ID)
	assert.Equal(t, models.DisasterTypeVolcano, d.Type)
	assert.Equal(t, models.SeverityHigh, d.Severity)
	assert.Equal(t, "orange", d.AlertLevel)
	assert.Equal(t, "Indonesia", d.Country)
	assert.InDelta(t, -8.108, d.Latitude, 0.0001)
	assert.InDelta(t, 112.922, d.Longitude, 0.0001)
	assert.Equal(t, time.Date(2023, 11, 14, 8, 0, 0, 0, time.UTC), d.Timestamp)
}

func TestOpenWeatherFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))

		switch q.Get("lat") {
		case "1":
			fmt.Fprint(w, `{"id": 101, "name": "Windy", "dt": 1700000000, "coord": {"lat": 1, "lon": 2},
				"weather": [{"id": 800, "main": "Clear", "description": "clear sky"}], "wind": {"speed": 14}, "sys": {"country": "PH"}}`)
		case "3":
			fmt.Fprint(w, `{"id": 102, "name": "Calm", "dt": 1700000000, "coord": {"lat": 3, "lon": 4},
				"weather": [{"id": 500, "main": "Rain", "description": "light rain"}], "wind": {"speed": 2}}`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cfg := sourcesFor(srv.URL)
	cfg.OpenWeatherLocations = []config.Location{
		{Name: "Windy", Latitude: 1, Longitude: 2},
		{Name: "Calm", Latitude: 3, Longitude: 4},
		{Name: "Broken", Latitude: 5, Longitude: 6},
	}

	got, err := NewOpenWeatherFeed(cfg, srv.Client()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.Equal(t, "owm_101_1700000000", d.ID)
	assert.Equal(t, models.DisasterTypeWeather, d.Type)
	assert.Equal(t, models.SeverityHigh, d.Severity)
	assert.Equal(t, "High winds near Windy", d.Title)
	assert.InDelta(t, 14, d.WindSpeed, 0.001)
	assert.Equal(t, "PH", d.Country)
}

func TestOpenWeatherFeed_Failures(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		cfg := sourcesFor("http://unused.invalid")
		cfg.OpenWeatherAPIKey = ""
		_, err := NewOpenWeatherFeed(cfg, http.DefaultClient).Fetch(context.Background())
		assert.ErrorIs(t, err, errNoAPIKey)
	})

	t.Run("all locations fail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		cfg := sourcesFor(srv.URL)
		cfg.OpenWeatherLocations = []config.Location{{Name: "A", Latitude: 1, Longitude: 1}, {Name: "B", Latitude: 2, Longitude: 2}}
		_, err := NewOpenWeatherFeed(cfg, srv.Client()).Fetch(context.Background())
		assert.Error(t, err)
	})
}
