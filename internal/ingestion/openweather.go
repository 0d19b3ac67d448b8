package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const openWeatherConcurrency = 4

var errNoAPIKey = eris.New("openweather api key not configured")

type owmResponse struct {
	ID      int          `json:"id"` // city id
	Name    string       `json:"name"`
	Dt      int64        `json:"dt"` // unix seconds
	Coord   owmCoord     `json:"coord"`
	Weather []owmWeather `json:"weather"`
	Wind    owmWind      `json:"wind"`
	Sys     owmSys       `json:"sys"`
}
type owmCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
type owmWeather struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}
type owmWind struct {
	Speed float64 `json:"speed"` // m/s with units=metric
	Gust  float64 `json:"gust"`
}
type owmSys struct {
	Country string `json:"country"`
}

// OpenWeatherFeed polls current conditions for each monitored location and
// keeps only readings that look hazardous.
type OpenWeatherFeed struct {
	baseURL   string
	apiKey    string
	locations []config.Location
	client    *http.Client
	now       func() time.Time
}

func NewOpenWeatherFeed(cfg config.SourcesConfig, client *http.Client) *OpenWeatherFeed {
	return &OpenWeatherFeed{
		baseURL:   cfg.OpenWeatherURL,
		apiKey:    cfg.OpenWeatherAPIKey,
		locations: cfg.OpenWeatherLocations,
		client:    client,
		now:       time.Now,
	}
}

func (f *OpenWeatherFeed) Name() string { return "openweather" }

func (f *OpenWeatherFeed) Fetch(ctx context.Context) ([]models.Disaster, error) {
	if f.apiKey == "" {
		return nil, errNoAPIKey
	}
	if len(f.locations) == 0 {
		return nil, nil
	}

	var (
		mu        sync.Mutex
		disasters []models.Disaster
		failures  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(openWeatherConcurrency)
	for _, loc := range f.locations {
		g.Go(func() error {
			d, ok, err := f.fetchLocation(gctx, loc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				zap.L().Warn("weather location failed", zap.String("location", loc.Name), zap.Error(err))
				return nil
			}
			if ok {
				disasters = append(disasters, d)
			}
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(f.locations) {
		return nil, eris.Errorf("all %d weather locations failed", failures)
	}
	return disasters, nil
}

func (f *OpenWeatherFeed) fetchLocation(ctx context.Context, loc config.Location) (models.Disaster, bool, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return models.Disaster{}, false, eris.Wrapf(err, "parse openweather url %q", f.baseURL)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("appid", f.apiKey)
	q.Set("units", "metric")
	u.RawQuery = q.Encode()

	var data owmResponse
	if err := getJSON(ctx, f.client, u.String(), &data); err != nil {
		return models.Disaster{}, false, err
	}

	var cond owmWeather
	if len(data.Weather) > 0 {
		cond = data.Weather[0]
	}
	if !isNotableWeather(data.Wind.Speed, cond.ID) {
		return models.Disaster{}, false, nil
	}

	place := data.Name
	if place == "" {
		place = loc.Name
	}
	ts := time.Unix(data.Dt, 0).UTC()
	if data.Dt == 0 {
		ts = f.now().UTC()
	}

	return models.Disaster{
		ID:          fmt.Sprintf("owm_%d_%d", data.ID, ts.Unix()),
		Source:      "openweather",
		Type:        models.DisasterTypeWeather,
		Severity:    WeatherSeverity(data.Wind.Speed, cond.ID),
		Title:       fmt.Sprintf("%s near %s", weatherTitle(cond), place),
		Description: fmt.Sprintf("%s, wind %.1f m/s", cond.Description, data.Wind.Speed),
		Latitude:    data.Coord.Lat,
		Longitude:   data.Coord.Lon,
		Place:       place,
		Country:     data.Sys.Country,
		WindSpeed:   data.Wind.Speed,
		Timestamp:   ts,
		CreatedAt:   f.now(),
	}, true, nil
}

func weatherTitle(cond owmWeather) string {
	switch {
	case cond.ID == weatherTornado:
		return "Tornado"
	case cond.ID == weatherSquall:
		return "Squalls"
	case isThunderstorm(cond.ID):
		return "Thunderstorm"
	default:
		return "High winds"
	}
}
