package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}
type usgsProperties struct {
	Mag     *float64 `json:"mag"`
	Place   string   `json:"place"`
	Time    int64    `json:"time"` // unix ms
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Tsunami int      `json:"tsunami"` // 0 or 1
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

// USGSFeed reads the FDSN event service. The same endpoint backs both the
// earthquake feed and the tsunami feed, which keeps only flagged events.
type USGSFeed struct {
	name         string
	baseURL      string
	window       time.Duration
	minMagnitude float64
	tsunamiOnly  bool
	client       *http.Client
	now          func() time.Time
}

func NewEarthquakeFeed(cfg config.SourcesConfig, client *http.Client) *USGSFeed {
	return &USGSFeed{
		name:         "usgs",
		baseURL:      cfg.USGSURL,
		window:       cfg.USGSWindow,
		minMagnitude: cfg.USGSMinMagnitude,
		client:       client,
		now:          time.Now,
	}
}

func NewTsunamiFeed(cfg config.SourcesConfig, client *http.Client) *USGSFeed {
	return &USGSFeed{
		name:         "tsunami",
		baseURL:      cfg.USGSURL,
		window:       cfg.TsunamiWindow,
		minMagnitude: cfg.TsunamiMinMagnitude,
		tsunamiOnly:  true,
		client:       client,
		now:          time.Now,
	}
}

func (f *USGSFeed) Name() string { return f.name }

func (f *USGSFeed) queryURL() (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", eris.Wrapf(err, "parse usgs url %q", f.baseURL)
	}
	q := u.Query()
	q.Set("format", "geojson")
	q.Set("starttime", f.now().Add(-f.window).UTC().Format("2006-01-02T15:04:05"))
	q.Set("minmagnitude", strconv.FormatFloat(f.minMagnitude, 'f', -1, 64))
	q.Set("orderby", "time")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *USGSFeed) Fetch(ctx context.Context) ([]models.Disaster, error) {
	u, err := f.queryURL()
	if err != nil {
		return nil, err
	}

	var data usgsResponse
	if err := getJSON(ctx, f.client, u, &data); err != nil {
		return nil, eris.Wrapf(err, "fetch %s", f.name)
	}

	now := f.now()
	disasters := make([]models.Disaster, 0, len(data.Features))
	for _, feat := range data.Features {
		if len(feat.Geometry.Coordinates) < 2 {
			zap.L().Debug("skipping feature without coordinates", zap.String("feed", f.name), zap.String("id", feat.ID))
			continue
		}
		if f.tsunamiOnly && feat.Properties.Tsunami != 1 {
			continue
		}
		disasters = append(disasters, f.toDisaster(feat, now))
	}
	return disasters, nil
}

func (f *USGSFeed) toDisaster(feat usgsFeature, now time.Time) models.Disaster {
	p := feat.Properties
	var mag float64
	if p.Mag != nil {
		mag = *p.Mag
	}

	d := models.Disaster{
		Source:      "usgs",
		Title:       p.Title,
		Description: p.Place,
		Place:       p.Place,
		Country:     countryFromPlace(p.Place),
		Magnitude:   mag,
		Longitude:   feat.Geometry.Coordinates[0],
		Latitude:    feat.Geometry.Coordinates[1],
		URL:         p.URL,
		Timestamp:   time.UnixMilli(p.Time).UTC(),
		CreatedAt:   now,
	}
	if len(feat.Geometry.Coordinates) > 2 {
		d.DepthKm = feat.Geometry.Coordinates[2]
	}

	if f.tsunamiOnly {
		d.ID = "tsunami_" + feat.ID
		d.Type = models.DisasterTypeTsunami
		d.Severity = TsunamiSeverity(mag)
		d.Title = fmt.Sprintf("Tsunami threat: M%.1f - %s", mag, p.Place)
		return d
	}

	d.ID = "usgs_" + feat.ID
	d.Type = models.DisasterTypeEarthquake
	d.Severity = EarthquakeSeverity(mag)
	if d.Title == "" {
		d.Title = fmt.Sprintf("M %.1f - %s", mag, p.Place)
	}
	return d
}

// countryFromPlace takes the trailing part of "12 km SSW of Town, Country".
func countryFromPlace(place string) string {
	i := strings.LastIndex(place, ",")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(place[i+1:])
}
