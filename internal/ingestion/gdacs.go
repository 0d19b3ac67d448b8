package ingestion

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mr1hm/go-disaster-v2v/internal/config"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

type gdacsRSS struct {
	Channel gdacsChannel `xml:"channel"`
}
type gdacsChannel struct {
	Items []gdacsItem `xml:"item"`
}
type gdacsItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Point       string `xml:"http://www.georss.org/georss point"` // "lat lon"
	EventType   string `xml:"http://www.gdacs.org eventtype"`
	AlertLevel  string `xml:"http://www.gdacs.org alertlevel"`
	EventID     string `xml:"http://www.gdacs.org eventid"`
	Country     string `xml:"http://www.gdacs.org country"`
}

// GDACSFeed reads the GDACS RSS feed and keeps volcanic events.
type GDACSFeed struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewGDACSFeed(cfg config.SourcesConfig, client *http.Client) *GDACSFeed {
	return &GDACSFeed{
		url:    cfg.GDACSURL,
		client: client,
		now:    time.Now,
	}
}

func (f *GDACSFeed) Name() string { return "gdacs" }

func (f *GDACSFeed) Fetch(ctx context.Context) ([]models.Disaster, error) {
	var data gdacsRSS
	if err := getXML(ctx, f.client, f.url, &data); err != nil {
		return nil, eris.Wrap(err, "fetch gdacs")
	}

	now := f.now()
	disasters := make([]models.Disaster, 0)
	for _, item := range data.Channel.Items {
		if !strings.EqualFold(strings.TrimSpace(item.EventType), "VO") {
			continue
		}

		timestamp, err := parseRSSTime(item.PubDate)
		if err != nil {
			zap.L().Warn("GDACS timestamp parsing failed", zap.String("id", item.EventID), zap.Error(err))
			timestamp = now
		}

		lat, lon := parseGeoRSSPoint(item.Point)

		level := strings.ToLower(strings.TrimSpace(item.AlertLevel))
		disasters = append(disasters, models.Disaster{
			ID:          "gdacs_" + strings.TrimSpace(item.EventID),
			Source:      "gdacs",
			Type:        models.DisasterTypeVolcano,
			Severity:    AlertLevelSeverity(level),
			Title:       item.Title,
			Description: item.Description,
			Latitude:    lat,
			Longitude:   lon,
			Country:     item.Country,
			AlertLevel:  level,
			URL:         item.Link,
			Timestamp:   timestamp.UTC(),
			CreatedAt:   now,
		})
	}

	return disasters, nil
}

func parseRSSTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("unrecognized pubDate %q", s)
}

// parseGeoRSSPoint reads the simple "lat lon" form of georss:point.
func parseGeoRSSPoint(s string) (lat, lon float64) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, 0
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0
	}
	return lat, lon
}
