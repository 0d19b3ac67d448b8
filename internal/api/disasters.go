package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-v2v/internal/ingestion"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
	"github.com/mr1hm/go-disaster-v2v/internal/repository"
)

const (
	defaultDisasterLimit = 20
	maxDisasterLimit     = 500
	defaultNearRadiusKm  = 500
)

type disasterList struct {
	Disasters []models.Disaster      `json:"disasters"`
	Count     int                    `json:"count"`
	Feeds     []ingestion.FeedStatus `json:"feeds,omitempty"`
	FetchedAt *time.Time             `json:"fetched_at,omitempty"`
}

// getDisasters aggregates every feed now and filters the result in memory.
func (h *Handler) getDisasters(c *gin.Context) {
	filter, err := liveFilter(c)
	if err != nil {
		fail(c, err)
		return
	}

	res := h.ingestor.Live(c.Request.Context())
	disasters := filter.Apply(res.Disasters)

	if wantsGeoJSON(c) {
		writeGeoJSON(c, disasters)
		return
	}
	ok(c, disasterList{
		Disasters: disasters,
		Count:     len(disasters),
		Feeds:     res.Feeds,
		FetchedAt: &res.FetchedAt,
	})
}

// getRecentDisasters reads the cache written by refreshes.
func (h *Handler) getRecentDisasters(c *gin.Context) {
	filter, err := cacheFilter(c)
	if err != nil {
		fail(c, err)
		return
	}

	disasters, err := h.disasters.ListDisasters(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	if disasters == nil {
		disasters = []models.Disaster{}
	}

	if wantsGeoJSON(c) {
		writeGeoJSON(c, disasters)
		return
	}
	ok(c, disasterList{Disasters: disasters, Count: len(disasters)})
}

func (h *Handler) getFeeds(c *gin.Context) {
	last, found := h.ingestor.Last()
	if !found {
		ok(c, gin.H{"feeds": []ingestion.FeedStatus{}})
		return
	}
	ok(c, gin.H{
		"feeds":      last.Feeds,
		"failed":     last.Failed(),
		"fetched_at": last.FetchedAt,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	res, err := h.ingestor.Refresh(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"fetched":    len(res.Disasters),
		"stored":     res.Stored,
		"feeds":      res.Feeds,
		"failed":     res.Failed(),
		"fetched_at": res.FetchedAt,
	})
}

func wantsGeoJSON(c *gin.Context) bool {
	return strings.EqualFold(c.Query("format"), "geojson")
}

func writeGeoJSON(c *gin.Context, disasters []models.Disaster) {
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(disasters))
}

func liveFilter(c *gin.Context) (ingestion.Filter, error) {
	var (
		f   ingestion.Filter
		err error
	)
	if f.Types, err = parseTypes(c.Query("type")); err != nil {
		return f, err
	}
	sev, present, err := parseSeverity(c.Query("min_severity"))
	if err != nil {
		return f, err
	}
	if present {
		f.MinSeverity = sev
	}
	if f.Since, _, err = parseSince(c.Query("since")); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit", 0, 1, maxDisasterLimit); err != nil {
		return f, err
	}

	lat, lon := c.Query("lat"), c.Query("lon")
	if lat == "" && lon == "" {
		return f, nil
	}
	if lat == "" || lon == "" {
		return f, badRequest("lat and lon must be given together")
	}
	var p ingestion.Point
	if p.Latitude, err = queryFloat(c, "lat", 0); err != nil {
		return f, err
	}
	if p.Longitude, err = queryFloat(c, "lon", 0); err != nil {
		return f, err
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return f, badRequest("lat/lon out of range")
	}
	if f.RadiusKm, err = queryFloat(c, "radius_km", defaultNearRadiusKm); err != nil {
		return f, err
	}
	if f.RadiusKm <= 0 {
		return f, badRequest("radius_km must be positive")
	}
	f.Near = &p
	return f, nil
}

func cacheFilter(c *gin.Context) (repository.Filter, error) {
	f := repository.Filter{Limit: defaultDisasterLimit}

	types, err := parseTypes(c.Query("type"))
	if err != nil {
		return f, err
	}
	switch len(types) {
	case 0:
	case 1:
		f.Type = &types[0]
	default:
		return f, badRequest("type accepts a single value here")
	}

	sev, present, err := parseSeverity(c.Query("min_severity"))
	if err != nil {
		return f, err
	}
	if present {
		f.MinSeverity = &sev
	}
	since, present, err := parseSince(c.Query("since"))
	if err != nil {
		return f, err
	}
	if present {
		f.Since = &since
	}
	if raw := c.Query("min_magnitude"); raw != "" {
		mag, err := queryFloat(c, "min_magnitude", 0)
		if err != nil {
			return f, err
		}
		f.MinMagnitude = &mag
	}
	if f.Limit, err = queryInt(c, "limit", defaultDisasterLimit, 1, maxDisasterLimit); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(c, "offset", 0, 0, 1<<20); err != nil {
		return f, err
	}
	return f, nil
}

// parseTypes accepts a comma separated list of disaster types.
func parseTypes(raw string) ([]models.DisasterType, error) {
	if raw == "" {
		return nil, nil
	}
	var types []models.DisasterType
	for _, part := range strings.Split(raw, ",") {
		t, known := models.ParseDisasterType(part)
		if !known {
			return nil, badRequest("unknown disaster type %q", strings.TrimSpace(part))
		}
		types = append(types, t)
	}
	return types, nil
}

func parseSeverity(raw string) (models.Severity, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	sev, known := models.ParseSeverity(raw)
	if !known {
		return 0, false, badRequest("unknown severity %q", raw)
	}
	return sev, true, nil
}

// parseSince accepts RFC 3339 timestamps or plain dates.
func parseSince(raw string) (time.Time, bool, error) {
	if raw == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, badRequest("since must be RFC 3339 or YYYY-MM-DD")
}
