package ingestion

import (
	"time"

	"github.com/samber/lo"

	"github.com/mr1hm/go-disaster-v2v/internal/geo"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

type Point struct {
	Latitude  float64
	Longitude float64
}

// Filter narrows a live aggregate. Zero values disable a criterion.
type Filter struct {
	Types       []models.DisasterType
	MinSeverity models.Severity
	Since       time.Time
	Near        *Point
	RadiusKm    float64
	Limit       int
}

func (f Filter) Apply(disasters []models.Disaster) []models.Disaster {
	out := lo.Filter(disasters, func(d models.Disaster, _ int) bool {
		return f.match(d)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (f Filter) match(d models.Disaster) bool {
	if len(f.Types) > 0 && !lo.Contains(f.Types, d.Type) {
		return false
	}
	if f.MinSeverity > 0 && d.Severity < f.MinSeverity {
		return false
	}
	if !f.Since.IsZero() && d.Timestamp.Before(f.Since) {
		return false
	}
	if f.Near != nil && f.RadiusKm > 0 {
		if geo.Haversine(f.Near.Latitude, f.Near.Longitude, d.Latitude, d.Longitude) > f.RadiusKm {
			return false
		}
	}
	return true
}
