package api

import (
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(disasters []models.Disaster) FeatureCollection {
	features := make([]Feature, 0, len(disasters))

	for _, d := range disasters {
		props := map[string]any{
			"type":      d.Type,
			"severity":  d.Severity.String(),
			"title":     d.Title,
			"source":    d.Source,
			"timestamp": d.Timestamp,
		}
		optional := map[string]any{
			"description": d.Description,
			"place":       d.Place,
			"country":     d.Country,
			"alert_level": d.AlertLevel,
			"url":         d.URL,
		}
		for k, v := range optional {
			if v != "" {
				props[k] = v
			}
		}
		if d.Magnitude != 0 {
			props["magnitude"] = d.Magnitude
		}
		if d.DepthKm != 0 {
			props["depth_km"] = d.DepthKm
		}
		if d.WindSpeed != 0 {
			props["wind_speed"] = d.WindSpeed
		}

		features = append(features, Feature{
			Type: "Feature",
			ID:   d.ID,
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{d.Longitude, d.Latitude},
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
