package models

import (
	"encoding/json"
	"strings"
	"time"
)

type DisasterType string

const (
	DisasterTypeEarthquake DisasterType = "earthquake"
	DisasterTypeWeather    DisasterType = "weather"
	DisasterTypeTsunami    DisasterType = "tsunami"
	DisasterTypeVolcano    DisasterType = "volcano"
)

// DisasterTypes lists every supported type in display order.
var DisasterTypes = []DisasterType{
	DisasterTypeEarthquake,
	DisasterTypeWeather,
	DisasterTypeTsunami,
	DisasterTypeVolcano,
}

func ParseDisasterType(s string) (DisasterType, bool) {
	t := DisasterType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DisasterTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Severity is ordinal: a higher value is more severe.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityModerate
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityModerate: "moderate",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseSeverity(s string) (Severity, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for sev, name := range severityNames {
		if name == s {
			return sev, true
		}
	}
	return 0, false
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	sev, _ := ParseSeverity(name)
	*s = sev
	return nil
}

type Disaster struct {
	ID          string       `json:"id"`     // source-prefixed, e.g. "usgs_us7000abcd"
	Source      string       `json:"source"` // usgs, openweather, gdacs
	Type        DisasterType `json:"type"`
	Severity    Severity     `json:"severity"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Place       string       `json:"place,omitempty"`
	Country     string       `json:"country,omitempty"`
	Magnitude   float64      `json:"magnitude,omitempty"`
	DepthKm     float64      `json:"depth_km,omitempty"`
	WindSpeed   float64      `json:"wind_speed,omitempty"` // m/s
	AlertLevel  string       `json:"alert_level,omitempty"`
	URL         string       `json:"url,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`  // when the event occurred
	CreatedAt   time.Time    `json:"created_at"` // when we ingested it
}
