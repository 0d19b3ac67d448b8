// Package analytics derives counts, trends, hotspots and naive forecasts
// from cached disasters.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mr1hm/go-disaster-v2v/internal/geo"
	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	// trendThreshold is the relative change between the halves of the
	// window that counts as a trend.
	trendThreshold = 0.10

	hotspotCellDeg  = 1.0
	hotspotMinCount = 3
)

type Trend struct {
	Direction     string  `json:"direction"`
	FirstHalfAvg  float64 `json:"first_half_avg"`
	SecondHalfAvg float64 `json:"second_half_avg"`
	ChangePct     float64 `json:"change_pct"`
	Daily         []int   `json:"daily"`
}

type Hotspot struct {
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	Count        int                 `json:"count"`
	DominantType models.DisasterType `json:"dominant_type"`
	MaxSeverity  models.Severity     `json:"max_severity"`
}

type Prediction struct {
	Type       models.DisasterType `json:"type"`
	Count      int                 `json:"count"`
	Expected   int                 `json:"expected"`
	Trend      string              `json:"trend"`
	Confidence string              `json:"confidence"`
}

type Summary struct {
	WindowDays       int                           `json:"window_days"`
	From             time.Time                     `json:"from"`
	To               time.Time                     `json:"to"`
	Total            int                           `json:"total"`
	ByType           map[models.DisasterType]int   `json:"by_type"`
	BySeverity       map[string]int                `json:"by_severity"`
	ByDayOfWeek      map[string]int                `json:"by_day_of_week"`
	ByHour           [24]int                       `json:"by_hour"`
	ByMonth          map[string]int                `json:"by_month"`
	Trend            Trend                         `json:"trend"`
	TrendByType      map[models.DisasterType]Trend `json:"trend_by_type"`
	Hotspots         []Hotspot                     `json:"hotspots"`
	Predictions      []Prediction                  `json:"predictions"`
	AverageMagnitude float64                       `json:"average_magnitude"`
}

// Summarize aggregates the disasters that fall in the windowDays days
// ending at now. It is pure: the same input always gives the same output.
func Summarize(disasters []models.Disaster, windowDays int, now time.Time) Summary {
	if windowDays < 1 {
		windowDays = 1
	}
	from := now.Add(-time.Duration(windowDays) * 24 * time.Hour)
	in := lo.Filter(disasters, func(d models.Disaster, _ int) bool {
		return !d.Timestamp.Before(from) && !d.Timestamp.After(now)
	})

	s := Summary{
		WindowDays:  windowDays,
		From:        from,
		To:          now,
		Total:       len(in),
		ByType:      lo.CountValuesBy(in, func(d models.Disaster) models.DisasterType { return d.Type }),
		BySeverity:  lo.CountValuesBy(in, func(d models.Disaster) string { return d.Severity.String() }),
		ByDayOfWeek: make(map[string]int, 7),
		ByMonth:     lo.CountValuesBy(in, func(d models.Disaster) string { return d.Timestamp.UTC().Format("2006-01") }),
		TrendByType: make(map[models.DisasterType]Trend),
	}

	for day := time.Sunday; day <= time.Saturday; day++ {
		s.ByDayOfWeek[day.String()] = 0
	}
	for _, d := range in {
		ts := d.Timestamp.UTC()
		s.ByDayOfWeek[ts.Weekday().String()]++
		s.ByHour[ts.Hour()]++
	}

	s.Trend = trend(in, from, windowDays)
	for typ, group := range lo.GroupBy(in, func(d models.Disaster) models.DisasterType { return d.Type }) {
		s.TrendByType[typ] = trend(group, from, windowDays)
	}

	s.Hotspots = hotspots(in)
	s.Predictions = predictions(s.ByType, s.TrendByType)

	quakes := lo.Filter(in, func(d models.Disaster, _ int) bool { return d.Type == models.DisasterTypeEarthquake })
	if len(quakes) > 0 {
		sum := lo.SumBy(quakes, func(d models.Disaster) float64 { return d.Magnitude })
		s.AverageMagnitude = math.Round(sum/float64(len(quakes))*100) / 100
	}
	return s
}

// trend buckets events per day across the window and compares the average
// of the first half of the buckets with the second half. A one-day window
// is split by hour instead, since a single daily bucket has no halves.
func trend(disasters []models.Disaster, from time.Time, windowDays int) Trend {
	daily := bucket(disasters, from, 24*time.Hour, windowDays)
	halves := daily
	if windowDays == 1 {
		halves = bucket(disasters, from, time.Hour, 24)
	}

	mid := len(halves) / 2
	first, second := mean(halves[:mid]), mean(halves[mid:])
	t := Trend{
		Direction:     TrendStable,
		FirstHalfAvg:  first,
		SecondHalfAvg: second,
		Daily:         daily,
	}

	if first == 0 {
		if second > 0 {
			t.Direction = TrendIncreasing
		}
		return t
	}

	change := (second - first) / first
	t.ChangePct = math.Round(change*1000) / 10
	switch {
	case change > trendThreshold:
		t.Direction = TrendIncreasing
	case change < -trendThreshold:
		t.Direction = TrendDecreasing
	}
	return t
}

// bucket counts events into n consecutive buckets of the given width
// starting at from. Events past the last bucket land in it.
func bucket(disasters []models.Disaster, from time.Time, width time.Duration, n int) []int {
	counts := make([]int, n)
	for _, d := range disasters {
		i := int(d.Timestamp.Sub(from) / width)
		if i < 0 {
			continue
		}
		if i >= n {
			i = n - 1
		}
		counts[i]++
	}
	return counts
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	return float64(lo.Sum(xs)) / float64(len(xs))
}

func hotspots(disasters []models.Disaster) []Hotspot {
	cells := lo.GroupBy(disasters, func(d models.Disaster) geo.Cell {
		return geo.GridCell(d.Latitude, d.Longitude, hotspotCellDeg)
	})

	out := make([]Hotspot, 0)
	for cell, group := range cells {
		if len(group) < hotspotMinCount {
			continue
		}
		lat, lon := cell.Center()
		out = append(out, Hotspot{
			Latitude:     lat,
			Longitude:    lon,
			Count:        len(group),
			DominantType: dominantType(group),
			MaxSeverity:  lo.MaxBy(group, func(a, b models.Disaster) bool { return a.Severity > b.Severity }).Severity,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})
	return out
}

// dominantType breaks ties by the fixed type order.
func dominantType(group []models.Disaster) models.DisasterType {
	counts := lo.CountValuesBy(group, func(d models.Disaster) models.DisasterType { return d.Type })
	var best models.DisasterType
	for _, typ := range models.DisasterTypes {
		if counts[typ] > counts[best] {
			best = typ
		}
	}
	return best
}

// predictions extrapolates the next window per type with fixed growth
// factors and confidence bands.
func predictions(byType map[models.DisasterType]int, trends map[models.DisasterType]Trend) []Prediction {
	out := make([]Prediction, 0, len(byType))
	for _, typ := range models.DisasterTypes {
		count, ok := byType[typ]
		if !ok {
			continue
		}
		direction := trends[typ].Direction
		// ceil(count * 1.05), or ceil(count * 1.1) when increasing
		expected := (count*21 + 19) / 20
		if direction == TrendIncreasing {
			expected = (count*11 + 9) / 10
		}
		out = append(out, Prediction{
			Type:       typ,
			Count:      count,
			Expected:   expected,
			Trend:      direction,
			Confidence: confidence(count),
		})
	}
	return out
}

func confidence(count int) string {
	switch {
	case count >= 20:
		return "high"
	case count >= 5:
		return "medium"
	default:
		return "low"
	}
}
