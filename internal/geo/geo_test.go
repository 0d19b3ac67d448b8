package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	// Austin to Dallas, roughly 293 km.
	d := Haversine(30.2672, -97.7431, 32.7767, -96.7970)
	assert.InDelta(t, 293, d, 5)

	assert.InDelta(t, 0, Haversine(35, 139, 35, 139), 0.0001)

	// One degree of latitude.
	assert.InDelta(t, 111.19, Haversine(0, 0, 1, 0), 0.1)
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox(35.0, 139.0, 10)

	assert.InDelta(t, 35.0-10/KmPerDegree, box.MinLat(), 1e-9)
	assert.InDelta(t, 35.0+10/KmPerDegree, box.MaxLat(), 1e-9)
	assert.Less(t, box.MinLon(), 139.0)
	assert.Greater(t, box.MaxLon(), 139.0)
	// Longitude span widens away from the equator.
	assert.Greater(t, box.MaxLon()-box.MinLon(), box.MaxLat()-box.MinLat())

	assert.True(t, box.Contains(35.0, 139.0))
	assert.True(t, box.Contains(35.05, 139.05))
	assert.False(t, box.Contains(35.5, 139.0))
}

// destination walks km along the great circle from (lat, lon) at the given
// bearing, measured clockwise from north.
func destination(lat, lon, bearingDeg, km float64) (float64, float64) {
	phi1, lambda1, theta := toRad(lat), toRad(lon), toRad(bearingDeg)
	delta := km / EarthRadiusKm

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)
	return toDeg(phi2), toDeg(lambda2)
}

func TestKmPerDegree_MatchesHaversine(t *testing.T) {
	assert.InDelta(t, Haversine(0, 0, 1, 0), KmPerDegree, 1e-9)
	assert.InDelta(t, Haversine(45, 10, 46, 10), KmPerDegree, 1e-9)
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	for _, tc := range []struct {
		name     string
		lat, lon float64
		radius   float64
	}{
		{"equator", 0, 0, 10},
		{"austin", 30, -97, 5},
		{"london", 51.5, -0.12, 25},
		{"oslo", 59.9, 10.75, 100},
		{"svalbard", 78.2, 15.6, 300},
	} {
		t.Run(tc.name, func(t *testing.T) {
			box := BoundingBox(tc.lat, tc.lon, tc.radius)

			// Every point just inside the circle, in any direction, is inside the box.
			for bearing := 0.0; bearing < 360; bearing += 5 {
				lat, lon := destination(tc.lat, tc.lon, bearing, tc.radius*0.999)
				require.LessOrEqual(t, Haversine(tc.lat, tc.lon, lat, lon), tc.radius)
				assert.True(t, box.Contains(lat, lon), "bearing %.0f: (%f, %f) outside box", bearing, lat, lon)
			}

			// Due north and due south land right at the latitude limits.
			lat, _ := destination(tc.lat, tc.lon, 0, tc.radius)
			assert.InDelta(t, box.MaxLat(), lat, 1e-9)
			lat, _ = destination(tc.lat, tc.lon, 180, tc.radius)
			assert.InDelta(t, box.MinLat(), lat, 1e-9)
		})
	}
}

func TestBoundingBox_Pole(t *testing.T) {
	box := BoundingBox(89.99, 10, 50)
	assert.Equal(t, 90.0, box.MaxLat())
	assert.Equal(t, -180.0, box.MinLon())
	assert.Equal(t, 180.0, box.MaxLon())
}

func TestGridCell(t *testing.T) {
	c := GridCell(35.7, -118.2, 1)
	assert.Equal(t, 35.0, c.Lat)
	assert.Equal(t, -119.0, c.Lon)

	lat, lon := c.Center()
	assert.Equal(t, 35.5, lat)
	assert.Equal(t, -118.5, lon)
}

func TestBoundingBox_Antimeridian(t *testing.T) {
	box := BoundingBox(0, 179.95, 20)

	ranges := box.LonRanges()
	assert.Len(t, ranges, 2)
	assert.Equal(t, 180.0, ranges[0][1])
	assert.Equal(t, -180.0, ranges[1][0])

	assert.True(t, box.Contains(0, -179.98))
	assert.False(t, box.Contains(0, -170))
}
