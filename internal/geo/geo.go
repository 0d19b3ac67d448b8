// Package geo holds the small amount of spherical arithmetic the service
// needs: great-circle distance, radius bounding boxes and grid binning.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

const (
	EarthRadiusKm = 6371.0
	// KmPerDegree is the length of one degree of latitude on the same sphere
	// Haversine measures.
	KmPerDegree = EarthRadiusKm * math.Pi / 180
)

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := toRad(lat1), toRad(lat2)
	dPhi, dLambda := toRad(lat2-lat1), toRad(lon2-lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Box is a lat/lon rectangle. X is longitude, Y is latitude.
type Box struct {
	bounds *geom.Bounds
}

// NewBox builds a box from explicit limits.
func NewBox(minLat, minLon, maxLat, maxLon float64) Box {
	return Box{bounds: geom.NewBounds(geom.XY).Set(minLon, minLat, maxLon, maxLat)}
}

// BoundingBox returns the degree box enclosing a circle of radiusKm around
// (lat, lon). Longitude spans the full range when the circle reaches a pole.
//
// The longitude half-width is the exact extent of the spherical cap,
// asin(sin(r/R) / cos(lat)), which is wider than r/(R cos(lat)) away from
// the equator.
func BoundingBox(lat, lon, radiusKm float64) Box {
	dLat := radiusKm / KmPerDegree
	minLat := math.Max(lat-dLat, -90)
	maxLat := math.Min(lat+dLat, 90)

	cosLat := math.Cos(toRad(lat))
	if minLat == -90 || maxLat == 90 || cosLat < 1e-9 {
		return NewBox(minLat, -180, maxLat, 180)
	}

	ratio := math.Sin(radiusKm/EarthRadiusKm) / cosLat
	if ratio >= 1 {
		return NewBox(minLat, -180, maxLat, 180)
	}
	dLon := toDeg(math.Asin(ratio))
	return NewBox(minLat, lon-dLon, maxLat, lon+dLon)
}

func (b Box) MinLat() float64 { return b.bounds.Min(1) }
func (b Box) MaxLat() float64 { return b.bounds.Max(1) }
func (b Box) MinLon() float64 { return b.bounds.Min(0) }
func (b Box) MaxLon() float64 { return b.bounds.Max(0) }

// Contains reports whether the point lies inside the box, edges included.
// Boxes that cross the antimeridian match wrapped longitudes too.
func (b Box) Contains(lat, lon float64) bool {
	for _, shift := range []float64{0, 360, -360} {
		if b.bounds.OverlapsPoint(geom.XY, geom.Coord{lon + shift, lat}) {
			return true
		}
	}
	return false
}

// LonRanges splits the longitude extent into at most two ranges inside
// [-180, 180], so that a box crossing the antimeridian can be queried.
func (b Box) LonRanges() [][2]float64 {
	minLon, maxLon := b.MinLon(), b.MaxLon()
	switch {
	case minLon < -180:
		return [][2]float64{{minLon + 360, 180}, {-180, maxLon}}
	case maxLon > 180:
		return [][2]float64{{minLon, 180}, {-180, maxLon - 360}}
	default:
		return [][2]float64{{minLon, maxLon}}
	}
}

// Cell identifies one square of a degree grid by its south-west corner.
type Cell struct {
	Lat  float64
	Lon  float64
	Size float64
}

func GridCell(lat, lon, sizeDeg float64) Cell {
	return Cell{
		Lat:  math.Floor(lat/sizeDeg) * sizeDeg,
		Lon:  math.Floor(lon/sizeDeg) * sizeDeg,
		Size: sizeDeg,
	}
}

// Center returns the midpoint of the cell.
func (c Cell) Center() (lat, lon float64) {
	return c.Lat + c.Size/2, c.Lon + c.Size/2
}
