package geo

import (
	"math"
	"sort"
)

const (
	// DeliveryRadiusMeters is the default pickup radius for nearby-order queries.
	DeliveryRadiusMeters = 2000.0
	// EarthRadiusMeters is Earth's radius in meters for Haversine calculation.
	EarthRadiusMeters = 6371000.0
)

// Point is a geographic coordinate pair.
type Point struct {
	Lng float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

// IsZero reports whether the point is unset. Exactly (0,0) counts as missing.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// DistanceMeters calculates the great-circle distance between two points
// on Earth in meters using the Haversine formula.
func DistanceMeters(a, b Point) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * degToRad
	dLng := (b.Lng - a.Lng) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*degToRad)*math.Cos(b.Lat*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// WithinRadius checks if two coordinates are within the specified radius (in meters).
func WithinRadius(a, b Point, radiusMeters float64) bool {
	return DistanceMeters(a, b) <= radiusMeters
}

// Resolve returns the first non-missing point from the given candidates.
// Used to fall back from an order's stored coordinates to the restaurant's
// location and then to the first item author's location.
func Resolve(candidates ...Point) (Point, bool) {
	for _, p := range candidates {
		if !p.IsZero() {
			return p, true
		}
	}
	return Point{}, false
}

// SortByDistance orders candidates by ascending great-circle distance from
// origin. The slice is sorted in place; dist reports the candidate's point.
func SortByDistance[T any](origin Point, candidates []T, point func(T) Point) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return DistanceMeters(origin, point(candidates[i])) < DistanceMeters(origin, point(candidates[j]))
	})
}
