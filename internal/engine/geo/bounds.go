// Package geo computes map extents and proximity over business coordinates.
package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/egemenmermer/business-extractor/internal/model"
)

// Point returns b's position. orb.Point is [lng, lat].
func Point(b model.Business) orb.Point {
	return orb.Point{b.Longitude, b.Latitude}
}

// Bound is the smallest box holding every business with coordinates. ok is
// false when none has any.
func Bound(businesses []model.Business) (bound orb.Bound, ok bool) {
	var mp orb.MultiPoint
	for _, b := range businesses {
		if b.HasCoords() {
			mp = append(mp, Point(b))
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}, false
	}
	return mp.Bound(), true
}

// Padded grows b by frac of its size on every side, with a minimum margin
// so a single point still yields a visible box.
func Padded(b orb.Bound, frac float64) orb.Bound {
	const minMargin = 0.005 // ~500 m
	dx := (b.Max.X() - b.Min.X()) * frac
	dy := (b.Max.Y() - b.Min.Y()) * frac
	dx = max(dx, minMargin)
	dy = max(dy, minMargin)
	return orb.Bound{
		Min: orb.Point{b.Min.X() - dx, b.Min.Y() - dy},
		Max: orb.Point{b.Max.X() + dx, b.Max.Y() + dy},
	}
}

// Within keeps the businesses inside bound.
func Within(businesses []model.Business, bound orb.Bound) []model.Business {
	var out []model.Business
	for _, b := range businesses {
		if b.HasCoords() && bound.Contains(Point(b)) {
			out = append(out, b)
		}
	}
	return out
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / 1000
}

// Centroid is the mean position of the businesses with coordinates.
func Centroid(businesses []model.Business) (orb.Point, bool) {
	var sumX, sumY float64
	n := 0
	for _, b := range businesses {
		if b.HasCoords() {
			sumX += b.Longitude
			sumY += b.Latitude
			n++
		}
	}
	if n == 0 {
		return orb.Point{}, false
	}
	return orb.Point{sumX / float64(n), sumY / float64(n)}, true
}
