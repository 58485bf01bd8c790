package graph

import "math"

// Bounds is a geographic bounding box in decimal degrees.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// ComputeBounds returns the box enclosing every point and edge endpoint, the
// same extent a map uses to fit its view. ok is false when there is nothing to fit.
func ComputeBounds(points []Point, edges []Edge) (b Bounds, ok bool) {
	b = Bounds{
		MinLat: math.Inf(1),
		MinLng: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLng: math.Inf(-1),
	}
	extend := func(lat, lng float64) {
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
		b.MinLng = math.Min(b.MinLng, lng)
		b.MaxLng = math.Max(b.MaxLng, lng)
		ok = true
	}

	for _, p := range points {
		extend(p.Lat, p.Lng)
	}
	for _, e := range edges {
		extend(e.A.Lat, e.A.Lng)
		extend(e.B.Lat, e.B.Lng)
	}
	if !ok {
		return Bounds{}, false
	}
	return b, true
}
