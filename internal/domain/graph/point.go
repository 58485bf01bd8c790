// Package graph contains the detection point model and the pure functions that
// turn a point list into the undirected edge list drawn on the map.
package graph

import (
	"encoding/json"
	"time"
)

// Point is a detection point as observed in the remote point collection.
// Neighbors holds raw references (display names or ids, see ReferenceMode).
type Point struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Neighbors []string `json:"neighbors"`
}

// WithNeighbors returns a copy of the point carrying the given neighbor list.
func (p Point) WithNeighbors(refs []string) Point {
	p.Neighbors = cloneStrings(refs)
	return p
}

// Endpoint is one side of an edge, denormalized for rendering.
type Endpoint struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Edge is an unordered pair of connected points. Edges are derived, never stored.
type Edge struct {
	A Endpoint `json:"a"`
	B Endpoint `json:"b"`
}

// Key returns the canonical key of the unordered pair.
func (e Edge) Key() string {
	return PairKey(e.A.ID, e.B.ID)
}

// Touches reports whether the edge has the given point as an endpoint.
func (e Edge) Touches(pointID string) bool {
	return e.A.ID == pointID || e.B.ID == pointID
}

// State is what the sync engine emits to the rendering layer.
type State struct {
	Points    []Point
	Edges     []Edge
	Loading   bool
	Err       error
	Revision  uint64
	UpdatedAt time.Time
}

type stateJSON struct {
	Points    []Point   `json:"points"`
	Edges     []Edge    `json:"edges"`
	Loading   bool      `json:"loading"`
	Error     *string   `json:"error"`
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON renders the error as its message, or null.
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Points:    s.Points,
		Edges:     s.Edges,
		Loading:   s.Loading,
		Revision:  s.Revision,
		UpdatedAt: s.UpdatedAt,
	}
	if out.Points == nil {
		out.Points = []Point{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	if s.Err != nil {
		msg := s.Err.Error()
		out.Error = &msg
	}
	return json.Marshal(out)
}

// FindPoint returns the point with the given id.
func (s State) FindPoint(id string) (Point, bool) {
	for _, p := range s.Points {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}

// EdgesOf returns the edges incident to the given point, in derivation order.
func (s State) EdgesOf(id string) []Edge {
	out := make([]Edge, 0)
	for _, e := range s.Edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ClonePoints deep-copies a point list so callers can hand it out safely.
func ClonePoints(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p.WithNeighbors(p.Neighbors)
	}
	return out
}
