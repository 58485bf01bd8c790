package graph

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ReferenceMode selects how neighbor references are resolved to points.
// A deployment uses exactly one mode.
type ReferenceMode string

const (
	// ReferenceByName resolves references against normalized display names.
	ReferenceByName ReferenceMode = "name"
	// ReferenceByID resolves references against point ids, exact match.
	ReferenceByID ReferenceMode = "id"
)

// ParseReferenceMode parses a configured mode; empty means ReferenceByName.
func ParseReferenceMode(s string) (ReferenceMode, error) {
	switch ReferenceMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReferenceByName:
		return ReferenceByName, nil
	case ReferenceByID:
		return ReferenceByID, nil
	default:
		return "", fmt.Errorf("unknown neighbor reference mode %q", s)
	}
}

const pairSeparator = "::"

// PairKey is the canonical key of an unordered pair of point ids.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + pairSeparator + b
}

// EdgeDeriver turns a point list into a deduplicated undirected edge list.
// It has no state besides its resolution mode and is safe for concurrent use.
type EdgeDeriver struct {
	mode ReferenceMode
}

// NewEdgeDeriver creates a deriver for the given mode.
func NewEdgeDeriver(mode ReferenceMode) *EdgeDeriver {
	if mode == "" {
		mode = ReferenceByName
	}
	return &EdgeDeriver{mode: mode}
}

// Mode returns the resolution mode.
func (d *EdgeDeriver) Mode() ReferenceMode {
	return d.mode
}

// DeriveEdges derives edges resolving references by display name.
func DeriveEdges(points []Point) []Edge {
	return NewEdgeDeriver(ReferenceByName).Derive(points)
}

// Derive recomputes the full edge list. Emission follows point order and,
// within a point, neighbor order; the first direction seen for a pair wins.
// Unresolved and self references are skipped.
func (d *EdgeDeriver) Derive(points []Point) []Edge {
	resolve := d.lookup(points)
	seen := make(map[string]struct{})
	edges := make([]Edge, 0)

	for _, p := range points {
		for _, ref := range p.Neighbors {
			q, ok := resolve(ref)
			if !ok || q.ID == p.ID {
				continue
			}
			key := PairKey(p.ID, q.ID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, Edge{
				A: Endpoint{ID: p.ID, Lat: p.Lat, Lng: p.Lng},
				B: Endpoint{ID: q.ID, Lat: q.Lat, Lng: q.Lng},
			})
		}
	}
	return edges
}

func (d *EdgeDeriver) lookup(points []Point) func(string) (Point, bool) {
	if d.mode == ReferenceByID {
		index := make(map[string]Point, len(points))
		for _, p := range points {
			if _, exists := index[p.ID]; !exists {
				index[p.ID] = p
			}
		}
		return func(ref string) (Point, bool) {
			p, ok := index[ref]
			return p, ok
		}
	}

	// Casers are stateful, so each derivation gets its own.
	normalizer := NewNameNormalizer()
	index := make(map[string]Point, len(points))
	for _, p := range points {
		key := normalizer.Normalize(p.Name)
		if key == "" {
			continue
		}
		if _, exists := index[key]; !exists {
			index[key] = p
		}
	}
	return func(ref string) (Point, bool) {
		p, ok := index[normalizer.Normalize(ref)]
		return p, ok
	}
}

// NameNormalizer builds lookup keys for display names: trimmed, NFC, case folded.
// Not safe for concurrent use.
type NameNormalizer struct {
	fold cases.Caser
}

// NewNameNormalizer creates a normalizer.
func NewNameNormalizer() *NameNormalizer {
	return &NameNormalizer{fold: cases.Fold()}
}

// Normalize returns the lookup key for a display name.
func (n *NameNormalizer) Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return n.fold.String(norm.NFC.String(trimmed))
}
