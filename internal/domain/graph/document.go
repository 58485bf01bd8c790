package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is one document of a remote collection: its key and its fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// nested coordinate containers accepted when lat/lng are not top level
var coordinateContainers = []string{"location", "coordinates", "position"}

// PointFromDocument maps a point document to a base point. A missing name
// defaults to the id and missing coordinates default to zero. Neighbors start empty.
func PointFromDocument(doc Document) Point {
	p := Point{
		ID:        doc.ID,
		Name:      doc.ID,
		Neighbors: []string{},
	}

	if name, ok := stringField(doc.Fields, "name"); ok {
		p.Name = name
	}

	lat, hasLat := numberField(doc.Fields, "lat")
	lng, hasLng := numberField(doc.Fields, "lng")
	if !hasLat && !hasLng {
		for _, key := range coordinateContainers {
			nested, ok := doc.Fields[key].(map[string]any)
			if !ok {
				continue
			}
			lat, hasLat = numberField(nested, "lat")
			lng, hasLng = numberField(nested, "lng")
			if hasLat || hasLng {
				break
			}
		}
	}
	p.Lat = lat
	p.Lng = lng
	return p
}

// BasePoints maps a full point-collection snapshot to base points. When the
// same id appears twice only the first document is kept.
func BasePoints(docs []Document) []Point {
	points := make([]Point, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if _, dup := seen[doc.ID]; dup {
			continue
		}
		seen[doc.ID] = struct{}{}
		points = append(points, PointFromDocument(doc))
	}
	return points
}

// NeighborRefs extracts neighbor references from a neighbor sub-collection
// snapshot. By name, documents without a usable name are skipped; by id, the
// document key is the reference.
func NeighborRefs(docs []Document, mode ReferenceMode) []string {
	refs := make([]string, 0, len(docs))
	for _, doc := range docs {
		if mode == ReferenceByID {
			if doc.ID != "" {
				refs = append(refs, doc.ID)
			}
			continue
		}
		if name, ok := stringField(doc.Fields, "name"); ok {
			refs = append(refs, name)
		}
	}
	return refs
}

func stringField(fields map[string]any, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", false
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64, float32, int, int32, int64, uint, uint32, uint64, bool:
		s = fmt.Sprint(v)
	default:
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func numberField(fields map[string]any, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
