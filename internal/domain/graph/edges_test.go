package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(id, name string, lat, lng float64, neighbors ...string) Point {
	if neighbors == nil {
		neighbors = []string{}
	}
	return Point{ID: id, Name: name, Lat: lat, Lng: lng, Neighbors: neighbors}
}

func TestDeriveEdges_ByName(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		expected []Edge
	}{
		{
			name: "single neighbor reference",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Beta"),
				point("p2", "Beta", 3, 4),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 1, Lng: 2}, B: Endpoint{ID: "p2", Lat: 3, Lng: 4}},
			},
		},
		{
			name: "mutual references produce one edge in first-seen direction",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Beta"),
				point("p2", "Beta", 3, 4, "Alpha"),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 1, Lng: 2}, B: Endpoint{ID: "p2", Lat: 3, Lng: 4}},
			},
		},
		{
			name: "unresolved reference is omitted",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Gamma"),
				point("p2", "Beta", 3, 4),
			},
			expected: []Edge{},
		},
		{
			name: "self reference is omitted",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Alpha"),
			},
			expected: []Edge{},
		},
		{
			name: "repeated reference on one point",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Beta", "Beta"),
				point("p2", "Beta", 3, 4),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 1, Lng: 2}, B: Endpoint{ID: "p2", Lat: 3, Lng: 4}},
			},
		},
		{
			name: "emission follows point order then neighbor order",
			points: []Point{
				point("p1", "Alpha", 0, 0, "Gamma", "Beta"),
				point("p2", "Beta", 1, 1, "Gamma"),
				point("p3", "Gamma", 2, 2),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 0, Lng: 0}, B: Endpoint{ID: "p3", Lat: 2, Lng: 2}},
				{A: Endpoint{ID: "p1", Lat: 0, Lng: 0}, B: Endpoint{ID: "p2", Lat: 1, Lng: 1}},
				{A: Endpoint{ID: "p2", Lat: 1, Lng: 1}, B: Endpoint{ID: "p3", Lat: 2, Lng: 2}},
			},
		},
		{
			name: "case and surrounding whitespace are ignored",
			points: []Point{
				point("p1", "Alpha", 1, 2, "  BETA "),
				point("p2", "beta", 3, 4),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 1, Lng: 2}, B: Endpoint{ID: "p2", Lat: 3, Lng: 4}},
			},
		},
		{
			name: "composed and decomposed forms match",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Sa\u0303o Paulo"),
				point("p2", "S\u00e3o Paulo", 3, 4),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 1, Lng: 2}, B: Endpoint{ID: "p2", Lat: 3, Lng: 4}},
			},
		},
		{
			name: "duplicated display name resolves to the first point",
			points: []Point{
				point("p1", "Alpha", 1, 2, "Beta"),
				point("p2", "Beta", 3, 4),
				point("p3", "Beta", 5, 6),
			},
			expected: []Edge{
				{A: Endpoint{ID: "p1", Lat: 1, Lng: 2}, B: Endpoint{ID: "p2", Lat: 3, Lng: 4}},
			},
		},
		{
			name:     "empty input",
			points:   nil,
			expected: []Edge{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			edges := DeriveEdges(tt.points)

			// Assert
			require.NotNil(t, edges)
			assert.Equal(t, tt.expected, edges)
		})
	}
}

func TestDeriveEdges_ByID(t *testing.T) {
	deriver := NewEdgeDeriver(ReferenceByID)
	points := []Point{
		point("p1", "Alpha", 1, 2, "p2", "Beta"),
		point("p2", "Beta", 3, 4, "p1"),
	}

	edges := deriver.Derive(points)

	require.Len(t, edges, 1)
	assert.Equal(t, "p1", edges[0].A.ID)
	assert.Equal(t, "p2", edges[0].B.ID)
	assert.Equal(t, ReferenceByID, deriver.Mode())
}

func TestDeriveEdges_Properties(t *testing.T) {
	points := []Point{
		point("a", "A", 0, 0, "B", "C", "D"),
		point("b", "B", 1, 0, "A", "C"),
		point("c", "C", 0, 1, "A", "Missing"),
		point("d", "D", 1, 1, "D"),
	}

	first := DeriveEdges(points)
	second := DeriveEdges(points)

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, first, second)
	})

	t.Run("no duplicate unordered pairs", func(t *testing.T) {
		keys := make(map[string]struct{})
		for _, e := range first {
			_, dup := keys[e.Key()]
			assert.False(t, dup, "duplicate pair %s", e.Key())
			keys[e.Key()] = struct{}{}
		}
		assert.Len(t, keys, 4)
	})

	t.Run("endpoints carry point coordinates", func(t *testing.T) {
		byID := make(map[string]Point)
		for _, p := range points {
			byID[p.ID] = p
		}
		for _, e := range first {
			assert.NotEqual(t, e.A.ID, e.B.ID)
			assert.Equal(t, byID[e.A.ID].Lat, e.A.Lat)
			assert.Equal(t, byID[e.A.ID].Lng, e.A.Lng)
			assert.Equal(t, byID[e.B.ID].Lat, e.B.Lat)
			assert.Equal(t, byID[e.B.ID].Lng, e.B.Lng)
		}
	})
}

func TestParseReferenceMode(t *testing.T) {
	tests := []struct {
		input    string
		expected ReferenceMode
		wantErr  bool
	}{
		{input: "", expected: ReferenceByName},
		{input: "name", expected: ReferenceByName},
		{input: " ID ", expected: ReferenceByID},
		{input: "slug", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseReferenceMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "a::b", PairKey("a", "b"))
	assert.Equal(t, "a::b", PairKey("b", "a"))
}

func TestNameNormalizer(t *testing.T) {
	n := NewNameNormalizer()

	assert.Equal(t, "", n.Normalize("   "))
	assert.Equal(t, n.Normalize("STRASSE"), n.Normalize("strasse"))
	assert.Equal(t, n.Normalize("Brasília"), n.Normalize("BRASÍLIA"))
}
