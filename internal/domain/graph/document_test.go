package graph

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointFromDocument(t *testing.T) {
	tests := []struct {
		name     string
		doc      Document
		expected Point
	}{
		{
			name: "complete document",
			doc: Document{ID: "p1", Fields: map[string]any{
				"name": "Alpha", "lat": -12.5, "lng": -55.25,
			}},
			expected: Point{ID: "p1", Name: "Alpha", Lat: -12.5, Lng: -55.25, Neighbors: []string{}},
		},
		{
			name:     "missing fields fall back to defaults",
			doc:      Document{ID: "p2", Fields: map[string]any{}},
			expected: Point{ID: "p2", Name: "p2", Lat: 0, Lng: 0, Neighbors: []string{}},
		},
		{
			name: "blank name falls back to id",
			doc: Document{ID: "p3", Fields: map[string]any{
				"name": "  ", "lat": 1, "lng": int64(2),
			}},
			expected: Point{ID: "p3", Name: "p3", Lat: 1, Lng: 2, Neighbors: []string{}},
		},
		{
			name: "nested location",
			doc: Document{ID: "p4", Fields: map[string]any{
				"name":     "Delta",
				"location": map[string]any{"lat": "-3.5", "lng": json.Number("-60.1")},
			}},
			expected: Point{ID: "p4", Name: "Delta", Lat: -3.5, Lng: -60.1, Neighbors: []string{}},
		},
		{
			name: "malformed coordinates default to zero",
			doc: Document{ID: "p5", Fields: map[string]any{
				"lat": "north", "lng": []any{1},
			}},
			expected: Point{ID: "p5", Name: "p5", Lat: 0, Lng: 0, Neighbors: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PointFromDocument(tt.doc))
		})
	}
}

func TestBasePoints_FirstOccurrenceWins(t *testing.T) {
	docs := []Document{
		{ID: "p1", Fields: map[string]any{"name": "First"}},
		{ID: "", Fields: map[string]any{"name": "Anonymous"}},
		{ID: "p2", Fields: map[string]any{"name": "Second"}},
		{ID: "p1", Fields: map[string]any{"name": "Shadowed"}},
	}

	points := BasePoints(docs)

	require.Len(t, points, 2)
	assert.Equal(t, "First", points[0].Name)
	assert.Equal(t, "Second", points[1].Name)
}

func TestNeighborRefs(t *testing.T) {
	docs := []Document{
		{ID: "n1", Fields: map[string]any{"name": "Beta"}},
		{ID: "n2", Fields: map[string]any{}},
		{ID: "n3", Fields: map[string]any{"name": 42.0}},
	}

	assert.Equal(t, []string{"Beta", "42"}, NeighborRefs(docs, ReferenceByName))
	assert.Equal(t, []string{"n1", "n2", "n3"}, NeighborRefs(docs, ReferenceByID))
	assert.Equal(t, []string{}, NeighborRefs(nil, ReferenceByName))
}

func TestParseSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		points  int
	}{
		{name: "valid", payload: `{"version":1,"createdAt":"2024-01-01T00:00:00Z","points":[{"id":"p1","name":"A","lat":1,"lng":2}]}`, points: 1},
		{name: "empty points array", payload: `{"points":[]}`, points: 0},
		{name: "missing points", payload: `{"version":1}`, wantErr: true},
		{name: "points is an object", payload: `{"points":{"p1":{}}}`, wantErr: true},
		{name: "points is null", payload: `{"points":null}`, wantErr: true},
		{name: "not json", payload: `{{{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseSnapshot([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, snap)
				return
			}
			require.NoError(t, err)
			assert.Len(t, snap.Points, tt.points)
			for _, p := range snap.Points {
				assert.NotNil(t, p.Neighbors)
			}
		})
	}

	_, err := ParseSnapshot([]byte(`{"points":"nope"}`))
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))
}

func TestSnapshotExpiry(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot([]Point{point("p1", "A", 0, 0)}, created)

	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.False(t, IsExpired(snap, time.Hour, created.Add(30*time.Minute)))
	assert.False(t, IsExpired(snap, time.Hour, created.Add(time.Hour)))
	assert.True(t, IsExpired(snap, time.Hour, created.Add(time.Hour+time.Millisecond)))

	snap.CreatedAt = "yesterday"
	assert.True(t, IsExpired(snap, time.Hour, created))
}

func TestSnapshotCreatedTime(t *testing.T) {
	local := time.Date(2024, 3, 1, 10, 30, 0, 0, time.Local)
	tests := []struct {
		createdAt string
		want      time.Time
	}{
		{"2024-03-01T10:30:00Z", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-03-01T10:30:00.123456789Z", time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.UTC)},
		{"2024-03-01T10:30:00.5-05:00", time.Date(2024, 3, 1, 15, 30, 0, 500000000, time.UTC)},
		{"2024-03-01T10:30:00+0200", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"2024-03-01T10:30Z", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-03-01T10:30:00", local},
		{"2024-03-01T10:30", local},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.createdAt, func(t *testing.T) {
			got, err := Snapshot{CreatedAt: tt.createdAt}.CreatedTime()

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "yesterday", "2024-13-01", "01/03/2024"} {
		_, err := Snapshot{CreatedAt: bad}.CreatedTime()
		assert.Error(t, err, bad)
	}
}

func TestSnapshotExpiry_DateOnly(t *testing.T) {
	snap := Snapshot{CreatedAt: "2024-03-01", Points: []Point{}}
	midnight := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsExpired(snap, time.Hour, midnight.Add(59*time.Minute)))
	assert.True(t, IsExpired(snap, time.Hour, midnight.Add(2*time.Hour)))
}

func TestSnapshotNormalized(t *testing.T) {
	snap := Snapshot{Version: 1, CreatedAt: "2024-03-01T00:00:00Z", Points: []Point{{ID: "p1", Name: "A"}}}

	out := snap.Normalized()

	assert.Equal(t, []string{}, out.Points[0].Neighbors)
	assert.Nil(t, snap.Points[0].Neighbors, "the receiver is not modified")
	assert.NotNil(t, Snapshot{}.Normalized().Points)
}

func TestNewSnapshot_CopiesPoints(t *testing.T) {
	points := []Point{point("p1", "A", 0, 0, "B")}
	snap := NewSnapshot(points, time.Now())

	points[0].Neighbors[0] = "changed"

	assert.Equal(t, "B", snap.Points[0].Neighbors[0])
}

func TestComputeBounds(t *testing.T) {
	points := []Point{
		point("p1", "A", -10, -50),
		point("p2", "B", 5, -70),
	}
	edges := []Edge{
		{A: Endpoint{ID: "p1", Lat: -10, Lng: -50}, B: Endpoint{ID: "x", Lat: -20, Lng: -40}},
	}

	b, ok := ComputeBounds(points, edges)

	require.True(t, ok)
	assert.Equal(t, Bounds{MinLat: -20, MinLng: -70, MaxLat: 5, MaxLng: -40}, b)
	lat, lng := b.Center()
	assert.InDelta(t, -7.5, lat, 1e-9)
	assert.InDelta(t, -55.0, lng, 1e-9)

	_, ok = ComputeBounds(nil, nil)
	assert.False(t, ok)
}

func TestStateJSON(t *testing.T) {
	state := State{Loading: true, Err: errors.New("boom")}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["points"])
	assert.Equal(t, []any{}, decoded["edges"])
	assert.Equal(t, true, decoded["loading"])
	assert.Equal(t, "boom", decoded["error"])

	data, err = json.Marshal(State{})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded["error"])
}
