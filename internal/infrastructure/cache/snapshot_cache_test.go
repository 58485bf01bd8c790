package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gridguardian-backend/internal/domain/graph"
	apperrors "gridguardian-backend/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingStorage) Put(context.Context, string, []byte) error         { return f.err }
func (f failingStorage) Delete(context.Context, string) error              { return f.err }

var samplePoints = []graph.Point{
	{ID: "A", Name: "Alpha", Lat: -10, Lng: -50, Neighbors: []string{"Beta"}},
	{ID: "B", Name: "Beta", Lat: -12, Lng: -52, Neighbors: []string{}},
}

func storages(t *testing.T) map[string]Storage {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStorage(filepath.Join(dir, "files"))
	require.NoError(t, err)
	db, err := OpenSQLiteStorage(filepath.Join(dir, "db", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Storage{
		BackendMemory: NewMemoryStorage(4, zap.NewNop()),
		BackendFile:   file,
		BackendSQLite: db,
	}
}

func TestSnapshotCache_RoundTrip(t *testing.T) {
	for name, storage := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := NewSnapshotCache(storage, "", time.Hour, zap.NewNop())
			assert.Equal(t, DefaultKey, c.Key())

			// Absent before the first save.
			_, ok := c.Load(ctx)
			assert.False(t, ok)

			// Act
			saved, err := c.SavePoints(ctx, samplePoints)
			require.NoError(t, err)

			// Assert
			loaded, ok := c.Load(ctx)
			require.True(t, ok)
			assert.Equal(t, graph.SnapshotVersion, loaded.Version)
			assert.Equal(t, saved.CreatedAt, loaded.CreatedAt)
			assert.Equal(t, samplePoints, loaded.Points)

			require.NoError(t, c.Clear(ctx))
			_, ok = c.Load(ctx)
			assert.False(t, ok)
			require.NoError(t, c.Clear(ctx), "clearing twice is fine")
		})
	}
}

func TestSnapshotCache_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewSnapshotCache(NewMemoryStorage(1, nil), "k", time.Hour, zap.NewNop())

	_, err := c.SavePoints(ctx, samplePoints)
	require.NoError(t, err)
	_, err = c.SavePoints(ctx, samplePoints[:1])
	require.NoError(t, err)

	loaded, ok := c.Load(ctx)
	require.True(t, ok)
	assert.Len(t, loaded.Points, 1)
}

func TestSnapshotCache_CorruptEntriesAreAbsent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{{{"},
		{name: "missing points", payload: `{"version":1,"createdAt":"2024-01-01T00:00:00Z"}`},
		{name: "points not an array", payload: `{"version":1,"points":{"A":1}}`},
		{name: "points null", payload: `{"version":1,"points":null}`},
		{name: "json array", payload: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			storage := NewMemoryStorage(2, nil)
			require.NoError(t, storage.Put(ctx, DefaultKey, []byte(tt.payload)))

			core, logs := observer.New(zap.WarnLevel)
			c := NewSnapshotCache(storage, DefaultKey, time.Hour, zap.New(core))

			snap, ok := c.Load(ctx)

			assert.False(t, ok)
			assert.Nil(t, snap)
			assert.Equal(t, 1, logs.FilterMessage("Discarding corrupt snapshot").Len())
		})
	}
}

func TestSnapshotCache_SaveNormalizesNilNeighbors(t *testing.T) {
	ctx := context.Background()
	c := NewSnapshotCache(NewMemoryStorage(1, nil), DefaultKey, time.Hour, zap.NewNop())
	snap := graph.Snapshot{
		Version:   graph.SnapshotVersion,
		CreatedAt: "2024-03-01T10:00:00Z",
		Points:    []graph.Point{{ID: "A", Name: "Alpha"}, {ID: "B", Name: "Beta", Neighbors: []string{"Alpha"}}},
	}

	require.NoError(t, c.Save(ctx, snap))
	loaded, ok := c.Load(ctx)

	require.True(t, ok)
	assert.Equal(t, snap.Normalized(), *loaded)
	assert.Equal(t, []string{}, loaded.Points[0].Neighbors)
	assert.Nil(t, snap.Points[0].Neighbors, "caller's snapshot untouched")

	require.NoError(t, c.Save(ctx, *loaded))
	again, ok := c.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, *loaded, *again)
}

func TestSnapshotCache_StorageFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	c := NewSnapshotCache(failingStorage{err: boom}, DefaultKey, time.Hour, zap.NewNop())
	ctx := context.Background()

	_, ok := c.Load(ctx)
	assert.False(t, ok)

	err := c.Save(ctx, graph.NewSnapshot(samplePoints, time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, string(apperrors.CodeCacheError), apperrors.As(err).Code)

	err = c.Clear(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, string(apperrors.CodeCacheError), apperrors.As(err).Code)
	assert.Equal(t, "delete", apperrors.As(err).Operation)
}

func TestSnapshotCache_StorageFailureKeepsClassifiedErrors(t *testing.T) {
	throttled := apperrors.RateLimit(string(apperrors.CodeRateLimitExceeded), "throttled").Build()
	c := NewSnapshotCache(failingStorage{err: throttled}, DefaultKey, time.Hour, zap.NewNop())

	err := c.Save(context.Background(), graph.NewSnapshot(samplePoints, time.Now()))

	require.Error(t, err)
	assert.Equal(t, string(apperrors.CodeRateLimitExceeded), apperrors.As(err).Code)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSnapshotCache_Expiry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewSnapshotCache(NewMemoryStorage(1, nil), DefaultKey, 10*time.Minute, zap.NewNop())
	c.now = func() time.Time { return base }

	snap, err := c.SavePoints(ctx, samplePoints)
	require.NoError(t, err)
	assert.False(t, c.IsExpired(snap))

	_, ok := c.LoadFresh(ctx)
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(10 * time.Minute) }
	assert.False(t, c.IsExpired(snap), "exactly ttl old is still fresh")

	c.now = func() time.Time { return base.Add(10*time.Minute + time.Millisecond) }
	assert.True(t, c.IsExpired(snap))
	_, ok = c.LoadFresh(ctx)
	assert.False(t, ok)

	assert.True(t, c.IsExpired(graph.Snapshot{CreatedAt: "yesterday"}))
}

func TestMemoryStorage_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage(2, nil)

	require.NoError(t, m.Put(ctx, "a", []byte("1")))
	require.NoError(t, m.Put(ctx, "b", []byte("2")))
	_, _, _ = m.Get(ctx, "a")
	require.NoError(t, m.Put(ctx, "c", []byte("3")))

	_, ok, _ := m.Get(ctx, "b")
	assert.False(t, ok)
	v, ok, _ := m.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage(1, nil)
	data := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", data))
	data[0] = 'x'

	v, _, _ := m.Get(ctx, "k")
	v[1] = 'y'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestFileStorage_SanitizesKeys(t *testing.T) {
	ctx := context.Background()
	f, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.Put(ctx, "../escape/key", []byte("x")))

	assert.FileExists(t, filepath.Join(f.dir, ".._escape_key.json"))
	v, ok, err := f.Get(ctx, "../escape/key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), v)
}
