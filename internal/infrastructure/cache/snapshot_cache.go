package cache

import (
	"context"
	"encoding/json"
	"time"

	"gridguardian-backend/internal/domain/graph"

	"go.uber.org/zap"
)

// DefaultKey is the storage key of the graph snapshot.
const DefaultKey = "latam_graph_v1"

// SnapshotCache stores the single most recent graph snapshot.
type SnapshotCache struct {
	storage Storage
	key     string
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewSnapshotCache creates a cache over storage. An empty key uses DefaultKey.
func NewSnapshotCache(storage Storage, key string, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	if key == "" {
		key = DefaultKey
	}
	return &SnapshotCache{
		storage: storage,
		key:     key,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Key returns the storage key.
func (c *SnapshotCache) Key() string { return c.key }

// TTL returns the freshness window.
func (c *SnapshotCache) TTL() time.Duration { return c.ttl }

// Load returns the stored snapshot. A missing, unreadable or malformed entry
// is reported as absent; Load never fails.
func (c *SnapshotCache) Load(ctx context.Context) (*graph.Snapshot, bool) {
	data, ok, err := c.storage.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("Snapshot storage unavailable",
			zap.String("key", c.key),
			zap.Error(err),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	snap, err := graph.ParseSnapshot(data)
	if err != nil {
		c.logger.Warn("Discarding corrupt snapshot",
			zap.String("key", c.key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return nil, false
	}
	return snap, true
}

// Save overwrites the stored snapshot. Nil neighbor lists are written as
// empty arrays so Load returns exactly what was saved.
func (c *SnapshotCache) Save(ctx context.Context, snap graph.Snapshot) error {
	data, err := json.Marshal(snap.Normalized())
	if err != nil {
		return storageError(err, "encode", c.key)
	}
	if err := c.storage.Put(ctx, c.key, data); err != nil {
		return storageError(err, "write", c.key)
	}
	c.logger.Debug("Saved snapshot",
		zap.String("key", c.key),
		zap.Int("points", len(snap.Points)),
	)
	return nil
}

// SavePoints captures points as a new snapshot stamped now and saves it.
func (c *SnapshotCache) SavePoints(ctx context.Context, points []graph.Point) (graph.Snapshot, error) {
	snap := graph.NewSnapshot(points, c.now())
	return snap, c.Save(ctx, snap)
}

// Clear removes the stored snapshot.
func (c *SnapshotCache) Clear(ctx context.Context) error {
	if err := c.storage.Delete(ctx, c.key); err != nil {
		return storageError(err, "delete", c.key)
	}
	c.logger.Info("Cleared snapshot", zap.String("key", c.key))
	return nil
}

// IsExpired reports whether snap is older than the cache TTL.
func (c *SnapshotCache) IsExpired(snap graph.Snapshot) bool {
	return graph.IsExpired(snap, c.ttl, c.now())
}

// LoadFresh returns the stored snapshot only while it is within the TTL.
func (c *SnapshotCache) LoadFresh(ctx context.Context) (*graph.Snapshot, bool) {
	snap, ok := c.Load(ctx)
	if !ok || c.IsExpired(*snap) {
		return nil, false
	}
	return snap, true
}
