package services

import (
	"context"
	"time"

	"gridguardian-backend/internal/domain/graph"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotGraphReader serves the graph from the snapshot cache and refetches
// it on demand once the snapshot expires. It suits short-lived processes that
// cannot hold live subscriptions.
type SnapshotGraphReader struct {
	cache   SnapshotCache
	fetcher GraphFetcher
	deriver *graph.EdgeDeriver
	metrics Metrics
	group   singleflight.Group
	now     func() time.Time
	logger  *zap.Logger
}

// NewSnapshotGraphReader creates a SnapshotGraphReader. metrics may be nil.
func NewSnapshotGraphReader(cache SnapshotCache, fetcher GraphFetcher, mode graph.ReferenceMode, metrics Metrics, logger *zap.Logger) *SnapshotGraphReader {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &SnapshotGraphReader{
		cache:   cache,
		fetcher: fetcher,
		deriver: graph.NewEdgeDeriver(mode),
		metrics: metrics,
		now:     time.Now,
		logger:  logger,
	}
}

// Current serves a fresh snapshot, or fetches and stores a new one. When the
// fetch fails the stale snapshot is served with the error attached.
func (r *SnapshotGraphReader) Current(ctx context.Context) graph.State {
	snap, ok := r.cache.Load(ctx)
	if ok && !r.cache.IsExpired(*snap) {
		return stateFromSnapshot(snap, r.deriver)
	}

	v, err, _ := r.group.Do(r.cache.Key(), func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		r.logger.Warn("Graph fetch failed", zap.Error(err), zap.Bool("stale_available", ok))
		if ok {
			state := stateFromSnapshot(snap, r.deriver)
			state.Err = err
			return state
		}
		return graph.State{Points: []graph.Point{}, Edges: []graph.Edge{}, Err: err, UpdatedAt: r.now()}
	}
	fresh := v.(graph.Snapshot)
	return stateFromSnapshot(&fresh, r.deriver)
}

func (r *SnapshotGraphReader) refresh(ctx context.Context) (graph.Snapshot, error) {
	points, err := r.fetcher.FetchGraph(ctx)
	if err != nil {
		return graph.Snapshot{}, err
	}
	snap, err := r.cache.SavePoints(ctx, points)
	r.metrics.ObserveSnapshot("save", err)
	if err != nil {
		// the fetched graph is still good to serve
		r.logger.Warn("Failed to save snapshot", zap.Error(err))
		return graph.NewSnapshot(points, r.now()), nil
	}
	return snap, nil
}

// SnapshotInfo describes the stored snapshot.
func (r *SnapshotGraphReader) SnapshotInfo(ctx context.Context) (SnapshotInfo, bool) {
	snap, ok := r.cache.Load(ctx)
	if !ok {
		return SnapshotInfo{}, false
	}
	return snapshotInfo(r.cache.Key(), snap, r.cache.IsExpired(*snap), r.now()), true
}

// RefreshSnapshot fetches the graph and stores it regardless of age.
func (r *SnapshotGraphReader) RefreshSnapshot(ctx context.Context) (graph.Snapshot, error) {
	v, err, _ := r.group.Do(r.cache.Key(), func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return graph.Snapshot{}, err
	}
	return v.(graph.Snapshot), nil
}

// ClearSnapshot deletes the stored snapshot.
func (r *SnapshotGraphReader) ClearSnapshot(ctx context.Context) error {
	err := r.cache.Clear(ctx)
	r.metrics.ObserveSnapshot("clear", err)
	return err
}

var (
	_ GraphReader = (*GraphSyncService)(nil)
	_ GraphReader = (*SnapshotGraphReader)(nil)
)
