// Package services composes the sync engine, the snapshot cache and the
// delivery channels into the read model served by the API.
package services

import (
	"context"
	"time"

	"gridguardian-backend/internal/domain/graph"
)

// GraphReader serves the current graph and manages its snapshot.
type GraphReader interface {
	Current(ctx context.Context) graph.State
	SnapshotInfo(ctx context.Context) (SnapshotInfo, bool)
	RefreshSnapshot(ctx context.Context) (graph.Snapshot, error)
	ClearSnapshot(ctx context.Context) error
}

// SnapshotInfo describes the stored snapshot.
type SnapshotInfo struct {
	Key        string    `json:"key"`
	Version    int       `json:"version"`
	CreatedAt  string    `json:"createdAt"`
	Expired    bool      `json:"expired"`
	PointCount int       `json:"pointCount"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// SnapshotCache persists the last good point list.
type SnapshotCache interface {
	Key() string
	Load(ctx context.Context) (*graph.Snapshot, bool)
	SavePoints(ctx context.Context, points []graph.Point) (graph.Snapshot, error)
	Clear(ctx context.Context) error
	IsExpired(snap graph.Snapshot) bool
}

// EventPublisher announces published graph states.
type EventPublisher interface {
	PublishGraphSynced(ctx context.Context, state graph.State) error
}

// Broadcaster pushes messages to live clients.
type Broadcaster interface {
	Broadcast(messageType string, data any) error
}

// Metrics records service outcomes.
type Metrics interface {
	ObserveState(state graph.State)
	ObserveSnapshot(operation string, err error)
	ObservePublish(err error)
}

// GraphFetcher reads the whole graph once.
type GraphFetcher interface {
	FetchGraph(ctx context.Context) ([]graph.Point, error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveState(graph.State)     {}
func (nopMetrics) ObserveSnapshot(string, error) {}
func (nopMetrics) ObservePublish(error)          {}

func snapshotInfo(key string, snap *graph.Snapshot, expired bool, now time.Time) SnapshotInfo {
	return SnapshotInfo{
		Key:        key,
		Version:    snap.Version,
		CreatedAt:  snap.CreatedAt,
		Expired:    expired,
		PointCount: len(snap.Points),
		CheckedAt:  now.UTC(),
	}
}

func stateFromSnapshot(snap *graph.Snapshot, deriver *graph.EdgeDeriver) graph.State {
	points := graph.ClonePoints(snap.Points)
	state := graph.State{
		Points: points,
		Edges:  deriver.Derive(points),
	}
	if created, err := snap.CreatedTime(); err == nil {
		state.UpdatedAt = created
	}
	return state
}
