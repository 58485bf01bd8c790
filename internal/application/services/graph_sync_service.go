package services

import (
	"context"
	"sync"
	"time"

	"gridguardian-backend/internal/domain/graph"
	apperrors "gridguardian-backend/internal/errors"
	"gridguardian-backend/internal/graphsync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MessageGraphState is the broadcast type of graph states.
const MessageGraphState = "GRAPH_STATE"

const flushTimeout = 5 * time.Second

// SyncConfig tunes the side effects of published states.
type SyncConfig struct {
	// SaveInterval is the minimum time between snapshot writes. Zero saves every state.
	SaveInterval time.Duration
	// PublishInterval is the minimum time between bus events. Zero publishes every state.
	PublishInterval time.Duration
}

// GraphSyncService owns the live point store. It serves the cached snapshot
// while the first load is in flight and fans every published state out to
// the broadcaster, the snapshot cache and the event bus.
type GraphSyncService struct {
	store       *graphsync.PointStore
	cache       SnapshotCache
	publisher   EventPublisher
	broadcaster Broadcaster
	metrics     Metrics
	deriver     *graph.EdgeDeriver
	logger      *zap.Logger
	now         func() time.Time

	saver     *latestWorker
	announcer *latestWorker

	mu      sync.RWMutex
	warm    *graph.Snapshot
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewGraphSyncService wires the service. broadcaster and metrics may be nil.
func NewGraphSyncService(
	store *graphsync.PointStore,
	cache SnapshotCache,
	publisher EventPublisher,
	broadcaster Broadcaster,
	metrics Metrics,
	cfg SyncConfig,
	logger *zap.Logger,
) *GraphSyncService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	s := &GraphSyncService{
		store:       store,
		cache:       cache,
		publisher:   publisher,
		broadcaster: broadcaster,
		metrics:     metrics,
		deriver:     graph.NewEdgeDeriver(store.ReferenceMode()),
		logger:      logger,
		now:         time.Now,
	}
	s.saver = newLatestWorker(limiter(cfg.SaveInterval), s.saveState)
	s.announcer = newLatestWorker(limiter(cfg.PublishInterval), s.publishState)
	store.OnChange(s.onState)
	return s
}

func limiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Start loads the warm snapshot and starts live sync.
func (s *GraphSyncService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return graphsync.ErrAlreadyStarted
	}
	s.running = true

	if snap, ok := s.cache.Load(ctx); ok {
		if s.cache.IsExpired(*snap) {
			s.logger.Info("Cached snapshot expired", zap.String("created_at", snap.CreatedAt))
		} else {
			s.warm = snap
			s.logger.Info("Serving cached snapshot until live data arrives",
				zap.String("created_at", snap.CreatedAt),
				zap.Int("points", len(snap.Points)),
			)
		}
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	flush := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	}
	for _, w := range []*latestWorker{s.saver, s.announcer} {
		s.wg.Add(1)
		go func(w *latestWorker) {
			defer s.wg.Done()
			w.run(workerCtx, flush)
		}(w)
	}
	s.mu.Unlock()

	return s.store.Start(ctx)
}

// Stop ends live sync and flushes any pending snapshot write and event.
func (s *GraphSyncService) Stop() {
	s.store.Stop()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("Graph sync stopped")
}

// Current returns the live state, or the warm snapshot while the first
// load is in flight.
func (s *GraphSyncService) Current(context.Context) graph.State {
	return s.view(s.store.State())
}

func (s *GraphSyncService) view(state graph.State) graph.State {
	if !state.Loading {
		return state
	}
	s.mu.RLock()
	warm := s.warm
	s.mu.RUnlock()
	if warm == nil {
		return state
	}

	view := stateFromSnapshot(warm, s.deriver)
	view.Loading = true
	view.Err = state.Err
	view.Revision = state.Revision
	return view
}

func (s *GraphSyncService) onState(state graph.State) {
	s.metrics.ObserveState(state)

	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(MessageGraphState, s.view(state)); err != nil {
			s.logger.Warn("Failed to broadcast graph state", zap.Error(err))
		}
	}

	if state.Loading {
		return
	}

	// live data supersedes the warm snapshot
	s.mu.Lock()
	s.warm = nil
	s.mu.Unlock()

	if state.Err == nil {
		s.saver.submit(state)
	}
	s.announcer.submit(state)
}

func (s *GraphSyncService) saveState(ctx context.Context, state graph.State) {
	_, err := s.cache.SavePoints(ctx, state.Points)
	s.metrics.ObserveSnapshot("save", err)
	if err != nil {
		s.logger.Warn("Failed to save snapshot", zap.Error(err))
	}
}

func (s *GraphSyncService) publishState(ctx context.Context, state graph.State) {
	err := s.publisher.PublishGraphSynced(ctx, state)
	s.metrics.ObservePublish(err)
	if err != nil {
		s.logger.Warn("Failed to publish graph event", zap.Error(err))
	}
}

// SnapshotInfo describes the stored snapshot.
func (s *GraphSyncService) SnapshotInfo(ctx context.Context) (SnapshotInfo, bool) {
	snap, ok := s.cache.Load(ctx)
	if !ok {
		return SnapshotInfo{}, false
	}
	return snapshotInfo(s.cache.Key(), snap, s.cache.IsExpired(*snap), s.now()), true
}

// RefreshSnapshot saves the live points now.
func (s *GraphSyncService) RefreshSnapshot(ctx context.Context) (graph.Snapshot, error) {
	state := s.store.State()
	if state.Loading {
		return graph.Snapshot{}, apperrors.Unavailable(string(apperrors.CodeGraphLoading), "graph is still loading").
			WithOperation("refresh_snapshot").
			Build()
	}
	snap, err := s.cache.SavePoints(ctx, state.Points)
	s.metrics.ObserveSnapshot("refresh", err)
	return snap, err
}

// ClearSnapshot deletes the stored snapshot and drops the warm copy.
func (s *GraphSyncService) ClearSnapshot(ctx context.Context) error {
	err := s.cache.Clear(ctx)
	s.metrics.ObserveSnapshot("clear", err)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.warm = nil
	s.mu.Unlock()
	return nil
}
