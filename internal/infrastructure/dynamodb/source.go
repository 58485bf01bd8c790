package dynamodb

import (
	"context"
	"strings"
	"sync"
	"time"

	"gridguardian-backend/internal/domain/graph"
	apperrors "gridguardian-backend/internal/errors"
	"gridguardian-backend/internal/graphsync"

	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

// SourceConfig locates the point collections.
type SourceConfig struct {
	PointsPath          string
	NeighborsCollection string
	PollInterval        time.Duration
	QueryTimeout        time.Duration
}

// Source is a graphsync.PointSource over polled DynamoDB collections.
type Source struct {
	reader DocumentReader
	cfg    SourceConfig
	logger *zap.Logger

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ graphsync.PointSource = (*Source)(nil)

// NewSource creates a Source reading through reader.
func NewSource(reader DocumentReader, cfg SourceConfig, logger *zap.Logger) *Source {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.NeighborsCollection == "" {
		cfg.NeighborsCollection = "neighbors"
	}
	cfg.PointsPath = CollectionPath(cfg.PointsPath)

	root, cancel := context.WithCancel(context.Background())
	return &Source{
		reader: reader,
		cfg:    cfg,
		logger: logger,
		root:   root,
		cancel: cancel,
	}
}

// PointsPath returns the normalized points collection path.
func (s *Source) PointsPath() string {
	return s.cfg.PointsPath
}

// NeighborsPath returns the neighbor sub-collection path of a point.
func (s *Source) NeighborsPath(pointID string) string {
	return CollectionPath(s.cfg.PointsPath, pointID, s.cfg.NeighborsCollection)
}

// SubscribePoints watches the points collection.
func (s *Source) SubscribePoints(ctx context.Context, onNext func([]graph.Document), onError func(error)) (graphsync.Subscription, error) {
	return s.watch(ctx, s.cfg.PointsPath, onNext, onError)
}

// SubscribeNeighbors watches the neighbor sub-collection of pointID.
func (s *Source) SubscribeNeighbors(ctx context.Context, pointID string, onNext func([]graph.Document), onError func(error)) (graphsync.Subscription, error) {
	if strings.TrimSpace(pointID) == "" || strings.Contains(pointID, "/") {
		return nil, apperrors.Validation(string(apperrors.CodeInvalidInput), "invalid point id").
			WithOperation("subscribe_neighbors").
			WithResource(pointID).
			Build()
	}
	return s.watch(ctx, s.NeighborsPath(pointID), onNext, onError)
}

func (s *Source) watch(ctx context.Context, path string, onNext func([]graph.Document), onError func(error)) (graphsync.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, apperrors.Unavailable(string(apperrors.CodeSubscriptionFailed), "point source is closed").
			WithOperation("subscribe").
			WithResource(path).
			Build()
	}

	wctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.root, cancel)

	w := &collectionWatcher{
		reader:   s.reader,
		path:     path,
		interval: s.cfg.PollInterval,
		timeout:  s.cfg.QueryTimeout,
		onNext:   onNext,
		onError:  onError,
		logger:   s.logger,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		w.run(wctx)
	}()

	return graphsync.SubscriptionFunc(cancel), nil
}

// Close cancels every open subscription and waits for their pollers to exit.
func (s *Source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
