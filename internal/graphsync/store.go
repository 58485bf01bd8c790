package graphsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"gridguardian-backend/internal/domain/graph"
	apperrors "gridguardian-backend/internal/errors"

	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by Start on a running store.
var ErrAlreadyStarted = errors.New("point store already started")

// Listener receives every published state on the store's loop goroutine.
// A listener must not call Stop.
type Listener func(graph.State)

// Option configures a PointStore.
type Option func(*PointStore)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *PointStore) { s.logger = logger }
}

// WithReferenceMode sets how neighbor references resolve to points.
func WithReferenceMode(mode graph.ReferenceMode) Option {
	return func(s *PointStore) { s.deriver = graph.NewEdgeDeriver(mode) }
}

// WithListener registers a listener at construction time.
func WithListener(l Listener) Option {
	return func(s *PointStore) { s.listeners = append(s.listeners, l) }
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *PointStore) { s.observer = o }
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *PointStore) { s.now = now }
}

type eventKind int

const (
	eventPoints eventKind = iota
	eventPointsError
	eventNeighbors
	eventNeighborsError
	eventStarted
)

type event struct {
	kind   eventKind
	run    *run
	handle *Handle
	docs   []graph.Document
	err    error
}

// run is one Start..Stop cycle. Callbacks hold the run they were opened in so
// that deliveries from an earlier cycle are recognizable.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  *eventQueue
	done   chan struct{}
}

// PointStore owns the live point list. Base updates reconcile the neighbor
// subscriptions; neighbor updates replace one point's neighbor list; every
// change recomputes the edges and publishes a new State.
type PointStore struct {
	source    PointSource
	deriver   *graph.EdgeDeriver
	logger    *zap.Logger
	observer  Observer
	now       func() time.Time
	listeners []Listener

	mu        sync.Mutex
	cur       *run
	pointsSub Subscription
	registry  *SubscriptionRegistry
	index     map[string]int
	state     graph.State
}

// NewPointStore creates an idle store reading from source.
func NewPointStore(source PointSource, opts ...Option) *PointStore {
	s := &PointStore{
		source:   source,
		deriver:  graph.NewEdgeDeriver(graph.ReferenceByName),
		logger:   zap.NewNop(),
		observer: nopObserver{},
		now:      time.Now,
		registry: NewSubscriptionRegistry(),
		index:    make(map[string]int),
		state:    emptyState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptyState() graph.State {
	return graph.State{Points: []graph.Point{}, Edges: []graph.Edge{}}
}

// OnChange registers a listener. Listeners added while running receive the
// next published state.
func (s *PointStore) OnChange(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Start subscribes to the point collection and returns immediately. Data
// arrives through the source's callbacks. A failed subscription is captured as
// the state error, not returned. The store keeps ctx values but not its
// cancellation; only Stop ends the subscriptions.
func (s *PointStore) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cur != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		ctx:    runCtx,
		cancel: cancel,
		queue:  newEventQueue(),
		done:   make(chan struct{}),
	}
	s.cur = r
	s.index = make(map[string]int)
	s.state = emptyState()
	s.state.Loading = true
	s.state.UpdatedAt = s.now()
	s.state.Revision++
	// Listeners see the loading state from the loop like every other state.
	r.queue.push(event{kind: eventStarted, run: r})

	sub, err := s.source.SubscribePoints(runCtx,
		func(docs []graph.Document) { r.queue.push(event{kind: eventPoints, run: r, docs: docs}) },
		func(err error) { r.queue.push(event{kind: eventPointsError, run: r, err: err}) },
	)
	if err != nil {
		s.state.Err = apperrors.Connection(string(apperrors.CodeSubscriptionFailed), "cannot subscribe to point collection").
			WithOperation("subscribe_points").
			WithCause(err).
			Build()
		s.state.Loading = false
		s.observer.ErrorCaptured("points")
		s.logger.Error("Point subscription failed", zap.Error(err))
	} else {
		s.pointsSub = sub
		s.observer.SubscriptionOpened()
	}
	s.mu.Unlock()

	go s.loop(r)

	s.logger.Info("Point store started", zap.String("reference_mode", string(s.deriver.Mode())))
	return nil
}

// Stop cancels the point subscription and every neighbor subscription and
// waits for the event loop to exit. No callback changes state after Stop
// returns. Stop on an idle store does nothing.
func (s *PointStore) Stop() {
	s.mu.Lock()
	r := s.cur
	if r == nil {
		s.mu.Unlock()
		return
	}
	s.cur = nil
	if s.pointsSub != nil {
		s.pointsSub.Cancel()
		s.pointsSub = nil
		s.observer.SubscriptionClosed()
	}
	closed := s.registry.CancelAll()
	for i := 0; i < closed; i++ {
		s.observer.SubscriptionClosed()
	}
	s.state.Loading = false
	s.mu.Unlock()

	r.cancel()
	r.queue.close()
	<-r.done

	s.logger.Info("Point store stopped", zap.Int("neighbor_subscriptions_closed", closed))
}

// Running reports whether the store is started.
func (s *PointStore) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// State returns the latest published state. The slices are shared and must
// not be modified.
func (s *PointStore) State() graph.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SubscribedIDs returns the point ids with a live neighbor subscription.
func (s *PointStore) SubscribedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.IDs()
}

// ReferenceMode returns the configured resolution mode.
func (s *PointStore) ReferenceMode() graph.ReferenceMode {
	return s.deriver.Mode()
}

func (s *PointStore) loop(r *run) {
	defer close(r.done)
	for {
		events, ok := r.queue.wait()
		if !ok {
			return
		}
		for _, ev := range events {
			s.handle(ev)
		}
	}
}

func (s *PointStore) handle(ev event) {
	s.mu.Lock()
	if ev.run != s.cur {
		s.mu.Unlock()
		s.observer.EventDiscarded("stopped")
		return
	}

	var changed bool
	switch ev.kind {
	case eventPoints:
		changed = s.applyPointsLocked(ev.run, ev.docs)
	case eventPointsError:
		changed = s.applyPointsErrorLocked(ev.err)
	case eventNeighbors:
		changed = s.applyNeighborsLocked(ev.handle, ev.docs)
	case eventNeighborsError:
		changed = s.applyNeighborsErrorLocked(ev.handle, ev.err)
	case eventStarted:
		changed = true
	}
	if !changed {
		s.mu.Unlock()
		return
	}

	state, listeners := s.snapshotLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

func (s *PointStore) snapshotLocked() (graph.State, []Listener) {
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	return s.state, listeners
}

func (s *PointStore) applyPointsLocked(r *run, docs []graph.Document) bool {
	base := graph.BasePoints(docs)

	index := make(map[string]int, len(base))
	ids := make([]string, len(base))
	for i, p := range base {
		index[p.ID] = i
		ids[i] = p.ID
	}

	diff := Reconcile(s.registry.IDs(), ids)
	for _, id := range diff.Close {
		if s.registry.Cancel(id) {
			s.observer.SubscriptionClosed()
		}
	}

	var registerErr error
	for _, id := range diff.Open {
		pointID := id
		_, opened, err := s.registry.Register(pointID, func(h *Handle) (Subscription, error) {
			return s.source.SubscribeNeighbors(r.ctx, pointID,
				func(docs []graph.Document) {
					r.queue.push(event{kind: eventNeighbors, run: r, handle: h, docs: docs})
				},
				func(err error) {
					r.queue.push(event{kind: eventNeighborsError, run: r, handle: h, err: err})
				},
			)
		})
		if err != nil {
			registerErr = apperrors.Connection(string(apperrors.CodeSubscriptionFailed), "cannot subscribe to neighbors").
				WithOperation("subscribe_neighbors").
				WithResource(pointID).
				WithCause(err).
				Build()
			s.observer.ErrorCaptured("neighbors")
			s.logger.Warn("Neighbor subscription failed",
				zap.String("point_id", pointID),
				zap.Error(err),
			)
			continue
		}
		if opened {
			s.observer.SubscriptionOpened()
		}
	}

	// Points whose subscription already delivered keep their neighbors.
	points := make([]graph.Point, len(base))
	for i, p := range base {
		if h, ok := s.registry.Get(p.ID); ok {
			if refs, delivered := h.Neighbors(); delivered {
				p = p.WithNeighbors(refs)
			}
		}
		points[i] = p
	}

	s.index = index
	if registerErr != nil {
		s.state.Err = registerErr
	}
	s.state.Loading = false
	s.publishLocked(points)

	s.logger.Debug("Applied point snapshot",
		zap.Int("points", len(points)),
		zap.Int("opened", len(diff.Open)),
		zap.Int("closed", len(diff.Close)),
	)
	return true
}

func (s *PointStore) applyNeighborsLocked(h *Handle, docs []graph.Document) bool {
	if !s.registry.IsLive(h) {
		s.observer.EventDiscarded("stale_handle")
		return false
	}
	pos, ok := s.index[h.pointID]
	if !ok {
		s.observer.EventDiscarded("unknown_point")
		return false
	}

	refs := graph.NeighborRefs(docs, s.deriver.Mode())
	h.neighbors = refs
	h.delivered = true

	points := make([]graph.Point, len(s.state.Points))
	copy(points, s.state.Points)
	points[pos] = points[pos].WithNeighbors(refs)
	s.publishLocked(points)
	return true
}

func (s *PointStore) applyPointsErrorLocked(err error) bool {
	s.state.Err = classify(err, "subscribe_points", "", apperrors.CodePointsStreamFailed)
	s.state.Loading = false
	s.observer.ErrorCaptured("points")
	s.logger.Error("Point collection stream failed", zap.Error(err))
	s.bumpLocked()
	return true
}

func (s *PointStore) applyNeighborsErrorLocked(h *Handle, err error) bool {
	if !s.registry.IsLive(h) {
		s.observer.EventDiscarded("stale_handle")
		return false
	}
	s.state.Err = classify(err, "subscribe_neighbors", h.pointID, apperrors.CodeNeighborStreamFailed)
	s.observer.ErrorCaptured("neighbors")
	s.logger.Warn("Neighbor stream failed",
		zap.String("point_id", h.pointID),
		zap.Error(err),
	)
	s.bumpLocked()
	return true
}

func (s *PointStore) publishLocked(points []graph.Point) {
	s.state.Points = points
	s.state.Edges = s.deriver.Derive(points)
	s.bumpLocked()
}

func (s *PointStore) bumpLocked() {
	s.state.Revision++
	s.state.UpdatedAt = s.now()
}

// classify keeps unified errors from the source and wraps anything else as a
// connection failure on the given stream.
func classify(err error, operation, resource string, code apperrors.ErrorCode) error {
	var unified *apperrors.UnifiedError
	if errors.As(err, &unified) {
		return unified
	}
	return apperrors.Connection(string(code), "remote stream failed").
		WithOperation(operation).
		WithResource(resource).
		WithCause(err).
		Build()
}
