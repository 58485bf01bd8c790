package graphsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"gridguardian-backend/internal/domain/graph"
)

type fakeSub struct {
	pointID   string
	onNext    func([]graph.Document)
	onError   func(error)
	cancelled atomic.Bool
}

func (s *fakeSub) Cancel() { s.cancelled.Store(true) }

// fakeSource records subscriptions and lets tests deliver snapshots by hand.
type fakeSource struct {
	mu          sync.Mutex
	points      []*fakeSub
	neighbors   map[string][]*fakeSub
	failPoints  error
	failNeighbs map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		neighbors:   make(map[string][]*fakeSub),
		failNeighbs: make(map[string]error),
	}
}

func (f *fakeSource) SubscribePoints(_ context.Context, onNext func([]graph.Document), onError func(error)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPoints != nil {
		return nil, f.failPoints
	}
	sub := &fakeSub{onNext: onNext, onError: onError}
	f.points = append(f.points, sub)
	return sub, nil
}

func (f *fakeSource) SubscribeNeighbors(_ context.Context, pointID string, onNext func([]graph.Document), onError func(error)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNeighbs[pointID]; err != nil {
		return nil, err
	}
	sub := &fakeSub{pointID: pointID, onNext: onNext, onError: onError}
	f.neighbors[pointID] = append(f.neighbors[pointID], sub)
	return sub, nil
}

func (f *fakeSource) pointsSub() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.points) == 0 {
		return nil
	}
	return f.points[len(f.points)-1]
}

func (f *fakeSource) neighborSubs(pointID string) []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeSub, len(f.neighbors[pointID]))
	copy(out, f.neighbors[pointID])
	return out
}

func (f *fakeSource) latestNeighborSub(pointID string) *fakeSub {
	subs := f.neighborSubs(pointID)
	if len(subs) == 0 {
		return nil
	}
	return subs[len(subs)-1]
}

// active counts subscriptions that were opened and not cancelled.
func (f *fakeSource) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.points {
		if !s.cancelled.Load() {
			n++
		}
	}
	for _, subs := range f.neighbors {
		for _, s := range subs {
			if !s.cancelled.Load() {
				n++
			}
		}
	}
	return n
}

func (f *fakeSource) emitPoints(docs ...graph.Document) {
	f.pointsSub().onNext(docs)
}

func (f *fakeSource) emitNeighbors(pointID string, names ...string) {
	f.latestNeighborSub(pointID).onNext(nameDocs(names...))
}

func nameDocs(names ...string) []graph.Document {
	docs := make([]graph.Document, len(names))
	for i, n := range names {
		docs[i] = graph.Document{ID: "n" + n, Fields: map[string]any{"name": n}}
	}
	return docs
}

func pointDoc(id, name string, lat, lng float64) graph.Document {
	return graph.Document{ID: id, Fields: map[string]any{"name": name, "lat": lat, "lng": lng}}
}

var errStream = errors.New("stream reset")

// countingObserver tallies observer signals.
type countingObserver struct {
	opened    atomic.Int64
	closed    atomic.Int64
	discarded atomic.Int64
	errors    atomic.Int64
}

func (o *countingObserver) SubscriptionOpened()   { o.opened.Add(1) }
func (o *countingObserver) SubscriptionClosed()   { o.closed.Add(1) }
func (o *countingObserver) EventDiscarded(string) { o.discarded.Add(1) }
func (o *countingObserver) ErrorCaptured(string)  { o.errors.Add(1) }
