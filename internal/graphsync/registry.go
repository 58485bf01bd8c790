package graphsync

import (
	"sort"
	"sync/atomic"
)

// Handle is the registry entry for one point's neighbor subscription. It also
// retains the last neighbor references the subscription delivered.
type Handle struct {
	pointID   string
	sub       Subscription
	cancelled atomic.Bool

	neighbors []string
	delivered bool
}

// PointID returns the point the handle subscribes for.
func (h *Handle) PointID() string {
	return h.pointID
}

// Cancelled reports whether the handle was cancelled.
func (h *Handle) Cancelled() bool {
	return h.cancelled.Load()
}

// Neighbors returns the retained neighbor references and whether any were delivered.
func (h *Handle) Neighbors() ([]string, bool) {
	return h.neighbors, h.delivered
}

func (h *Handle) cancel() {
	if h.cancelled.CompareAndSwap(false, true) && h.sub != nil {
		h.sub.Cancel()
	}
}

// SubscriptionRegistry maps point ids to their live neighbor subscription, at
// most one per id. It is owned by a PointStore and not safe for concurrent use.
type SubscriptionRegistry struct {
	handles map[string]*Handle
}

// NewSubscriptionRegistry creates an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{handles: make(map[string]*Handle)}
}

// Register opens a subscription for id unless one is live. open receives the
// new handle so callbacks can identify it. When open fails nothing is registered.
func (r *SubscriptionRegistry) Register(id string, open func(h *Handle) (Subscription, error)) (*Handle, bool, error) {
	if h, ok := r.handles[id]; ok {
		return h, false, nil
	}
	h := &Handle{pointID: id, neighbors: []string{}}
	sub, err := open(h)
	if err != nil {
		h.cancelled.Store(true)
		return nil, false, err
	}
	h.sub = sub
	r.handles[id] = h
	return h, true, nil
}

// Get returns the live handle for id.
func (r *SubscriptionRegistry) Get(id string) (*Handle, bool) {
	h, ok := r.handles[id]
	return h, ok
}

// IsLive reports whether h is the registered handle for its point.
func (r *SubscriptionRegistry) IsLive(h *Handle) bool {
	if h == nil || h.Cancelled() {
		return false
	}
	return r.handles[h.pointID] == h
}

// Cancel cancels and removes the subscription for id.
func (r *SubscriptionRegistry) Cancel(id string) bool {
	h, ok := r.handles[id]
	if !ok {
		return false
	}
	delete(r.handles, id)
	h.cancel()
	return true
}

// CancelAll cancels every subscription and empties the registry.
func (r *SubscriptionRegistry) CancelAll() int {
	n := len(r.handles)
	for id, h := range r.handles {
		delete(r.handles, id)
		h.cancel()
	}
	return n
}

// IDs returns the subscribed point ids, sorted.
func (r *SubscriptionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live subscriptions.
func (r *SubscriptionRegistry) Len() int {
	return len(r.handles)
}
