// Package graphsync keeps a live view of the remote point collection: one
// subscription on the collection, one per point on its neighbor sub-collection,
// and the derived edge list, without leaking subscriptions.
package graphsync

import (
	"context"

	"gridguardian-backend/internal/domain/graph"
)

// Subscription is a live remote subscription. Cancel must be idempotent and
// must not block waiting for in-flight callbacks.
type Subscription interface {
	Cancel()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Cancel calls f.
func (f SubscriptionFunc) Cancel() { f() }

// PointSource opens subscriptions on the remote collections. Every delivery is
// the full current set of documents. Implementations invoke callbacks from
// their own goroutines, never synchronously from the Subscribe call.
type PointSource interface {
	SubscribePoints(ctx context.Context, onNext func([]graph.Document), onError func(error)) (Subscription, error)
	SubscribeNeighbors(ctx context.Context, pointID string, onNext func([]graph.Document), onError func(error)) (Subscription, error)
}

// Observer receives store lifecycle signals, typically for metrics.
type Observer interface {
	SubscriptionOpened()
	SubscriptionClosed()
	EventDiscarded(reason string)
	ErrorCaptured(kind string)
}

type nopObserver struct{}

func (nopObserver) SubscriptionOpened()   {}
func (nopObserver) SubscriptionClosed()   {}
func (nopObserver) EventDiscarded(string) {}
func (nopObserver) ErrorCaptured(string)  {}
