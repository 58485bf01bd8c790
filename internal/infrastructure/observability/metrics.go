// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"net/http"
	"time"

	"gridguardian-backend/internal/domain/graph"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service. It also receives
// the sync engine's lifecycle signals.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Sync engine metrics
	SubscriptionsActive prometheus.Gauge
	SubscriptionsOpened prometheus.Counter
	EventsDiscarded     *prometheus.CounterVec
	SyncErrors          *prometheus.CounterVec
	GraphPoints         prometheus.Gauge
	GraphEdges          prometheus.Gauge
	GraphLoading        prometheus.Gauge
	GraphUpdates        prometheus.Counter

	// Remote store metrics
	DBOperations *prometheus.CounterVec
	DBDuration   *prometheus.HistogramVec

	// Snapshot cache and delivery metrics
	SnapshotOperations *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	WebSocketClients   prometheus.Gauge
}

// NewCollector creates a collector on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SubscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Open remote subscriptions, points collection included",
		}),
		SubscriptionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_opened_total",
			Help:      "Total number of remote subscriptions opened",
		}),
		EventsDiscarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_events_discarded_total",
				Help:      "Deliveries dropped because their subscription was stale",
			},
			[]string{"reason"},
		),
		SyncErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_errors_total",
				Help:      "Errors captured into the graph state",
			},
			[]string{"kind"},
		),
		GraphPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_points",
			Help:      "Points in the current graph state",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges in the current graph state",
		}),
		GraphLoading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_loading",
			Help:      "1 until the first points snapshot arrives",
		}),
		GraphUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_updates_total",
			Help:      "Total number of published graph states",
		}),
		DBOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_operations_total",
				Help:      "Total number of database operations",
			},
			[]string{"operation", "status"},
		),
		DBDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_operation_duration_seconds",
				Help:      "Database operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SnapshotOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_operations_total",
				Help:      "Snapshot cache operations by outcome",
			},
			[]string{"operation", "status"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Graph events sent to the event bus",
			},
			[]string{"status"},
		),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.SubscriptionsActive,
		c.SubscriptionsOpened,
		c.EventsDiscarded,
		c.SyncErrors,
		c.GraphPoints,
		c.GraphEdges,
		c.GraphLoading,
		c.GraphUpdates,
		c.DBOperations,
		c.DBDuration,
		c.SnapshotOperations,
		c.EventsPublished,
		c.WebSocketClients,
	)
	c.GraphLoading.Set(1)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// SubscriptionOpened records a new remote subscription.
func (c *Collector) SubscriptionOpened() {
	c.SubscriptionsActive.Inc()
	c.SubscriptionsOpened.Inc()
}

// SubscriptionClosed records a released remote subscription.
func (c *Collector) SubscriptionClosed() {
	c.SubscriptionsActive.Dec()
}

// EventDiscarded records a dropped delivery.
func (c *Collector) EventDiscarded(reason string) {
	c.EventsDiscarded.WithLabelValues(reason).Inc()
}

// ErrorCaptured records an error surfaced in the graph state.
func (c *Collector) ErrorCaptured(kind string) {
	c.SyncErrors.WithLabelValues(kind).Inc()
}

// ObserveState records the size of a published graph state.
func (c *Collector) ObserveState(state graph.State) {
	c.GraphPoints.Set(float64(len(state.Points)))
	c.GraphEdges.Set(float64(len(state.Edges)))
	if state.Loading {
		c.GraphLoading.Set(1)
	} else {
		c.GraphLoading.Set(0)
	}
	c.GraphUpdates.Inc()
}

// ObserveDB records one remote store operation.
func (c *Collector) ObserveDB(operation string, elapsed time.Duration, err error) {
	c.DBOperations.WithLabelValues(operation, status(err)).Inc()
	c.DBDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveSnapshot records one snapshot cache operation.
func (c *Collector) ObserveSnapshot(operation string, err error) {
	c.SnapshotOperations.WithLabelValues(operation, status(err)).Inc()
}

// ObservePublish records one event bus publish.
func (c *Collector) ObservePublish(err error) {
	c.EventsPublished.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
