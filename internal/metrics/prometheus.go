// internal/metrics/prometheus.go
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hatoview_backend_request_duration_seconds",
			Help:    "Time spent waiting for backend replies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "resource", "outcome"},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoview_backend_requests_total",
			Help: "Total number of backend requests issued",
		},
		[]string{"method", "resource", "outcome"},
	)

	SessionRenewals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoview_session_renewals_total",
			Help: "Session renewals after an expired session reply",
		},
		[]string{"result"},
	)

	ViewRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoview_view_renders_total",
			Help: "Number of view-models rendered from backend replies",
		},
		[]string{"view"},
	)

	StaleReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoview_stale_replies_total",
			Help: "Replies dropped because a newer request was issued for the same view",
		},
		[]string{"view"},
	)

	ViewRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hatoview_view_records",
			Help: "Number of rows in the current view-model",
		},
		[]string{"view"},
	)

	BulkDeleteItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoview_bulk_delete_items_total",
			Help: "Items processed by bulk delete",
		},
		[]string{"resource", "result"},
	)

	UserConfigOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoview_user_config_operations_total",
			Help: "Total user config operations performed",
		},
		[]string{"operation", "status"},
	)

	UserConfigItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hatoview_user_config_items",
			Help: "Number of user config items held in the local store",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hatoview_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// StatsSource reports the number of items held by a local store.
type StatsSource interface {
	CountItems(ctx context.Context) (int, error)
}

// Collector records metrics. A nil *Collector is valid and records nothing,
// which keeps tests and the terminal client free of wiring.
type Collector struct {
	stats StatsSource
}

func NewCollector(stats StatsSource) *Collector {
	return &Collector{stats: stats}
}

func (c *Collector) RecordRequest(method, resource, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	BackendRequestDuration.WithLabelValues(method, resource, outcome).Observe(duration.Seconds())
	BackendRequests.WithLabelValues(method, resource, outcome).Inc()
}

func (c *Collector) RecordSessionRenewal(err error) {
	if c == nil {
		return
	}
	SessionRenewals.WithLabelValues(resultLabel(err)).Inc()
}

func (c *Collector) RecordRender(view string, rows int) {
	if c == nil {
		return
	}
	ViewRenders.WithLabelValues(view).Inc()
	ViewRecords.WithLabelValues(view).Set(float64(rows))
}

func (c *Collector) RecordStaleReply(view string) {
	if c == nil {
		return
	}
	StaleReplies.WithLabelValues(view).Inc()
}

func (c *Collector) RecordDelete(resource string, succeeded, failed int) {
	if c == nil {
		return
	}
	BulkDeleteItems.WithLabelValues(resource, "success").Add(float64(succeeded))
	BulkDeleteItems.WithLabelValues(resource, "error").Add(float64(failed))
}

func (c *Collector) RecordUserConfig(operation string, err error) {
	if c == nil {
		return
	}
	UserConfigOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// UpdateStoreMetrics refreshes gauges that come from the local store.
func (c *Collector) UpdateStoreMetrics(ctx context.Context) error {
	if c == nil || c.stats == nil {
		return nil
	}
	n, err := c.stats.CountItems(ctx)
	if err != nil {
		UserConfigOperations.WithLabelValues("count", "error").Inc()
		return err
	}
	UserConfigOperations.WithLabelValues("count", "success").Inc()
	UserConfigItems.Set(float64(n))
	return nil
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	if c == nil {
		return
	}
	WebSocketConnections.Add(float64(delta))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
