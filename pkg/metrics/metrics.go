// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "path", "status"},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_order_transitions_total",
			Help: "Order status transitions by target status and outcome",
		},
		[]string{"to", "result"},
	)

	stockDeductions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_stock_deductions_total",
			Help: "Stock deductions by outcome",
		},
		[]string{"result"},
	)

	stockAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_stock_alerts_total",
			Help: "Stock alerts created or escalated",
		},
		[]string{"type"},
	)

	promotionCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_promotion_commits_total",
			Help: "Promotion usage commits by outcome",
		},
		[]string{"result"},
	)

	broadcastEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_broadcast_events_total",
			Help: "Broadcast events by type and outcome",
		},
		[]string{"type", "result"},
	)

	outboxDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_outbox_dispatches_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"result"},
	)
)

// Middleware records request count and latency by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		httpRequestsTotal.WithLabelValues(r.Method, path, code).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func RecordTransition(to string, err error) {
	orderTransitions.WithLabelValues(to, result(err)).Inc()
}

// RecordDeduction takes one of applied, replayed, insufficient, error.
func RecordDeduction(outcome string) {
	stockDeductions.WithLabelValues(outcome).Inc()
}

func RecordAlert(alertType string) {
	stockAlerts.WithLabelValues(alertType).Inc()
}

func RecordPromotionCommit(err error) {
	promotionCommits.WithLabelValues(result(err)).Inc()
}

// RecordBroadcast takes one of queued, dropped, delivered, failed.
func RecordBroadcast(eventType, outcome string) {
	broadcastEvents.WithLabelValues(eventType, outcome).Inc()
}

func RecordOutboxDispatch(err error) {
	outboxDispatches.WithLabelValues(result(err)).Inc()
}
