// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	apperrors "go-gin-supper-club/pkg/app_errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "supperclub"

var (
	SeatOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_operations_total",
			Help:      "Seat reservations and releases by outcome",
		},
		[]string{"operation", "result"},
	)

	ClampedReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_release_clamped_total",
			Help:      "Releases that would have pushed spots left above capacity",
		},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status changes by target status",
		},
		[]string{"to"},
	)

	WaitlistTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waitlist_transitions_total",
			Help:      "Waitlist entry status changes by target status",
		},
		[]string{"to"},
	)

	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Settled charges and refunds by type and status",
		},
		[]string{"type", "status"},
	)

	ReleaseSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "release_signals_total",
			Help:      "Seat-released signals by publish result",
		},
		[]string{"result"},
	)

	PromotionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "promotion_duration_seconds",
			Help:      "Time spent in one promotion run, lock wait included",
			Buckets:   prometheus.DefBuckets,
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// SeatResult labels a seat operation outcome.
func SeatResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, apperrors.ErrEventClosed):
		return "event_closed"
	case errors.Is(err, apperrors.ErrEventNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func ObserveSeatOperation(operation string, err error) {
	SeatOperations.WithLabelValues(operation, SeatResult(err)).Inc()
}

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
