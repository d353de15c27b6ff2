package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funpark_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funpark_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	bookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funpark_bookings_created_total",
			Help: "Bookings created by type and payment method",
		},
		[]string{"booking_type", "payment_method"},
	)

	bookingStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funpark_booking_status_changes_total",
			Help: "Admin status changes by target status",
		},
		[]string{"status"},
	)

	paymentProofs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funpark_payment_proofs_total",
			Help: "Payment proofs submitted by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	paymentReviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funpark_payment_reviews_total",
			Help: "Admin payment status changes by target status",
		},
		[]string{"status"},
	)

	authRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funpark_auth_rejections_total",
			Help: "Requests turned away by the auth middleware, by code",
		},
		[]string{"code"},
	)

	bookingsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "funpark_bookings",
			Help: "Current number of bookings per status",
		},
		[]string{"status"},
	)
)

// Middleware records request counts and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// TrackBookingCreated counts a new booking
func TrackBookingCreated(bookingType, paymentMethod string) {
	bookingsCreated.WithLabelValues(bookingType, paymentMethod).Inc()
}

// TrackStatusChange counts an admin status change
func TrackStatusChange(status string) {
	bookingStatusChanges.WithLabelValues(status).Inc()
}

// TrackPaymentProof counts a booking or membership proof submission
func TrackPaymentProof(kind string, ok bool) {
	outcome := "accepted"
	if !ok {
		outcome = "rejected"
	}
	paymentProofs.WithLabelValues(kind, outcome).Inc()
}

// TrackPaymentReviewed counts an admin marking a payment verified, rejected or pending
func TrackPaymentReviewed(status string) {
	paymentReviews.WithLabelValues(status).Inc()
}

// TrackAuthRejected counts a request refused for missing or bad credentials
func TrackAuthRejected(code string) {
	authRejections.WithLabelValues(code).Inc()
}

// SetBookingCount publishes the number of bookings in a status
func SetBookingCount(status string, count int64) {
	bookingsByStatus.WithLabelValues(status).Set(float64(count))
}
