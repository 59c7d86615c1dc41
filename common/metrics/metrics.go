package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvp_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rsvp_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvp_guest_status_transitions_total",
		Help: "Guest status writes by explicit field and value",
	}, []string{"field", "value"})

	checkins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvp_checkins_total",
		Help: "Scan check-ins by outcome",
	}, []string{"outcome"})

	codeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsvp_unique_code_collisions_total",
		Help: "Generated guest codes rejected by the unique constraint",
	})

	qrRenders = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsvp_qr_renders_total",
		Help: "QR images rendered",
	})

	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsvp_emails_total",
		Help: "Broadcast emails by result",
	}, []string{"result"})
)

// ObserveRequest records one handled HTTP request
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func StatusTransition(field, value string) {
	statusTransitions.WithLabelValues(field, value).Inc()
}

func CheckIn(outcome string) {
	checkins.WithLabelValues(outcome).Inc()
}

func CodeCollision() {
	codeCollisions.Inc()
}

func QRRendered() {
	qrRenders.Inc()
}

func EmailSent(ok bool) {
	result := "sent"
	if !ok {
		result = "failed"
	}
	emailsSent.WithLabelValues(result).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
