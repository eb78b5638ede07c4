package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for the Wayfare API.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics.
	AuthFailuresTotal  prometheus.Counter
	AuthSuccessesTotal prometheus.Counter

	// Rate limiting.
	RateLimitRejectionsTotal prometheus.Counter

	// Trip domain metrics.
	TripsCreatedTotal   prometheus.Counter
	TripsDeletedTotal   prometheus.Counter
	MembersAddedTotal   prometheus.Counter
	MembersRemovedTotal prometheus.Counter
	ActivitiesTotal     *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_auth_failures_total",
			Help: "Total number of authentication failures.",
		}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_auth_successes_total",
			Help: "Total number of successful logins.",
		}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}),

		TripsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_trips_created_total",
			Help: "Total number of trips created.",
		}),

		TripsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_trips_deleted_total",
			Help: "Total number of trips deleted.",
		}),

		MembersAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_trip_members_added_total",
			Help: "Total number of trip members added.",
		}),

		MembersRemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_trip_members_removed_total",
			Help: "Total number of trip members removed.",
		}),

		ActivitiesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_trip_activities_total",
			Help: "Total number of trip activity records written.",
		}, []string{"activity_type"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wayfare_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.RateLimitRejectionsTotal,
		m.TripsCreatedTotal,
		m.TripsDeletedTotal,
		m.MembersAddedTotal,
		m.MembersRemovedTotal,
		m.ActivitiesTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// Exposition returns the standard Prometheus text-format handler for the
// private registry.
func (m *Metrics) Exposition() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncAuthFailure increments the auth failure counter.
func (m *Metrics) IncAuthFailure() {
	m.AuthFailuresTotal.Inc()
}

// IncAuthSuccess increments the auth success counter.
func (m *Metrics) IncAuthSuccess() {
	m.AuthSuccessesTotal.Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection() {
	m.RateLimitRejectionsTotal.Inc()
}

// IncActivity increments the activity counter for the given type.
func (m *Metrics) IncActivity(activityType string) {
	m.ActivitiesTotal.WithLabelValues(activityType).Inc()
}
