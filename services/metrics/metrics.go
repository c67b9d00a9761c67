// Package metricsvc holds the prometheus collectors of the app.
package metricsvc

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cin"

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	grantRequests     *prometheus.CounterVec
	grantDecisions    *prometheus.CounterVec
	submissions       prometheus.Counter
	submissionReviews *prometheus.CounterVec
	redemptions       prometheus.Counter
	redemptionReviews *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		grantRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_requests_total",
			Help:      "Capability grants requested, by type.",
		}, []string{"type"}),
		grantDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_decisions_total",
			Help:      "Capability grants decided, by type and status.",
		}, []string{"type", "status"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Mission submissions filed.",
		}),
		submissionReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_reviews_total",
			Help:      "Mission submissions reviewed, by status.",
		}, []string{"status"}),
		redemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Reward redemptions requested.",
		}),
		redemptionReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemption_reviews_total",
			Help:      "Reward redemptions reviewed, by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.grantRequests,
		m.grantDecisions,
		m.submissions,
		m.submissionReviews,
		m.redemptions,
		m.redemptionReviews,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) GrantRequested(grantType string) {
	m.grantRequests.WithLabelValues(grantType).Inc()
}

func (m *Metrics) GrantDecided(grantType, status string) {
	m.grantDecisions.WithLabelValues(grantType, status).Inc()
}

func (m *Metrics) Submitted() { m.submissions.Inc() }

func (m *Metrics) SubmissionReviewed(status string) {
	m.submissionReviews.WithLabelValues(status).Inc()
}

func (m *Metrics) Redeemed() { m.redemptions.Inc() }

func (m *Metrics) RedemptionReviewed(status string) {
	m.redemptionReviews.WithLabelValues(status).Inc()
}

// Middleware records the count & latency of requests, labeled by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the metrics. A non-empty token must be given as a Bearer token.
func (m *Metrics) Handler(token string) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	if token == "" {
		return h
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			http.Error(w, "", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}
