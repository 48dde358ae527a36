// Package metrics exposes auth and HTTP counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/hireloop/portal-auth"
)

// Collector records auth activity and request metrics. It is an
// auth.ActivitySink so it can sit next to the audit log.
type Collector struct {
	logins       *prometheus.CounterVec
	logouts      prometheus.Counter
	denied       prometheus.Counter
	userChanges  *prometheus.CounterVec
	requests     *prometheus.CounterVec
	reqLatency   *prometheus.HistogramVec
	revokedCount prometheus.Gauge
}

// NewCollector registers the metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_auth_logouts_total",
			Help: "Sessions revoked through logout",
		}),
		denied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_auth_access_denied_total",
			Help: "Requests rejected by a role guard",
		}),
		userChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_user_changes_total",
			Help: "User management mutations by kind",
		}, []string{"event"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status_code"}),
		reqLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		revokedCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_auth_revoked_tokens",
			Help: "Tokens currently held by the in-memory deny-list",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.logouts,
		c.denied,
		c.userChanges,
		c.requests,
		c.reqLatency,
		c.revokedCount,
	)

	return c
}

// Record implements auth.ActivitySink
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		c.logins.WithLabelValues("success").Inc()
	case auth.ActivityEventLoginFailure:
		c.logins.WithLabelValues("failure").Inc()
	case auth.ActivityEventLogout:
		c.logouts.Inc()
	case auth.ActivityEventAccessDenied:
		c.denied.Inc()
	default:
		c.userChanges.WithLabelValues(string(event.EventType)).Inc()
	}
	return nil
}

// SetRevoked reports the deny-list size
func (c *Collector) SetRevoked(n int) {
	c.revokedCount.Set(float64(n))
}

// Middleware counts every request and its latency
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = auth.HTTPStatus(err)
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		c.requests.WithLabelValues(ctx.Method(), strconv.Itoa(status)).Inc()
		c.reqLatency.WithLabelValues(ctx.Method()).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus scrape endpoint
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
