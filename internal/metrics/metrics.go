// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/booklist-server/internal/pubsub"
)

const namespace = "booklist"

// Login outcomes.
const (
	LoginSuccess     = "success"
	LoginWrong       = "wrong_credentials"
	LoginRateLimited = "rate_limited"
)

// Metrics owns a private registry so tests can build as many as they like.
// The recording methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	operations    *prometheus.CounterVec
	booksAdded    prometheus.Counter
	authorsAdded  prometheus.Counter
	usersCreated  prometheus.Counter
	loginAttempts *prometheus.CounterVec
}

// New creates and registers all collectors, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "operations_total",
			Help:      "Resolved GraphQL fields by name and outcome (ok or an error code).",
		}, []string{"field", "outcome"}),
		booksAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "books_added_total",
			Help:      "Books created through addBook.",
		}),
		authorsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authors_added_total",
			Help:      "Authors created implicitly by addBook.",
		}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_created_total",
			Help:      "Users created through createUser.",
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.operations,
		m.booksAdded,
		m.authorsAdded,
		m.usersCreated,
		m.loginAttempts,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveOperation records a resolved GraphQL field. An empty code means success.
func (m *Metrics) ObserveOperation(field, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.operations.WithLabelValues(field, code).Inc()
}

// BookAdded counts a created book, and its author when that was created too.
func (m *Metrics) BookAdded(newAuthor bool) {
	if m == nil {
		return
	}
	m.booksAdded.Inc()
	if newAuthor {
		m.authorsAdded.Inc()
	}
}

// UserCreated counts a created user.
func (m *Metrics) UserCreated() {
	if m == nil {
		return
	}
	m.usersCreated.Inc()
}

// LoginAttempt counts a login by outcome.
func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// BusSource is what the subscription gauges read from.
type BusSource interface {
	SubscriberCount() int
}

// StatsSource is implemented by the in-process broadcaster.
type StatsSource interface {
	Stats() pubsub.Stats
}

// RegisterBus exposes live subscriber and delivery figures read on every scrape.
func (m *Metrics) RegisterBus(bus BusSource, stats StatsSource) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "subscriptions",
		Name:      "active",
		Help:      "Open bookAdded subscriptions on this instance.",
	}, func() float64 { return float64(bus.SubscriberCount()) }))

	if stats == nil {
		return
	}
	counter := func(name, help string, read func(pubsub.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats.Stats())) })
	}
	m.registry.MustRegister(
		counter("events_published_total", "Events accepted for broadcast.", func(s pubsub.Stats) uint64 { return s.Published }),
		counter("events_delivered_total", "Events handed to a subscriber.", func(s pubsub.Stats) uint64 { return s.Delivered }),
		counter("events_dropped_total", "Events dropped for slow subscribers.", func(s pubsub.Stats) uint64 { return s.Dropped }),
	)
}
