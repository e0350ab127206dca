package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "favfilms"

type Prom struct {
	// HTTP
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec
	// domain
	CacheLookups  *prometheus.CounterVec
	FilmMutations *prometheus.CounterVec
	AuthAttempts  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// NewProm creates the favfilms collectors and registers them on reg.
func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		RequestsTotal: counter("", "http_requests_total", "Total HTTP requests processed.",
			"method", "route", "status"),
		RequestsDuration: histogram("", "http_request_duration_seconds", "HTTP request latency.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			"method", "route", "status"),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}, []string{"method", "route"}),

		DbQueryDuration: histogram("db", "query_duration_seconds", "Store operation latency by logical op.",
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
			"op", "status"),
		DbErrorsTotal: counter("db", "errors_total", "Store errors by logical op and class.",
			"op", "class"),

		CacheLookups: counter("cache", "lookups_total", "Film list cache lookups by result.",
			"result"),
		FilmMutations: counter("films", "mutations_total", "Successful film writes by operation.",
			"op"),
		AuthAttempts: counter("auth", "attempts_total", "Signup and login attempts by outcome.",
			"action", "result"),

		gatherer: reg,
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CacheLookups, p.FilmMutations, p.AuthAttempts,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// the route template is known here because gin routes before middleware runs
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		inFlight := p.InFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()

		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}

// ObserveCache records a list cache lookup. Safe on a nil *Prom.
func (p *Prom) ObserveCache(hit bool) {
	if p == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	p.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveFilmMutation counts a committed create, update or delete.
func (p *Prom) ObserveFilmMutation(op string) {
	if p == nil {
		return
	}
	p.FilmMutations.WithLabelValues(op).Inc()
}

// ObserveAuth counts a signup or login by result ("ok", "rejected", "error").
func (p *Prom) ObserveAuth(action, result string) {
	if p == nil {
		return
	}
	p.AuthAttempts.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
