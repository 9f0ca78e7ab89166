package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "squadquest"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"service", "method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method", "route", "status"})

	httpInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	}, []string{"service"})

	questOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quest_operations_total",
		Help:      "Quest lifecycle operations by outcome",
	}, []string{"operation", "outcome"})

	xpAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "xp_awarded_total",
		Help:      "XP granted by settlement source",
	}, []string{"source"})

	archiverRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archiver_runs_total",
		Help:      "Archival housekeeper runs by result",
	}, []string{"result"})

	questsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quests_archived_total",
		Help:      "Quests moved to cold storage",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by a rate limiter",
	}, []string{"limiter"})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics labelled by the matched chi route.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			httpInFlight.WithLabelValues(service).Inc()
			defer httpInFlight.WithLabelValues(service).Dec()

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			labels := prometheus.Labels{
				"service": service,
				"method":  r.Method,
				"route":   route,
				"status":  strconv.Itoa(rec.status),
			}
			httpRequests.With(labels).Inc()
			httpLatency.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordQuestOperation(operation, outcome string) {
	questOperations.WithLabelValues(operation, outcome).Inc()
}

func AddXP(source string, amount int64) {
	if amount > 0 {
		xpAwarded.WithLabelValues(source).Add(float64(amount))
	}
}

func RecordArchiveRun(result string, archived int) {
	archiverRuns.WithLabelValues(result).Inc()
	if archived > 0 {
		questsArchived.Add(float64(archived))
	}
}

func RecordRateLimited(limiter string) {
	rateLimited.WithLabelValues(limiter).Inc()
}
