// Package metrics exposes Prometheus instruments for the game server.
//
// Every Recorder method is safe to call on a nil *Recorder so components can
// be built without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "neuroprime"

// Recorder owns a private registry and the instruments registered on it.
type Recorder struct {
	reg *prometheus.Registry

	gamesStarted  *prometheus.CounterVec
	gamesFinished *prometheus.CounterVec
	scores        *prometheus.HistogramVec
	tips          *prometheus.CounterVec
	tipLatency    prometheus.Histogram
	sessions      prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewRecorder registers all instruments plus the Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by game type.",
		}, []string{"game"}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reported a score, by game type.",
		}, []string{"game"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_score",
			Help:      "Final scores, by game type.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
		}, []string{"game"}),
		tips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tips_total",
			Help:      "Coaching tips served, by result (ok, fallback, disabled).",
		}, []string{"result"}),
		tipLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tip_request_duration_seconds",
			Help:      "Latency of coaching-tip requests that reached the network.",
			Buckets:   prometheus.DefBuckets,
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live sessions held in memory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.gamesStarted,
		r.gamesFinished,
		r.scores,
		r.tips,
		r.tipLatency,
		r.sessions,
		r.httpRequests,
		r.httpLatency,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests, extra collectors).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) RecordGameStarted(game string) {
	if r == nil {
		return
	}
	r.gamesStarted.WithLabelValues(game).Inc()
}

func (r *Recorder) RecordGameFinished(game string, score int) {
	if r == nil {
		return
	}
	r.gamesFinished.WithLabelValues(game).Inc()
	r.scores.WithLabelValues(game).Observe(float64(score))
}

// RecordTip counts one tip by result. Zero durations are not observed.
func (r *Recorder) RecordTip(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.tips.WithLabelValues(result).Inc()
	if d > 0 {
		r.tipLatency.Observe(d.Seconds())
	}
}

// SetSessions reports the current number of live sessions.
func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

func (r *Recorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}
