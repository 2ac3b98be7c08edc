// Package metrics provides Prometheus metrics for dailybrief.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dailybrief"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds collectors registered in own registry
// Nil *Metrics is valid and records nothing
type Metrics struct {
	registry *prometheus.Registry

	stageTotal         *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	refreshTotal       *prometheus.CounterVec
	authorizationTotal *prometheus.CounterVec
	summarizerAttempts *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		stageTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_total",
				Help:      "Total number of pipeline stage runs",
			},
			[]string{"stage", "status"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		refreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_total",
				Help:      "Total number of access token refreshes",
			},
			[]string{"status"},
		),
		authorizationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authorization_total",
				Help:      "Total number of completed authorization callbacks",
			},
			[]string{"status"},
		),
		summarizerAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summarizer_attempts_total",
				Help:      "Total number of requests sent to summarization endpoint",
			},
			[]string{"code"},
		),
	}
}

// Handler exposes registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveStage(stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, status(err)).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRefresh(err error) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) ObserveAuthorization(err error) {
	if m == nil {
		return
	}
	m.authorizationTotal.WithLabelValues(status(err)).Inc()
}

// ObserveSummarizerAttempt records one request; code 0 means transport error
func (m *Metrics) ObserveSummarizerAttempt(code int) {
	if m == nil {
		return
	}
	m.summarizerAttempts.WithLabelValues(strconv.Itoa(code)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
