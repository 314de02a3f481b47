// Package metrics exports lyrics fetch counters for Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Camel-bot/Spotilife/pkg/lyrics"
)

// Metrics implements music.Observer.
type Metrics struct {
	registry  *prometheus.Registry
	attempts  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyrics",
			Name:      "provider_attempts_total",
			Help:      "Lyrics provider attempts by outcome.",
		}, []string{"provider", "outcome"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyrics",
			Name:      "fallbacks_total",
			Help:      "Switches from the selected provider to the fallback provider.",
		}, []string{"from", "to"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lyrics",
			Name:      "provider_request_seconds",
			Help:      "Time spent in a single provider attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
}

// ObserveAttempt 记录一次歌词提供商请求
func (m *Metrics) ObserveAttempt(source lyrics.Source, err error, elapsed time.Duration) {
	m.attempts.WithLabelValues(string(source), Outcome(err)).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
	}
}

// ObserveFallback 记录一次回退
func (m *Metrics) ObserveFallback(from, to lyrics.Source) {
	m.fallbacks.WithLabelValues(string(from), string(to)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Outcome maps an attempt error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, lyrics.ErrSongNotFound):
		return "not_found"
	case errors.Is(err, lyrics.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, lyrics.ErrRestricted):
		return "restricted"
	case errors.Is(err, lyrics.ErrDecoding):
		return "decoding"
	case errors.Is(err, lyrics.ErrTransport):
		return "transport"
	case errors.Is(err, lyrics.ErrUnknownSource):
		return "unknown_source"
	default:
		return "error"
	}
}
