package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions       prometheus.Gauge
	SessionEvents        *prometheus.CounterVec
	WSMessages           *prometheus.CounterVec
	ProviderErrors       *prometheus.CounterVec
	UtterancesSpoken     prometheus.Counter
	SpeechCancels        prometheus.Counter
	AutoplayBlocked      prometheus.Counter
	IntrosPlayed         prometheus.Counter
	RecognitionRestarts  prometheus.Counter
	VoiceResolveAttempts prometheus.Counter
	UtteranceDuration    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active speech sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Platform speech errors by surface and code.",
		}, []string{"surface", "code"}),
		UtterancesSpoken: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_spoken_total",
			Help:      "Chunks handed to the synthesizer.",
		}),
		SpeechCancels: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_cancels_total",
			Help:      "Explicit or superseding playback cancellations.",
		}),
		AutoplayBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autoplay_blocked_total",
			Help:      "Playback attempts suppressed by the autoplay policy.",
		}),
		IntrosPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intros_played_total",
			Help:      "One-time introductions spoken.",
		}),
		RecognitionRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_restarts_total",
			Help:      "Automatic restarts after a spontaneous recognition end.",
		}),
		VoiceResolveAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_resolve_attempts_total",
			Help:      "Voice catalog resolution attempts.",
		}),
		UtteranceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "utterance_duration_ms",
			Help:      "Wall time per spoken chunk in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000},
		}),
	}
}

func (m *Metrics) ObserveUtteranceDuration(d time.Duration) {
	m.UtteranceDuration.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
