// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	FramesReceived    prometheus.Counter
	FramesDropped     prometheus.Counter
	ChatMessages      prometheus.Counter
	ClipsSubmitted    prometheus.Counter
	ClipsDeduped      prometheus.Counter
	ReconnectAttempts prometheus.Counter
	SessionsFailed    prometheus.Counter

	// Gauges
	QueueDepthGauge  prometheus.Gauge
	SessionLiveGauge prometheus.Gauge // 1=live,0=not live
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FramesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_received_total", Help: "Frames received over the chat socket"})
		FramesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_dropped_total", Help: "Malformed or unrecognized frames dropped"})
		ChatMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_total", Help: "Chat messages decoded and routed"})
		ClipsSubmitted = promauto.NewCounter(prometheus.CounterOpts{Name: "clips_submitted_total", Help: "Clip candidates submitted to the queue"})
		ClipsDeduped = promauto.NewCounter(prometheus.CounterOpts{Name: "clips_deduped_total", Help: "Submissions folded into an existing queue entry"})
		ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_reconnect_attempts_total", Help: "Reconnect attempts scheduled after transport loss"})
		SessionsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_sessions_failed_total", Help: "Sessions that exhausted the reconnect budget"})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_queue_depth", Help: "Current number of pending clips"})
		SessionLiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_session_live", Help: "Chat session live=1 otherwise 0"})
	})
}

// Inc increments a counter, tolerating the zero value so callers do not have
// to care whether Init ran (tests exercise the chat path without metrics).
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetQueueDepth records the current pending clip count.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetSessionLive flips the live gauge.
func SetSessionLive(live bool) {
	if SessionLiveGauge == nil {
		return
	}
	if live {
		SessionLiveGauge.Set(1)
	} else {
		SessionLiveGauge.Set(0)
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
