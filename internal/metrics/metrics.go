// Package metrics provides Prometheus metrics for logger export parsing
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Parse status label values.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

var (
	ParsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobo_parses_total",
			Help: "Total number of parse attempts",
		},
		[]string{"status"},
	)

	ParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hobo_parse_duration_seconds",
			Help:    "Time taken to parse one export",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	RowsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hobo_rows_parsed_total",
			Help: "Total number of data rows assembled",
		},
	)

	BytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hobo_bytes_read_total",
			Help: "Total bytes read from export files",
		},
	)

	HeaderLines = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hobo_header_lines",
			Help:    "Lines consumed before the column definition line",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	ChannelsMapped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobo_channels_mapped_total",
			Help: "Channels found in parsed exports",
		},
		[]string{"channel"},
	)

	QCFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hobo_qc_flags_total",
			Help: "QC flags assigned, by channel and flag value",
		},
		[]string{"channel", "flag"},
	)

	ParsesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hobo_parses_active",
			Help: "Number of parses holding a limiter slot",
		},
	)
)

// RecordParse records the outcome of one parse.
func RecordParse(status string, duration time.Duration) {
	ParsesTotal.WithLabelValues(status).Inc()
	ParseDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTable records what a successful parse produced.
func RecordTable(rows int, bytes int64, headerLines int, channels []string) {
	RowsParsed.Add(float64(rows))
	BytesRead.Add(float64(bytes))
	HeaderLines.Observe(float64(headerLines))
	for _, ch := range channels {
		ChannelsMapped.WithLabelValues(ch).Inc()
	}
}

// RecordQCFlag adds n flags of value flag for channel.
func RecordQCFlag(channel, flag string, n int) {
	QCFlags.WithLabelValues(channel, flag).Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
