package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "melcloud_"

	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	cyclesTotal  *prometheus.CounterVec
	cycleLatency prometheus.Histogram

	apiCallsTotal *prometheus.CounterVec
	loginsTotal   prometheus.Counter

	snapshotsTotal *prometheus.CounterVec
	sinkWrites     *prometheus.CounterVec
	sinkLatency    *prometheus.HistogramVec

	lastSnapshot *prometheus.GaugeVec
)

// Init registers the collectors on the default registry. Calling it more than
// once is harmless; until it is called every recording function is a no-op.
func Init() {
	registerOnce.Do(func() {
		cyclesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_total",
				Help: "Total polling cycles by outcome",
			},
			[]string{"result"},
		)
		cycleLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cycle_latency_seconds",
				Help:    "Polling cycle latency in seconds, sleeps excluded",
				Buckets: prometheus.DefBuckets,
			},
		)
		apiCallsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "api_calls_total",
				Help: "Total vendor API calls by operation and classification",
			},
			[]string{"op", "result"},
		)
		loginsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "logins_total",
				Help: "Total login attempts",
			},
		)
		snapshotsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshots_total",
				Help: "Total normalized snapshots by source shape",
			},
			[]string{"source"},
		)
		sinkWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_writes_total",
				Help: "Total sink upserts by sink and result",
			},
			[]string{"sink", "result"},
		)
		sinkLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sink_write_latency_seconds",
				Help:    "Sink upsert latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		)
		lastSnapshot = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_snapshot_timestamp_seconds",
				Help: "Unix time of the last persisted snapshot by device",
			},
			[]string{"device_id"},
		)

		prometheus.MustRegister(
			cyclesTotal,
			cycleLatency,
			apiCallsTotal,
			loginsTotal,
			snapshotsTotal,
			sinkWrites,
			sinkLatency,
			lastSnapshot,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle records one cycle outcome.
func ObserveCycle(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if cyclesTotal != nil {
		cyclesTotal.WithLabelValues(result).Inc()
	}
	if cycleLatency != nil {
		cycleLatency.Observe(duration.Seconds())
	}
}

func IncAPICall(op, result string) {
	if op == "" {
		op = "unknown"
	}
	if apiCallsTotal != nil {
		apiCallsTotal.WithLabelValues(op, result).Inc()
	}
}

func IncLogin() {
	if loginsTotal != nil {
		loginsTotal.Inc()
	}
}

func IncSnapshot(source string) {
	if snapshotsTotal != nil {
		snapshotsTotal.WithLabelValues(source).Inc()
	}
}

// ObserveSinkWrite records a sink upsert.
func ObserveSinkWrite(sink, result string, duration time.Duration) {
	if sinkWrites != nil {
		sinkWrites.WithLabelValues(sink, result).Inc()
	}
	if sinkLatency != nil && result != resultSkipped {
		sinkLatency.WithLabelValues(sink).Observe(duration.Seconds())
	}
}

func SetLastSnapshot(deviceID string, at time.Time) {
	if lastSnapshot != nil {
		lastSnapshot.WithLabelValues(deviceID).Set(float64(at.Unix()))
	}
}

const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = resultSkipped

	ResultUnauthorized = "unauthorized"
)
