// Package metrics exposes Prometheus collectors for waveform transfers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ul-gh/hdscope/domain/instrument"
)

const namespace = "hdscope"

// Transfer counts chunked reads and the halt/restore directives around them.
type Transfer struct {
	chunks         *prometheus.CounterVec
	samples        *prometheus.CounterVec
	fetchSeconds   *prometheus.HistogramVec
	halts          prometheus.Counter
	restores       prometheus.Counter
	restoreFailed  prometheus.Counter
	capturesStored prometheus.Counter
}

// NewTransfer creates the collectors and registers them on reg.
func NewTransfer(reg prometheus.Registerer) (*Transfer, error) {
	t := &Transfer{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "chunks_total",
			Help:      "number of chunks fetched from the instrument per channel",
		}, []string{"channel"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "samples_total",
			Help:      "number of samples transferred per channel",
		}, []string{"channel"}),
		fetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "fetch_seconds",
			Help:      "duration of one chunk fetch",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"channel"}),
		halts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "halts_total",
			Help:      "number of stop directives sent before a long transfer",
		}),
		restores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "restores_total",
			Help:      "number of run directives sent after a long transfer",
		}),
		restoreFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "restore_failures_total",
			Help:      "number of run directives that failed",
		}),
		capturesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "captures",
			Name:      "stored_total",
			Help:      "number of captures persisted",
		}),
	}

	for _, c := range []prometheus.Collector{
		t.chunks, t.samples, t.fetchSeconds, t.halts, t.restores, t.restoreFailed, t.capturesStored,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ChunkFetched records one completed chunk.
func (t *Transfer) ChunkFetched(ch instrument.Channel, samples int, elapsed time.Duration) {
	label := strconv.Itoa(ch.Number())
	t.chunks.WithLabelValues(label).Inc()
	t.samples.WithLabelValues(label).Add(float64(samples))
	t.fetchSeconds.WithLabelValues(label).Observe(elapsed.Seconds())
}

// Halted records a stop directive.
func (t *Transfer) Halted() { t.halts.Inc() }

// Restored records a successful run directive.
func (t *Transfer) Restored() { t.restores.Inc() }

// RestoreFailed records a failed run directive.
func (t *Transfer) RestoreFailed() { t.restoreFailed.Inc() }

// CaptureStored records a persisted capture.
func (t *Transfer) CaptureStored() { t.capturesStored.Inc() }

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics of g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
