// Package prommetrics exports vecrow metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := prommetrics.New(reg)
//	if err != nil { ... }
//	w, err := vecrow.Create("embeddings", vecrow.WithMetricsCollector(mc))
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/vecrow"
)

const namespace = "vecrow"

// Collector implements vecrow.MetricsCollector with Prometheus metrics.
type Collector struct {
	rows     *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	exported prometheus.Gauge

	transfers        *prometheus.CounterVec
	transferBytes    *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
}

var _ vecrow.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows written or read, by operation and result.",
		}, []string{"op", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_bytes_total",
			Help:      "Metadata and vector bytes written or read, by operation.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "row_duration_seconds",
			Help:      "Per-row write and read latency.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op"}),
		exported: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "export_rows",
			Help:      "Rows written by the export in progress at its last notice.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Dataset uploads and downloads, by direction and result.",
		}, []string{"direction", "result"}),
		transferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_bytes_total",
			Help:      "Bytes moved by uploads and downloads.",
		}, []string{"direction"}),
		transferDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Duration of dataset uploads and downloads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
	}

	for _, m := range []prometheus.Collector{
		c.rows, c.bytes, c.latency, c.exported,
		c.transfers, c.transferBytes, c.transferDuration,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) record(op string, bytes int, d time.Duration, err error) {
	c.rows.WithLabelValues(op, result(err)).Inc()
	if err != nil {
		return
	}
	c.bytes.WithLabelValues(op).Add(float64(bytes))
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordWrite records one Writer.Write call.
func (c *Collector) RecordWrite(bytes int, d time.Duration, err error) {
	c.record("write", bytes, d, err)
}

// RecordRead records one row read.
func (c *Collector) RecordRead(bytes int, d time.Duration, err error) {
	c.record("read", bytes, d, err)
}

// RecordExportProgress records an Export progress notice.
func (c *Collector) RecordExportProgress(rows int, _ time.Duration) {
	c.exported.Set(float64(rows))
}

// RecordTransfer records a completed Upload or Download.
func (c *Collector) RecordTransfer(direction string, bytes int64, d time.Duration, err error) {
	c.transfers.WithLabelValues(direction, result(err)).Inc()
	c.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	c.transferDuration.WithLabelValues(direction).Observe(d.Seconds())
}
