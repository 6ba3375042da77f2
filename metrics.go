package vecrow

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordWrite is called after each Writer.Write with the encoded row size.
	RecordWrite(bytes int, duration time.Duration, err error)

	// RecordRead is called after each row decoded by a Reader.
	RecordRead(bytes int, duration time.Duration, err error)

	// RecordExportProgress is called at every Export progress notice and once
	// when the export finishes.
	RecordExportProgress(rows int, elapsed time.Duration)

	// RecordTransfer is called after each Upload or Download.
	// direction is "upload" or "download".
	RecordTransfer(direction string, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWrite(int, time.Duration, error)              {}
func (NoopMetricsCollector) RecordRead(int, time.Duration, error)               {}
func (NoopMetricsCollector) RecordExportProgress(int, time.Duration)            {}
func (NoopMetricsCollector) RecordTransfer(string, int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	WriteCount       atomic.Int64
	WriteErrors      atomic.Int64
	WriteBytes       atomic.Int64
	WriteTotalNanos  atomic.Int64
	ReadCount        atomic.Int64
	ReadErrors       atomic.Int64
	ReadBytes        atomic.Int64
	ReadTotalNanos   atomic.Int64
	ExportedRows     atomic.Int64
	ExportNotices    atomic.Int64
	TransferCount    atomic.Int64
	TransferErrors   atomic.Int64
	TransferredBytes atomic.Int64
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(bytes int, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.WriteBytes.Add(int64(bytes))
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(bytes int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
		return
	}
	b.ReadBytes.Add(int64(bytes))
}

// RecordExportProgress implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExportProgress(rows int, _ time.Duration) {
	b.ExportNotices.Add(1)
	b.ExportedRows.Store(int64(rows))
}

// RecordTransfer implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTransfer(_ string, bytes int64, _ time.Duration, err error) {
	b.TransferCount.Add(1)
	if err != nil {
		b.TransferErrors.Add(1)
		return
	}
	b.TransferredBytes.Add(bytes)
}

// AverageWriteLatency returns the mean Write latency.
func (b *BasicMetricsCollector) AverageWriteLatency() time.Duration {
	n := b.WriteCount.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(b.WriteTotalNanos.Load() / n)
}

// AverageReadLatency returns the mean per-row read latency.
func (b *BasicMetricsCollector) AverageReadLatency() time.Duration {
	n := b.ReadCount.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(b.ReadTotalNanos.Load() / n)
}
