package vecrow

import (
	"github.com/hupe1980/vecrow/codec"
	"github.com/hupe1980/vecrow/internal/fs"
	"github.com/hupe1980/vecrow/resource"
)

const (
	// DefaultFloatBytes is the element width used when none is configured.
	DefaultFloatBytes = 4

	// DefaultProgressInterval is the number of rows between Export progress notices.
	DefaultProgressInterval = 10000

	defaultBufferSize = 64 * 1024
)

type options struct {
	floatBytes       int
	floatBytesSet    bool
	codec            codec.Codec
	dimension        int
	preamble         bool
	fs               fs.FileSystem
	logger           *Logger
	metrics          MetricsCollector
	progressInterval int
	lenient          bool
	bufferSize       int
	resources        *resource.Controller
}

func defaultOptions() options {
	return options{
		floatBytes:       DefaultFloatBytes,
		codec:            codec.Default,
		fs:               fs.Default,
		logger:           NoopLogger(),
		metrics:          NoopMetricsCollector{},
		progressInterval: DefaultProgressInterval,
		bufferSize:       defaultBufferSize,
	}
}

func applyOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// Option configures readers, writers, Export, Upload and Download.
// Options that do not apply to an operation are ignored by it.
type Option func(*options)

// WithFloatBytes sets the vector element width: 4 (float32, the default) or 8
// (float64).
//
// Legacy headers do not record the width, so a dataset must be read with the
// width it was written with. When the header is a preamble that records the
// width, a conflicting explicit value fails the open with ErrFormat.
func WithFloatBytes(n int) Option {
	return func(o *options) {
		o.floatBytes = n
		o.floatBytesSet = true
	}
}

// WithCodec configures the metadata codec.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithDimension declares the dataset dimension up front.
//
// In create mode the header is written at open, so a dataset with zero rows
// is still readable, and every Write must match. In append mode the value is
// checked against the on-disk header. Export uses it when there are no rows to
// infer the dimension from.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithPreamble makes create-mode writers emit a self-describing JSON header
// carrying the format version, dimension and element width, instead of the
// bare dimension.
func WithPreamble() Option {
	return func(o *options) {
		o.preamble = true
	}
}

// WithLogger configures the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecrow.BasicMetricsCollector{}
//	w, _ := vecrow.Create("embeddings", vecrow.WithMetricsCollector(metrics))
//	// ... write rows ...
//	fmt.Println(metrics.WriteBytes.Load())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithProgressInterval sets how many rows Export writes between progress
// notices. Values <= 0 disable the periodic notices.
func WithProgressInterval(rows int) Option {
	return func(o *options) {
		o.progressInterval = rows
	}
}

// WithLenientReadAll makes ReadAll tolerate a metadata stream that ends before
// the binary stream does: the missing rows stay zero-filled and a warning is
// logged, instead of failing with ErrDesync.
func WithLenientReadAll() Option {
	return func(o *options) {
		o.lenient = true
	}
}

// WithBufferSize sets the read/write buffer size for each stream.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithResourceController throttles Upload and Download through rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}
