package lxb

import (
	"runtime"

	"github.com/go-kit/log"

	"github.com/l1ktools/l1kio/source"
	"github.com/l1ktools/l1kio/telemetry"
)

// Option configures loading and extraction.
type Option func(*options)

type options struct {
	logger      log.Logger
	metrics     *telemetry.Metrics
	opener      *source.Opener
	concurrency int
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      log.NewNopLogger(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records decode outcomes and event counts.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOpener resolves LoadPlate locators through opener, e.g. to read wells
// from a bucket.
func WithOpener(opener *source.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithConcurrency bounds how many files LoadPlate decodes at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}
