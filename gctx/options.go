package gctx

import (
	"github.com/go-kit/log"

	"github.com/l1ktools/l1kio/source"
	"github.com/l1ktools/l1kio/telemetry"
)

// Option configures a Reader, ReadGCT or Load.
type Option func(*options)

type options struct {
	logger  log.Logger
	metrics *telemetry.Metrics
	opener  *source.Opener
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.NewNopLogger()}
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

// WithMetrics records decode outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithOpener resolves Load locators through opener.
func WithOpener(opener *source.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}
