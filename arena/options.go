package arena

import (
	"io"
	"log/slog"
)

// Option configures an Arena at creation.
type Option func(*options)

type options struct {
	platform       Platform
	logger         *slog.Logger
	failThreshold  int
	largeScanDepth int
}

func defaultOptions() options {
	return options{
		platform:       DefaultPlatform(),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		failThreshold:  DefaultFailThreshold,
		largeScanDepth: DefaultLargeScanDepth,
	}
}

// WithPlatform replaces the page size, alignment and backing source.
// Zero fields keep their defaults.
func WithPlatform(p Platform) Option {
	return func(o *options) {
		if p.PageSize > 0 {
			o.platform.PageSize = p.PageSize
		}
		if p.Alignment > 0 {
			o.platform.Alignment = p.Alignment
		}
		if p.Source != nil {
			o.platform.Source = p.Source
		}
	}
}

// WithSource sets the backing memory source.
func WithSource(s Source) Option {
	return func(o *options) {
		if s != nil {
			o.platform.Source = s
		}
	}
}

// WithLogger sets the logger used for allocation and cleanup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFailThreshold sets how many failed fits a block tolerates before the
// small path stops searching it.
func WithFailThreshold(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.failThreshold = n
		}
	}
}

// WithLargeScanDepth sets how many large-list entries are checked for a
// released slot before a new node is allocated.
func WithLargeScanDepth(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.largeScanDepth = n
		}
	}
}
