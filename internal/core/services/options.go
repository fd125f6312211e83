package services

import (
	"log/slog"
	"time"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	clock  func() time.Time
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		clock:  func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
