package later

import (
	"github.com/benbjohnson/clock"
)

// initOptions holds configuration applied by EnsureInitialized.
type initOptions struct {
	clock     clock.Clock
	logger    Logger
	host      Host
	logLevel  *LogLevel
	pumpLimit int
}

// Option configures initialization.
type Option interface {
	applyInit(*initOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyInitFunc func(*initOptions) error
}

func (o *optionImpl) applyInit(opts *initOptions) error {
	return o.applyInitFunc(opts)
}

// WithClock overrides the clock backing timestamps and internal timers.
// Intended for tests; must be applied before any scheduling.
func WithClock(c clock.Clock) Option {
	return &optionImpl{func(opts *initOptions) error {
		opts.clock = c
		return nil
	}}
}

// WithLogger sets the global structured logger.
func WithLogger(l Logger) Option {
	return &optionImpl{func(opts *initOptions) error {
		opts.logger = l
		return nil
	}}
}

// WithLogLevel adjusts the built-in logger's level. The configuration
// surface is this single knob; external loggers manage their own levels.
func WithLogLevel(level LogLevel) Option {
	return &optionImpl{func(opts *initOptions) error {
		opts.logLevel = &level
		return nil
	}}
}

// WithHost registers the host glue implementation.
func WithHost(h Host) Option {
	return &optionImpl{func(opts *initOptions) error {
		opts.host = h
		return nil
	}}
}

// WithPumpLimit bounds the exec passes run per host-idle firing. Zero or
// negative restores the default.
func WithPumpLimit(n int) Option {
	return &optionImpl{func(opts *initOptions) error {
		if n <= 0 {
			n = defaultPumpLimit
		}
		opts.pumpLimit = n
		return nil
	}}
}

// resolveInitOptions applies Option instances to initOptions.
func resolveInitOptions(opts []Option) (*initOptions, error) {
	cfg := &initOptions{pumpLimit: defaultPumpLimit}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyInit(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
