package minidi

import "github.com/rs/zerolog"

type Option func(c *config)

type config struct {
	logger            zerolog.Logger
	recoverFromPanics bool
}

func defaultConfig() config {
	return config{logger: zerolog.Nop()}
}

// WithLogger sets the logger used for registry events. Events are emitted at debug
// level, failed resolutions at warn level. The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRecoverFromPanics turns constructor panics into a ConstructionError wrapping ErrConstructorPanic.
func WithRecoverFromPanics() Option {
	return func(c *config) {
		c.recoverFromPanics = true
	}
}
