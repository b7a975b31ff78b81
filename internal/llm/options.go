package llm

import "time"

// Option is a functional option for provider client configuration.
type Option func(*Config)

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

// WithBackoff sets the retry backoff base and ceiling.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Config) {
		c.InitialInterval = initial
		c.MaxInterval = max
	}
}

// NewConfig creates a Config with the given options applied on top of
// the defaults.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
