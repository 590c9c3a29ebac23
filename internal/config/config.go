// Package config describes the per-runner sink transport configuration:
// which backend a runner's SinkTask talks to and the connection details
// that backend needs. It implements the transport.Config interface so the
// sinks package can build any registered transport from it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config groups the Pub/Sub settings required to build a runner's sink.
// Each transport only uses the keys that are relevant to it.
type Config struct {
	// PubSubSystem selects the backing sink transport. Supported values:
	// "channel", "io", "sqlite", "postgres", or a custom registered name.
	PubSubSystem string

	// I/O configuration.
	IOFile string

	// SQLite configuration. Use ":memory:" for an in-memory database.
	SQLiteFile string

	// PostgreSQL configuration.
	PostgresURL string

	// DeadLetterQueue names a dead-letter destination. Nothing in this
	// module reads it; a DLQErrorHandler is wired with its own SinkTask.
	DeadLetterQueue string

	// Retry tuning knobs. Validate checks them, but RetryErrorHandler does
	// not read them: it is configured through its own MaxAttempts field.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// MetricsEnabled and MetricsPort are carried and validated only;
	// NewBridge registers its Prometheus collectors regardless of them.
	MetricsEnabled bool
	MetricsPort    int
}

// Getter methods implementing transport.Config.
func (c *Config) GetPubSubSystem() string { return c.PubSubSystem }
func (c *Config) GetIOFile() string       { return c.IOFile }
func (c *Config) GetSQLiteFile() string   { return c.SQLiteFile }
func (c *Config) GetPostgresURL() string  { return c.PostgresURL }

func (c Config) String() string {
	redacted := c
	if redacted.PostgresURL != "" {
		redacted.PostgresURL = redactURLCredentials(redacted.PostgresURL)
	}
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(redacted))
}

func redactURLCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "***REDACTED_URL***"
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "***REDACTED***")
		}
	}
	return parsed.String()
}

// Validate checks that the configuration has all required fields for the
// selected transport.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateTransport()...)
	errs = append(errs, c.validateRetry()...)
	errs = append(errs, c.validatePorts()...)

	return errors.Join(errs...)
}

func (c *Config) validateTransport() []error {
	switch strings.ToLower(c.PubSubSystem) {
	case "postgres":
		if c.PostgresURL == "" {
			return []error{errors.New("postgres: URL is required")}
		}
	}
	// channel, io, sqlite, "", and custom transports have no required
	// config.
	return nil
}

func (c *Config) validateRetry() []error {
	var errs []error
	if c.RetryMaxRetries < 0 {
		errs = append(errs, errors.New("retry: max retries cannot be negative"))
	}
	if c.RetryInitialInterval < 0 {
		errs = append(errs, errors.New("retry: initial interval cannot be negative"))
	}
	if c.RetryMaxInterval < 0 {
		errs = append(errs, errors.New("retry: max interval cannot be negative"))
	}
	if c.RetryMaxInterval > 0 && c.RetryInitialInterval > 0 && c.RetryInitialInterval > c.RetryMaxInterval {
		errs = append(errs, errors.New("retry: initial interval cannot exceed max interval"))
	}
	return errs
}

func (c *Config) validatePorts() []error {
	var errs []error
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
