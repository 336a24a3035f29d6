package logforwarder

import (
	"fmt"
	"time"
)

const (
	// SourceCloudWatch is the ddsource value of every forwarded record.
	SourceCloudWatch = "cloudwatch"
	// ServiceFlaskEcho is the service value of every forwarded record.
	ServiceFlaskEcho = "flask-echo"

	// MaxBatchSize is the maximum number of records sent in a single intake request.
	MaxBatchSize = 1000
	// DefaultTimeout bounds a single intake request.
	DefaultTimeout = 10 * time.Second
)

// Record is a log entry reshaped into the Datadog Logs intake schema.
// https://docs.datadoghq.com/api/latest/logs/#send-logs
type Record struct {
	Source   string
	Tags     string
	Hostname string
	Message  string
	Service  string
}

// Config is resolved once per invocation and never mutated afterwards.
type Config struct {
	APIKey       string
	Tags         string
	MaxBatchSize int
	Timeout      time.Duration
}

// Validate checks that every setting required to forward logs is present.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ConfigurationError{Setting: "DD_API_KEY", Reason: "API key not set"}
	}
	if c.Timeout <= 0 {
		return ConfigurationError{Setting: "DD_TIMEOUT_SECONDS", Reason: fmt.Sprintf("timeout must be positive, got %s", c.Timeout)}
	}
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > MaxBatchSize {
		return ConfigurationError{
			Setting: "MaxBatchSize",
			Reason:  fmt.Sprintf("must be between 1 and %d, got %d", MaxBatchSize, c.MaxBatchSize),
		}
	}

	return nil
}
