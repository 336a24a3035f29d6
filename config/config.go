// Package config resolves forwarder configuration from the function environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"
	logforwarder "github.com/zakharovvi/lambda-logs-forwarder"
)

const (
	envPrefix             = "DD"
	defaultTimeoutSeconds = int(logforwarder.DefaultTimeout / time.Second)
)

// env mirrors the DD_* environment variables read by the forwarder.
type env struct {
	APIKey         string `mapstructure:"api_key"`
	Tags           string `mapstructure:"tags"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Load reads DD_API_KEY, DD_TAGS and DD_TIMEOUT_SECONDS.
// Every call builds its own viper instance, so concurrent invocations never share state.
// A missing DD_API_KEY results in logforwarder.ConfigurationError.
func Load(ctx context.Context) (logforwarder.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("api_key", "")
	v.SetDefault("tags", "")
	v.SetDefault("timeout_seconds", defaultTimeoutSeconds)

	var e env
	if err := v.Unmarshal(&e); err != nil {
		return logforwarder.Config{}, logforwarder.ConfigurationError{
			Setting: "DD_TIMEOUT_SECONDS",
			Reason:  fmt.Sprintf("could not parse environment: %v", err),
		}
	}

	cfg := logforwarder.Config{
		APIKey:       e.APIKey,
		Tags:         e.Tags,
		MaxBatchSize: logforwarder.MaxBatchSize,
		Timeout:      time.Duration(e.TimeoutSeconds) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return logforwarder.Config{}, err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("configuration loaded", "tags", cfg.Tags, "timeout", cfg.Timeout, "maxBatchSize", cfg.MaxBatchSize)

	return cfg, nil
}
