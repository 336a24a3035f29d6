package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	logforwarder "github.com/zakharovvi/lambda-logs-forwarder"
	"github.com/zakharovvi/lambda-logs-forwarder/config"
)

func TestLoad(t *testing.T) {
	t.Setenv("DD_API_KEY", "k")
	t.Setenv("DD_TAGS", "env:test")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, logforwarder.Config{
		APIKey:       "k",
		Tags:         "env:test",
		MaxBatchSize: 1000,
		Timeout:      10 * time.Second,
	}, cfg)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DD_API_KEY", "k")
	t.Setenv("DD_TAGS", "")
	t.Setenv("DD_TIMEOUT_SECONDS", "")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", cfg.Tags)
	require.Equal(t, logforwarder.DefaultTimeout, cfg.Timeout)
	require.Equal(t, logforwarder.MaxBatchSize, cfg.MaxBatchSize)
}

func TestLoad_Timeout(t *testing.T) {
	t.Setenv("DD_API_KEY", "k")
	t.Setenv("DD_TIMEOUT_SECONDS", "3")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		timeout     string
		wantSetting string
	}{
		{"missing api key", "", "", "DD_API_KEY"},
		{"non numeric timeout", "k", "ten", "DD_TIMEOUT_SECONDS"},
		{"negative timeout", "k", "-1", "DD_TIMEOUT_SECONDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DD_API_KEY", tt.apiKey)
			t.Setenv("DD_TIMEOUT_SECONDS", tt.timeout)

			_, err := config.Load(context.Background())
			var confErr logforwarder.ConfigurationError
			require.ErrorAs(t, err, &confErr)
			require.Equal(t, tt.wantSetting, confErr.Setting)
		})
	}
}
