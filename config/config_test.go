package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty state path", func(c *Config) { c.StatePath = "" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero initial backoff", func(c *Config) { c.InitialBackoff = 0 }},
		{"max below initial", func(c *Config) { c.MaxBackoff = 1 * time.Millisecond }},
		{"multiplier one", func(c *Config) { c.BackoffMultiplier = 1.0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MULTIVIEW_STATE_PATH", "/tmp/mv-test/state.json")
	t.Setenv("MULTIVIEW_API_KEY", "env-key")
	t.Setenv("MULTIVIEW_REQUEST_TIMEOUT", "10s")
	t.Setenv("MULTIVIEW_MAX_RETRIES", "7")
	t.Setenv("MULTIVIEW_BACKOFF_MULTIPLIER", "3.5")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.StatePath != "/tmp/mv-test/state.json" {
		t.Errorf("StatePath = %q", cfg.StatePath)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.BackoffMultiplier != 3.5 {
		t.Errorf("BackoffMultiplier = %v", cfg.BackoffMultiplier)
	}
}

func TestRetryConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 5
	cfg.InitialBackoff = 2 * time.Second
	cfg.MaxBackoff = 45 * time.Second
	cfg.BackoffMultiplier = 1.5

	rc := cfg.RetryConfig()
	if rc.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", rc.MaxRetries)
	}
	if rc.InitialBackoff != 2*time.Second {
		t.Errorf("InitialBackoff = %v", rc.InitialBackoff)
	}
	if rc.MaxBackoff != 45*time.Second {
		t.Errorf("MaxBackoff = %v", rc.MaxBackoff)
	}
	if rc.Multiplier != 1.5 {
		t.Errorf("Multiplier = %v", rc.Multiplier)
	}
}
