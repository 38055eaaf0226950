package config

import (
	"testing"
	"time"
)

func TestDefaultConfigShouldHaveSaneValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServerURL == "" {
		t.Error("Expected a default server URL")
	}
	if cfg.RefreshInterval != "3h30m" {
		t.Errorf("Expected default refresh interval 3h30m, got %q", cfg.RefreshInterval)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("Expected default log level INFO, got %q", cfg.LogLevel)
	}
}

func TestEnvOverridesShouldWin(t *testing.T) {
	t.Setenv("CURRENTS_SERVER_URL", "https://currents.example.com")
	t.Setenv("CURRENTS_LOG_LEVEL", "DEBUG")

	cfg := DefaultConfig()

	if cfg.ServerURL != "https://currents.example.com" {
		t.Errorf("Expected env server URL, got %q", cfg.ServerURL)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("Expected env log level, got %q", cfg.LogLevel)
	}
}

func TestRefreshEveryShouldParseConfiguredCadence(t *testing.T) {
	cfg := &Config{RefreshInterval: "45m"}
	if got := cfg.RefreshEvery(); got != 45*time.Minute {
		t.Errorf("Expected 45m, got %v", got)
	}
}

func TestRefreshEveryShouldFallBackOnBadValues(t *testing.T) {
	for _, bad := range []string{"", "not-a-duration", "-5m", "0s"} {
		cfg := &Config{RefreshInterval: bad}
		if got := cfg.RefreshEvery(); got != DefaultRefreshInterval {
			t.Errorf("Expected fallback for %q, got %v", bad, got)
		}
	}
}
