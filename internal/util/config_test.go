package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	config, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.TimeoutSeconds != 30 || config.MaxCallDepth != 64 {
		t.Fatalf("unexpected defaults: %+v", config)
	}
	if config.Timeout() != 30*time.Second {
		t.Fatalf("unexpected timeout: %v", config.Timeout())
	}
}

func TestLoadConfigurationMissingFileKeepsDefaults(t *testing.T) {
	config, err := LoadConfiguration("/no/such/config.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.MaxHandlers != 256 {
		t.Fatalf("unexpected config: %+v", config)
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mote.toml")
	body := "timeout_seconds = 5\nmax_call_depth = 8\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.TimeoutSeconds != 5 || config.MaxCallDepth != 8 || config.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", config)
	}
	// unset keys keep their defaults
	if config.MaxLoopIterations != 100_000 {
		t.Fatalf("default lost: %+v", config)
	}
}
