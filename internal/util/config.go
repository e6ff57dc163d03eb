package util

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Configuration struct {
	Version   string
	BuildDate string
	Commit    string

	// StatePath is the SQLite file backing the script filesystem.
	// Empty keeps everything in memory.
	StatePath string `toml:"state_path"`

	// TimeoutSeconds is the wall-clock ceiling per run.
	TimeoutSeconds int `toml:"timeout_seconds"`

	MaxLoopIterations int64 `toml:"max_loop_iterations"`
	MaxCallDepth      int   `toml:"max_call_depth"`
	MaxHandlers       int   `toml:"max_handlers"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		TimeoutSeconds:    30,
		MaxLoopIterations: 100_000,
		MaxCallDepth:      64,
		MaxHandlers:       256,
		LogLevel:          "error",
	}
}

// LoadConfiguration reads a TOML file over the defaults. A missing
// file is not an error, unset keys keep their defaults.
func LoadConfiguration(path string) (Configuration, error) {
	config := DefaultConfiguration()
	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c Configuration) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
