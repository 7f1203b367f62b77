package config

import (
	"errors"
	"fmt"

	"github.com/phuslu/log"
)

// Stdio selects stdin or stdout in place of a file path.
const Stdio = "-"

type Config struct {
	Input         string
	Output        string
	LogLevel      string
	Lenient       bool
	RetireRemoved bool
	Seed          uint64 // 0 draws a random seed
	MetricsAddr   string // empty disables the metrics endpoint
}

func Default() Config {
	return Config{
		Input:    Stdio,
		Output:   Stdio,
		LogLevel: "info",
	}
}

func (c *Config) Validate() error {
	if c.Input == "" || c.Output == "" {
		return errors.New("input and output must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Level() (log.Level, error) {
	switch c.LogLevel {
	case "debug":
		return log.DebugLevel, nil
	case "info", "":
		return log.InfoLevel, nil
	case "warn":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
}
