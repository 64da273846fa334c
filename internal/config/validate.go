package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateHandoff(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.Prefix) == "" {
		return errors.New("paths.prefix must be set")
	}
	if strings.TrimSpace(c.Paths.CloneDir) == "" {
		return errors.New("paths.clone_dir must be set")
	}
	if filepath.Clean(c.Paths.CloneDir) == filepath.Dir(filepath.Clean(c.Paths.CloneDir)) {
		return fmt.Errorf("paths.clone_dir must not be a filesystem root (got %q)", c.Paths.CloneDir)
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.Parallelism < 0 || c.Run.Parallelism > maxParallelism {
		return fmt.Errorf("run.parallelism must be between 0 and %d", maxParallelism)
	}
	if c.Run.InboxCapacity > maxInboxCapacity {
		return fmt.Errorf("run.inbox_capacity must not exceed %d", maxInboxCapacity)
	}
	return nil
}

func (c *Config) validateHandoff() error {
	if c.Handoff.StallTimeoutMillis < minStallTimeoutMillis {
		return fmt.Errorf("handoff.stall_timeout_ms must be at least %d", minStallTimeoutMillis)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
