package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Normalize expands paths and fills derived defaults. Load calls it; callers that
// mutate a Config after loading (CLI flag overrides) call it again.
func (c *Config) Normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRun()
	c.normalizeHandoff()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.Prefix) == "" {
		if value, ok := os.LookupEnv(envPrefixOverride); ok && strings.TrimSpace(value) != "" {
			c.Paths.Prefix = strings.TrimSpace(value)
		} else {
			c.Paths.Prefix = defaultPrefix
		}
	}
	if strings.TrimSpace(c.Paths.CloneDir) == "" {
		if value, ok := os.LookupEnv(envCloneDirOverride); ok && strings.TrimSpace(value) != "" {
			c.Paths.CloneDir = strings.TrimSpace(value)
		}
	}

	var err error
	if c.Paths.Prefix, err = expandPath(strings.TrimSpace(c.Paths.Prefix)); err != nil {
		return fmt.Errorf("paths.prefix: %w", err)
	}
	if strings.TrimSpace(c.Paths.CloneDir) == "" {
		c.Paths.CloneDir = filepath.Join(c.Paths.Prefix, defaultCloneSubdir)
	}
	if c.Paths.CloneDir, err = expandPath(strings.TrimSpace(c.Paths.CloneDir)); err != nil {
		return fmt.Errorf("paths.clone_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRun() {
	if c.Run.InboxCapacity <= 0 {
		c.Run.InboxCapacity = defaultInboxCapacity
	}
}

func (c *Config) normalizeHandoff() {
	if c.Handoff.StallTimeoutMillis <= 0 {
		c.Handoff.StallTimeoutMillis = defaultStallTimeoutMillis
	}
	if c.Handoff.StallRetries <= 0 {
		c.Handoff.StallRetries = defaultStallRetries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
