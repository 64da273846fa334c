package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// CloneDir holds one working tree per tracked project. Defaults to <prefix>/src.
	CloneDir string `toml:"clone_dir"`
	// Prefix is the install prefix handed to build tools (bin, lib, share live here).
	Prefix string `toml:"prefix"`
	LogDir string `toml:"log_dir"`
}

// Run contains switches for a single update cycle.
type Run struct {
	// Parallelism bounds concurrent actions inside one queue. 0 uses the CPU count.
	Parallelism   int  `toml:"parallelism"`
	InboxCapacity int  `toml:"inbox_capacity"`
	OnlyPull      bool `toml:"only_pull"`
	Stale         bool `toml:"stale"`
	ForceRisk     bool `toml:"force_risk"`
}

// Handoff controls how long an enqueue may stall before it is reported.
type Handoff struct {
	StallTimeoutMillis int `toml:"stall_timeout_ms"`
	StallRetries       int `toml:"stall_retries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pspman.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Run     Run     `toml:"run"`
	Handoff Handoff `toml:"handoff"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathTemplate)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigFile)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the clone directory, prefix and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CloneDir, c.Paths.Prefix, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the YAML project database inside the clone directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.CloneDir, defaultDatabaseFileName)
}

// HistoryPath is the SQLite outcome journal inside the clone directory.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.CloneDir, defaultHistoryFileName)
}

// LockPath is the advisory run lock under the install prefix.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.Prefix, defaultLockFileName)
}

// LogPath is the persistent log file.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "pspman.log")
}

// Parallelism resolves the worker count for parallel queues.
func (c *Config) Parallelism() int {
	if c.Run.Parallelism > 0 {
		return c.Run.Parallelism
	}
	return runtime.NumCPU()
}

// StallTimeout is how long a single enqueue attempt may block before it counts as a stall.
func (c *Config) StallTimeout() time.Duration {
	return time.Duration(c.Handoff.StallTimeoutMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
