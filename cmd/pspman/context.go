package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pspman/internal/config"
	"pspman/internal/logging"
)

type commandContext struct {
	configFlag   *string
	cloneDirFlag *string
	prefixFlag   *string
	verbose      *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, cloneDirFlag, prefixFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		cloneDirFlag: cloneDirFlag,
		prefixFlag:   prefixFlag,
		verbose:      verbose,
	}
}

// ensureConfig loads the configuration once and applies the path flags. A
// --prefix without --clone-dir moves the clone directory under the new prefix.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		prefix, cloneDir := flagValue(c.prefixFlag), flagValue(c.cloneDirFlag)
		if prefix != "" || cloneDir != "" {
			if prefix != "" {
				cfg.Paths.Prefix = prefix
				cfg.Paths.CloneDir = ""
			}
			if cloneDir != "" {
				cfg.Paths.CloneDir = cloneDir
			}
			if err := cfg.Normalize(); err != nil {
				c.configErr = err
				return
			}
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		verbose := c.verbose != nil && *c.verbose
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, verbose)
	})
	return c.logger, c.loggerErr
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
