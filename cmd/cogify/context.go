package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cogify/internal/config"
	"cogify/internal/history"
	"cogify/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.flagPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// newLogger builds the command logger. Console output goes to stdout unless
// the command is producing machine-readable output; the log file always
// receives every record.
func (c *commandContext) newLogger(cfg *config.Config, console bool) (*slog.Logger, error) {
	var (
		logger *slog.Logger
		err    error
	)
	if console {
		logger, err = logging.NewFromConfig(cfg)
	} else {
		logger, err = logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{cfg.LogFilePath()},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "*.log", cfg.Logging.RetentionDays, cfg.LogFilePath())
	return logger, nil
}

var errHistoryDisabled = errors.New("run history is disabled (set history.enabled = true)")

// openHistory opens the run ledger. It returns nil without error when history
// is disabled and required is false.
func (c *commandContext) openHistory(cfg *config.Config, required bool) (*history.Store, error) {
	if !cfg.History.Enabled {
		if required {
			return nil, errHistoryDisabled
		}
		return nil, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
