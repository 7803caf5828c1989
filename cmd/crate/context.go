package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/downloads"
	"crate/internal/logging"
)

// ledgerFileName is the sqlite download ledger under the log directory.
const ledgerFileName = "downloads.db"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
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
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openCatalog opens the catalog store; the caller owns the Close.
func (c *commandContext) openCatalog() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg.MetadataDir(), logger)
}

// openLedger opens the download ledger; the caller owns the Close.
func (c *commandContext) openLedger() (*downloads.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return downloads.Open(filepath.Join(cfg.Paths.LogDir, ledgerFileName))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
