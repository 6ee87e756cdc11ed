package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cardoff/internal/config"
	"cardoff/internal/journal"
	"cardoff/internal/logging"
	"cardoff/internal/profiles"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	profilesOnce sync.Once
	profiles     []profiles.CameraProfile
	profilesErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
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

func (c *commandContext) ensureProfiles() ([]profiles.CameraProfile, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.profilesOnce.Do(func() {
		cams, err := profiles.Load(cfg.Paths.ProfilesPath)
		if err != nil {
			c.profilesErr = fmt.Errorf("load camera profiles: %w", err)
			return
		}
		c.profiles = cams
	})
	return c.profiles, c.profilesErr
}

func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if c.verboseFlag != nil && *c.verboseFlag {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

func (c *commandContext) openJournal(cfg *config.Config) (*journal.Store, error) {
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
