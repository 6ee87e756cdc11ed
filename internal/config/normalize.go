package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRouter()
	c.normalizeTransfer()
	c.normalizeWatcher()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = ExpandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.StoreDir, err = ExpandPath(c.Paths.StoreDir); err != nil {
		return fmt.Errorf("paths.store_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProfilesPath) == "" {
		c.Paths.ProfilesPath = defaultProfilesPath
	}
	if c.Paths.ProfilesPath, err = ExpandPath(c.Paths.ProfilesPath); err != nil {
		return fmt.Errorf("paths.profiles_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRouter() {
	c.Router.ProbeAddr = strings.TrimSpace(c.Router.ProbeAddr)
	if c.Router.ProbeTimeout <= 0 {
		c.Router.ProbeTimeout = defaultProbeTimeout
	}
	if c.Router.MinStagingFreeMiB < 0 {
		c.Router.MinStagingFreeMiB = 0
	}
}

func (c *Config) normalizeTransfer() {
	if c.Transfer.MaxRetries < 0 {
		c.Transfer.MaxRetries = 0
	}
	if c.Transfer.RetryBackoff <= 0 {
		c.Transfer.RetryBackoff = defaultRetryBackoff
	}
	if c.Transfer.DigestWorkers <= 0 {
		c.Transfer.DigestWorkers = defaultDigestWorkers
	}
}

func (c *Config) normalizeWatcher() {
	if len(c.Watcher.MountBases) == 0 {
		c.Watcher.MountBases = Default().Watcher.MountBases
	}
	if c.Watcher.SettleDelay < 0 {
		c.Watcher.SettleDelay = 0
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
