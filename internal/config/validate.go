package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIdentify(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StoreDir) == "" {
		return errors.New("paths.store_dir must be set")
	}
	if c.Paths.StagingDir == c.Paths.StoreDir {
		return errors.New("paths.staging_dir and paths.store_dir must differ")
	}
	return nil
}

func (c *Config) validateIdentify() error {
	if c.Identify.SampleFiles <= 0 {
		return errors.New("identify.sample_files must be positive")
	}
	if c.Identify.ConfidenceThreshold <= 0 || c.Identify.ConfidenceThreshold > 100 {
		return errors.New("identify.confidence_threshold must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateTransfer() error {
	return ensurePositiveMap(map[string]int{
		"transfer.retry_backoff":  c.Transfer.RetryBackoff,
		"transfer.digest_workers": c.Transfer.DigestWorkers,
		"router.probe_timeout":    c.Router.ProbeTimeout,
	})
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive when ntfy_topic is set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
