package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAssets() error {
	if c.Assets.Threshold < 0 || c.Assets.Threshold > 1 {
		return errors.New("assets.threshold must be between 0 and 1")
	}
	if c.Assets.DurationMS < 0 {
		return errors.New("assets.duration_ms must not be negative")
	}
	if c.Assets.ContainerName == c.Assets.BundleName {
		return fmt.Errorf("assets.container_name and assets.bundle_name must differ (both %q)", c.Assets.ContainerName)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
