package config

import (
	"fmt"
	"os"
	"strings"

	"srpack/internal/manifest"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssets()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.ModelDir) == "" {
		if value := os.Getenv("ESP_SR_MODEL_PATH"); value != "" {
			c.Paths.ModelDir = value
		} else {
			c.Paths.ModelDir = defaultModelDir
		}
	}
	var err error
	if c.Paths.ModelDir, err = expandPath(c.Paths.ModelDir); err != nil {
		return fmt.Errorf("paths.model_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssets() {
	if c.Assets.ContainerName == "" {
		c.Assets.ContainerName = defaultContainerName
	}
	if c.Assets.BundleName == "" {
		c.Assets.BundleName = defaultBundleName
	}
	if c.Assets.ManifestName == "" {
		c.Assets.ManifestName = defaultManifestName
	}
	if c.Assets.Exclude == nil {
		c.Assets.Exclude = append([]string(nil), defaultExclude...)
	}
	if c.Assets.DurationMS == 0 {
		c.Assets.DurationMS = manifest.DefaultDurationMS
	}
	trimmed := make([]string, 0, len(c.Assets.Models))
	for _, name := range c.Assets.Models {
		if name = strings.TrimSpace(name); name != "" {
			trimmed = append(trimmed, name)
		}
	}
	c.Assets.Models = trimmed
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
