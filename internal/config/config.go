package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// ModelDir is the esp-sr checkout holding multinet_model/.
	ModelDir string `toml:"model_dir"`
	// OutputDir receives built bundles when the CLI is not given an
	// explicit output path.
	OutputDir string `toml:"output_dir"`
	// LogDir holds log files and the build history database.
	LogDir string `toml:"log_dir"`
	// ScratchDir is the parent for per-build scratch workspaces. Empty
	// means the system temp directory.
	ScratchDir string `toml:"scratch_dir"`
}

// Assets contains bundle content and naming configuration.
type Assets struct {
	// Models are the default multinet model names to pack.
	Models []string `toml:"models"`
	// CNWakeWord and ENWakeWord seed the manifest command lists. Empty
	// means "configure at runtime" and omits the entry.
	CNWakeWord string `toml:"cn_wake_word"`
	ENWakeWord string `toml:"en_wake_word"`
	// Threshold is the detection threshold written into the manifest.
	Threshold float64 `toml:"threshold"`
	// DurationMS is the detection window written into the manifest.
	DurationMS int `toml:"duration_ms"`
	// ContainerName is the model container filename inside the bundle.
	ContainerName string `toml:"container_name"`
	// BundleName is the output bundle filename.
	BundleName string `toml:"bundle_name"`
	// ManifestName is the manifest filename inside the bundle.
	ManifestName string `toml:"manifest_name"`
	// Exclude lists control filenames skipped during bundling.
	Exclude []string `toml:"exclude"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains build history database configuration.
type History struct {
	Enabled bool `toml:"enabled"`
	// Path overrides the database location; empty means <log_dir>/history.db.
	Path string `toml:"path"`
}

// Config encapsulates all configuration values for srpack.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Assets  Assets  `toml:"assets"`
	Logging Logging `toml:"logging"`
	History History `toml:"history"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/srpack/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file. A
// missing file yields defaults; exists reports whether a file was read.
func Load(path string) (cfg *Config, resolvedPath string, exists bool, err error) {
	c := Default()

	resolvedPath, exists, err = resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&c); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := c.Validate(); err != nil {
		return nil, "", false, err
	}
	return &c, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
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
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories builds rely on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the resolved build history database path.
func (c *Config) HistoryDBPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
