package config

import "srpack/internal/manifest"

const (
	defaultModelDir      = "~/esp/esp-sr/model"
	defaultOutputDir     = "~/.local/share/srpack/output"
	defaultLogDir        = "~/.local/share/srpack/logs"
	defaultContainerName = "srmodels.bin"
	defaultBundleName    = "assets.bin"
	defaultManifestName  = "index.json"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// defaultExclude lists control filenames never bundled as payload.
var defaultExclude = []string{"config.json"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Assets: Assets{
			Threshold:     manifest.DefaultThreshold,
			DurationMS:    manifest.DefaultDurationMS,
			ContainerName: defaultContainerName,
			BundleName:    defaultBundleName,
			ManifestName:  defaultManifestName,
			Exclude:       append([]string(nil), defaultExclude...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
