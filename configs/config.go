// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"
)

const (
	// EnvPrefix prefixes every environment variable read into [Config].
	EnvPrefix = "MARKERSCAN_"

	configFileEnv = EnvPrefix + "CONFIGFILE"
)

// defaultConfigFiles are tried in order when no file is named explicitly.
var defaultConfigFiles = []string{"./markerscan.yaml", "./markerscan.yml"}

// Config holds the application configuration.
type Config struct {
	Build buildInfo `yaml:"-"`

	Scan struct {
		// MarkersFile is a YAML marker definition file. Empty uses the
		// built-in Drupal.t and Drupal.formatPlural markers.
		MarkersFile string   `env:"SCAN_MARKERS_FILE" yaml:"markersFile"`
		Extensions  []string `env:"SCAN_EXTENSIONS"   yaml:"extensions"`
		Exclude     []string `env:"SCAN_EXCLUDE"      yaml:"exclude"`
		Workers     int      `env:"SCAN_WORKERS"      yaml:"workers"`
		// Strict turns any diagnostic into a failed run.
		Strict bool   `env:"SCAN_STRICT" yaml:"strict"`
		Format string `env:"SCAN_FORMAT" yaml:"format"`
	} `yaml:"scan"`

	Cache struct {
		Enabled  bool `env:"CACHE"          yaml:"enabled"`
		Size     int  `env:"CACHE_SIZE"     yaml:"size"`
		Compress bool `env:"CACHE_COMPRESS" yaml:"compress"`
	} `yaml:"cache"`

	Log struct {
		Level   string   `env:"LOG_LEVEL"   yaml:"level"`
		Outputs []string `env:"LOG_OUTPUTS" yaml:"outputs"`
		Format  string   `env:"LOG_FORMAT"  yaml:"format"`
	} `yaml:"log"`
}

// LoadConfig loads the configuration from various sources.
//
// configFilePath is the value of the --config flag, empty when the flag was
// not given. overrides run after every other source, so command-line flags
// take precedence over the file and the environment.
func (cfg *Config) LoadConfig(configFilePath string, overrides ...func(*Config)) error {
	// Determine the config file path with the correct precedence:
	// 1. Command-line flag (--config)
	// 2. Environment variable (MARKERSCAN_CONFIGFILE)
	// 3. ./markerscan.yaml, then ./markerscan.yml
	explicit := true

	if configFilePath == "" {
		if envVar := os.Getenv(configFileEnv); envVar != "" {
			configFilePath = envVar
		} else {
			explicit = false
			configFilePath = findDefaultConfigFile()
		}
	}

	cfg.SetDefaults()
	cfg.Build.load()

	if err := cfg.readYAML(configFilePath, explicit); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := cfg.readEnv(); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()
	cfg.print()

	return nil
}

func findDefaultConfigFile() string {
	for _, path := range defaultConfigFiles {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
