// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

// readYAML merges the file at configFilePath into cfg. A missing file is an
// error only when it was named explicitly.
func (cfg *Config) readYAML(configFilePath string, explicit bool) error {
	if configFilePath == "" {
		return nil
	}

	yamlCfg, err := os.ReadFile(configFilePath) // #nosec G304 -- Only loading a config file
	if errors.Is(err, os.ErrNotExist) && !explicit {
		log.Info().
			Str("path", configFilePath).
			Msg("No YAML configuration file found, skipping")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", configFilePath, err)
	}

	if err := yaml.UnmarshalWithOptions(yamlCfg, cfg, yaml.DisallowUnknownField()); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", configFilePath, err)
	}

	log.Debug().
		Str("path", configFilePath).
		Msg("Successfully loaded configuration")

	return nil
}
