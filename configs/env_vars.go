// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// readEnv overrides cfg with any MARKERSCAN_* environment variables that are
// set. Unset variables leave the current values alone.
func (cfg *Config) readEnv() error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// useDotEnv loads environment variables from a .env file, checking
// the current working directory, then the directory of the binary.
// Variables already present in the environment are never overridden.
//
// This function soft fails if the .env file doesn't exist in either location.
func useDotEnv() error {
	// Try to load from current working directory first
	cwd, err := os.Getwd()
	if err != nil {
		log.Warn().
			Err(err).
			Msg("Could not get current working directory")
	} else {
		envPath := filepath.Join(cwd, ".env")
		if err := tryLoadDotEnv(envPath); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	// Fallback: Determine directory of the running binary
	dir := "."
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}

	if err := tryLoadDotEnv(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// tryLoadDotEnv loads the .env file at envPath.
//
// It returns an error wrapping os.ErrNotExist when there is no such file.
func tryLoadDotEnv(envPath string) error {
	if _, err := os.Stat(envPath); err != nil {
		return err
	}

	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	log.Debug().
		Str("path", envPath).
		Msg("Loaded environment variables from .env file")

	return nil
}
