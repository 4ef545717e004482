// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Output formats for scan results.
const (
	FormatYAML = "yaml"
	FormatText = "text"
)

// validation errors.
var (
	errInvalidLogLevel   = errors.New("invalid Log.Level value")
	errInvalidLogFormat  = errors.New("invalid Log.Format value")
	errInvalidFormat     = errors.New("invalid Scan.Format value")
	errInvalidWorkers    = errors.New("Scan.Workers must be positive")
	errInvalidCacheSize  = errors.New("Cache.Size must be positive when the cache is enabled")
	errInvalidExtension  = errors.New("invalid Scan.Extensions entry")
	errNoExtensions      = errors.New("Scan.Extensions cannot be empty")
	errEmptyExcludeEntry = errors.New("Scan.Exclude cannot contain empty patterns")
)

var extensionRegexp = regexp.MustCompile(`^\.?[A-Za-z0-9_-]+$`)

// Validate checks the configuration and normalizes extensions to a
// lower-case, dot-prefixed form.
func (cfg *Config) Validate() error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.Log.Level)
	}

	switch cfg.Log.Format {
	case "console", "json":
		// valid
	default:
		return fmt.Errorf("%w: %q", errInvalidLogFormat, cfg.Log.Format)
	}

	switch cfg.Scan.Format {
	case FormatYAML, FormatText:
		// valid
	default:
		return fmt.Errorf("%w: %q", errInvalidFormat, cfg.Scan.Format)
	}

	if cfg.Scan.Workers <= 0 {
		return errInvalidWorkers
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return errInvalidCacheSize
	}

	if len(cfg.Scan.Extensions) == 0 {
		return errNoExtensions
	}

	exts := make([]string, 0, len(cfg.Scan.Extensions))

	for _, ext := range cfg.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !extensionRegexp.MatchString(ext) {
			return fmt.Errorf("%w: %q", errInvalidExtension, ext)
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		if !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}

	cfg.Scan.Extensions = exts

	if slices.ContainsFunc(cfg.Scan.Exclude, func(p string) bool { return strings.TrimSpace(p) == "" }) {
		return errEmptyExcludeEntry
	}

	return nil
}
