// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "runtime"

const defaultCacheSize = 512

// SetDefaults populates the configuration with default values.
func (cfg *Config) SetDefaults() {
	cfg.Scan.MarkersFile = ""
	cfg.Scan.Extensions = []string{".js"}
	cfg.Scan.Exclude = []string{"node_modules", ".git", "*.min.js"}
	cfg.Scan.Workers = runtime.NumCPU()
	cfg.Scan.Strict = false
	cfg.Scan.Format = FormatYAML

	cfg.Cache.Enabled = true
	cfg.Cache.Size = defaultCacheSize
	cfg.Cache.Compress = true

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
