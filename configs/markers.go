// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"

	"codeberg.org/pixivfe/markerscan/core/extract"
	"codeberg.org/pixivfe/markerscan/core/scancache"
	"codeberg.org/pixivfe/markerscan/core/sources"
)

// Markers resolves the marker set to scan for.
func (cfg *Config) Markers() (*extract.MarkerSet, error) {
	if cfg.Scan.MarkersFile == "" {
		return extract.DefaultMarkers(), nil
	}

	markers, err := extract.LoadMarkersFile(cfg.Scan.MarkersFile)
	if err != nil {
		return nil, fmt.Errorf("loading markers: %w", err)
	}

	return markers, nil
}

// CollectorOptions turns the scan and cache sections into collector options.
func (cfg *Config) CollectorOptions() (sources.Options, error) {
	opts := sources.Options{
		Workers:    cfg.Scan.Workers,
		Extensions: cfg.Scan.Extensions,
		Exclude:    cfg.Scan.Exclude,
	}

	if cfg.Cache.Enabled {
		cache, err := scancache.New(cfg.Cache.Size, cfg.Cache.Compress)
		if err != nil {
			return sources.Options{}, fmt.Errorf("creating scan cache: %w", err)
		}

		opts.Cache = cache
	}

	return opts, nil
}
