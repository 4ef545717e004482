// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	config "codeberg.org/pixivfe/markerscan/configs"
	"codeberg.org/pixivfe/markerscan/core/sources"
)

var errDiagnostics = errors.New("diagnostics reported in strict mode")

// scanFlags mirror the scan and cache sections of the configuration.
type scanFlags struct {
	markers string
	workers int
	exts    []string
	exclude []string
	format  string
	strict  bool
	noCache bool
}

// apply copies the flags the user actually set onto cfg.
func (f *scanFlags) apply(cmd *cobra.Command) func(*config.Config) {
	changed := cmd.Flags().Changed

	return func(cfg *config.Config) {
		if changed("markers") {
			cfg.Scan.MarkersFile = f.markers
		}

		if changed("workers") {
			cfg.Scan.Workers = f.workers
		}

		if changed("ext") {
			cfg.Scan.Extensions = f.exts
		}

		if changed("exclude") {
			cfg.Scan.Exclude = f.exclude
		}

		if changed("format") {
			cfg.Scan.Format = f.format
		}

		if changed("strict") {
			cfg.Scan.Strict = f.strict
		}

		if changed("no-cache") {
			cfg.Cache.Enabled = !f.noCache
		}
	}
}

func newScanCmd(configFile *string) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan files and directories for marker calls",
		Long: `Scan walks the given files and directories (default: the current directory)
and prints every extracted record in file-then-offset order. Diagnostics are
logged as warnings; with --strict any diagnostic fails the run.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{}
			if err := cfg.LoadConfig(*configFile, flags.apply(cmd)); err != nil {
				return err
			}

			markers, err := cfg.Markers()
			if err != nil {
				return err
			}

			opts, err := cfg.CollectorOptions()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				args = []string{"."}
			}

			result, err := sources.NewCollector(markers, opts).Collect(cmd.Context(), args...)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			for path, d := range result.Diagnostics() {
				log.Warn().
					Str("path", path).
					Int("line", d.Line).
					Int("column", d.Column).
					Str("code", d.Code.String()).
					Str("marker", d.Marker).
					Msg(d.Message)
			}

			if err := writeResult(cmd.OutOrStdout(), result, cfg.Scan.Format); err != nil {
				return err
			}

			if cfg.Scan.Strict && result.HasDiagnostics() {
				return errDiagnostics
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flags.markers, "markers", "", "YAML file defining the marker functions")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "number of files scanned in parallel")
	cmd.Flags().StringSliceVar(&flags.exts, "ext", nil, "file extensions to scan inside directories")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "wildcard patterns of paths to skip")
	cmd.Flags().StringVarP(&flags.format, "format", "f", config.FormatYAML, "output format: yaml or text")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit non-zero when any diagnostic is reported")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the scan cache")

	return cmd
}
