// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
markerscan lists the translatable strings passed to Drupal.t and
Drupal.formatPlural, or to any other configured marker function, in
JavaScript sources.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeberg.org/pixivfe/markerscan/core/audit"
)

// main is the entry point of the application.
func main() {
	audit.SetDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		log.Error().Err(err).Msg("markerscan failed")
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand is the same as running "scan".
func newRootCmd() *cobra.Command {
	var configFile string

	scanCmd := newScanCmd(&configFile)

	rootCmd := &cobra.Command{
		Use:   "markerscan [paths...]",
		Short: "Extract translatable strings from marker calls in JavaScript sources",
		Long: `markerscan finds calls to translation marker functions such as Drupal.t and
Drupal.formatPlural and prints the literal strings passed to them, with their
positions. Calls that do not fit a marker's argument layout are reported as
diagnostics and skipped.

Without a subcommand, markerscan behaves like "markerscan scan".`,
		Args:          cobra.ArbitraryArgs,
		RunE:          scanCmd.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"path to a YAML configuration file (default: ./markerscan.yaml or ./markerscan.yml)")
	rootCmd.Flags().AddFlagSet(scanCmd.Flags())

	rootCmd.AddCommand(scanCmd, newMarkersCmd(&configFile), newVersionCmd())

	return rootCmd
}
