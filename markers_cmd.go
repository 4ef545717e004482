// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	config "codeberg.org/pixivfe/markerscan/configs"
)

func newMarkersCmd(configFile *string) *cobra.Command {
	var markersFile string

	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Print the effective marker definitions as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := &config.Config{}

			err := cfg.LoadConfig(*configFile, func(c *config.Config) {
				if cmd.Flags().Changed("markers") {
					c.Scan.MarkersFile = markersFile
				}
			})
			if err != nil {
				return err
			}

			markers, err := cfg.Markers()
			if err != nil {
				return err
			}

			out, err := markers.MarshalYAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}

	cmd.Flags().StringVar(&markersFile, "markers", "", "YAML file defining the marker functions")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of markerscan",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "markerscan %s\n", config.Version())
		},
	}
}
