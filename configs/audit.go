// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"codeberg.org/pixivfe/markerscan/core/audit"
)

const logFilePermissions = 0o666

// setupAudit initializes the global logger with the provided configuration.
func (cfg *Config) setupAudit() {
	switch cfg.Log.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
	}

	writers := []io.Writer{}

	for _, output := range cfg.Log.Outputs {
		var f *os.File

		switch output {
		case "/dev/stdout":
			f = os.Stdout
		case "/dev/stderr":
			f = os.Stderr
		default:
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) // #nosec:G302,G304
			if err != nil {
				// If opening the file fails, we simply don't add it to the writers.
				fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", output, err)

				continue
			}

			f = file
		}

		if cfg.Log.Format == "json" {
			writers = append(writers, f)
		} else {
			writers = append(writers, audit.ConsoleWriter(f))
		}
	}

	if len(writers) == 0 {
		writers = append(writers, audit.ConsoleWriter(os.Stderr))
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))
}
