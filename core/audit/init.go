// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetDefaultLogger provides an ok log output format on startup if no config is set.
func SetDefaultLogger() {
	log.Logger = log.Output(ConsoleWriter(os.Stderr))
}

// isTerminal returns true if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConsoleWriter returns a writer for zerolog that has NoColor:!isTerminal(f).
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isTerminal(f)

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}

	if !noColor {
		w.FormatPrepare = prettyScanLine
	}

	return w
}

// prettyScanLine condenses per-file scan logs into a single readable line.
func prettyScanLine(m map[string]any) error {
	if sys, ok := m["sys"]; !ok || sys != sysScan {
		return nil
	}

	cached := ""
	if c, ok := m["cached"].(bool); ok && c {
		cached = " (cached)"
	}

	m["message"] = fmt.Sprintf("[%v] %v records, %v diagnostics %v%s",
		m["run"], m["records"], m["diagnostics"], m["path"], cached)

	for _, k := range []string{"sys", "run", "records", "diagnostics", "path", "cached"} {
		delete(m, k)
	}

	return nil
}
