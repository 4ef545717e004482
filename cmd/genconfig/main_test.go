// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvFile(t *testing.T) {
	t.Parallel()

	out := envFile()

	assert.Contains(t, out, "## Scan\n")
	assert.Contains(t, out, "# MARKERSCAN_SCAN_MARKERS_FILE=\n")
	assert.Contains(t, out, "# MARKERSCAN_SCAN_EXTENSIONS=.js\n")
	assert.Contains(t, out, "# MARKERSCAN_SCAN_EXCLUDE=node_modules,.git,*.min.js\n")
	assert.Contains(t, out, "# MARKERSCAN_CACHE_SIZE=512\n")
	assert.NotContains(t, out, "Build")
}

func TestYAMLFile(t *testing.T) {
	t.Parallel()

	out := yamlFile()

	assert.Contains(t, out, "\nscan:\n")
	assert.Contains(t, out, "\ncache:\n")

	for line := range strings.SplitSeq(out, "\n") {
		if strings.HasPrefix(line, " ") {
			assert.True(t, strings.HasPrefix(strings.TrimSpace(line), "#"), line)
		}
	}
}
