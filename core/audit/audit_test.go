// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanizeSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{1023, "1023"},
		{1024, "1.00K"},
		{1536, "1.50K"},
		{bytesInMB, "1.00M"},
		{3 * bytesInGB, "3.00G"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeSize(tt.in))
	}
}

func TestSpanEndOnce(t *testing.T) {
	t.Parallel()

	span := Span{Path: "a.js"}
	span.Begin(context.Background())
	span.End()

	first := span.Duration()
	assert.GreaterOrEqual(t, first, time.Duration(0))

	span.End()
	assert.Equal(t, first, span.Duration())
}

func TestSpanLogUsesOwnLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	span := Span{RunID: "r1", Path: "a.js", Size: 2048, Records: 2, Logger: &logger}
	span.Log()

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"sys":"scan"`)
	assert.Contains(t, out, `"path":"a.js"`)
	assert.Contains(t, out, `"len":"2.00K"`)
	assert.Contains(t, out, `"records":2`)

	buf.Reset()

	span.Error = errors.New("boom")
	span.Log()

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestPrettyScanLine(t *testing.T) {
	t.Parallel()

	m := map[string]any{
		"sys":         sysScan,
		"run":         "r1",
		"path":        "misc/drupal.js",
		"records":     3,
		"diagnostics": 1,
		"cached":      true,
		"dur":         "1ms",
	}

	assert.NoError(t, prettyScanLine(m))
	assert.Equal(t, "[r1] 3 records, 1 diagnostics misc/drupal.js (cached)", m["message"])
	assert.NotContains(t, m, "path")
	assert.Contains(t, m, "dur")

	other := map[string]any{"sys": "config", "message": "keep"}
	assert.NoError(t, prettyScanLine(other))
	assert.Equal(t, "keep", other["message"])
}
