// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMarkers(t *testing.T) {
	t.Parallel()

	s := DefaultMarkers()
	require.Equal(t, 2, s.Len())

	ms := s.Markers()
	assert.Equal(t, "Drupal.t", ms[0].Name)
	assert.Equal(t, Singular, ms[0].Kind)
	assert.Equal(t, 1, ms[0].required())

	assert.Equal(t, "Drupal.formatPlural", ms[1].Name)
	assert.Equal(t, Plural, ms[1].Kind)
	assert.Equal(t, 3, ms[1].required())

	assert.Len(t, s.candidates("Drupal"), 2)
	assert.Empty(t, s.candidates("t"))
}

func TestMarkerValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		marker Marker
		errMsg string
	}{
		{
			name:   "valid singular",
			marker: Marker{Name: "t", Kind: Singular, Args: []Role{RoleString}},
		},
		{
			name:   "valid plural without count",
			marker: Marker{Name: "ngettext", Kind: Plural, Args: []Role{RoleString, RoleString, RoleMapping}},
		},
		{
			name:   "empty path segment",
			marker: Marker{Name: "Drupal..t", Kind: Singular, Args: []Role{RoleString}},
			errMsg: "dot-separated identifier path",
		},
		{
			name:   "leading digit",
			marker: Marker{Name: "9t", Kind: Singular, Args: []Role{RoleString}},
			errMsg: "dot-separated identifier path",
		},
		{
			name:   "plural with one string",
			marker: Marker{Name: "p", Kind: Plural, Args: []Role{RoleCount, RoleString}},
			errMsg: "needs 2 string arguments, has 1",
		},
		{
			name:   "singular with two strings",
			marker: Marker{Name: "s", Kind: Singular, Args: []Role{RoleString, RoleString}},
			errMsg: "needs 1 string arguments, has 2",
		},
		{
			name:   "count not first",
			marker: Marker{Name: "p", Kind: Plural, Args: []Role{RoleString, RoleCount, RoleString}},
			errMsg: "count must be the first argument",
		},
		{
			name:   "required after optional",
			marker: Marker{Name: "s", Kind: Singular, Args: []Role{RoleMapping, RoleString}},
			errMsg: "required string argument after an optional one",
		},
		{
			name:   "duplicate mapping",
			marker: Marker{Name: "s", Kind: Singular, Args: []Role{RoleString, RoleMapping, RoleMapping}},
			errMsg: "duplicate mapping argument",
		},
		{
			name:   "unknown role",
			marker: Marker{Name: "s", Kind: Singular, Args: []Role{RoleString, "domain"}},
			errMsg: `unknown argument role "domain"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := tt.marker

			err := m.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, strings.Split(m.Name, "."), m.path)

				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMarker)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewMarkerSetRejectsDuplicates(t *testing.T) {
	t.Parallel()

	m := Marker{Name: "t", Kind: Singular, Args: []Role{RoleString}}

	_, err := NewMarkerSet(m, m)
	require.ErrorIs(t, err, ErrInvalidMarker)

	_, err = NewMarkerSet()
	require.ErrorIs(t, err, errNoMarkers)
}

func TestLoadMarkers(t *testing.T) {
	t.Parallel()

	s, err := LoadMarkers(strings.NewReader(`
markers:
  - name: Drupal.t
    kind: singular
    args: [string, mapping, options]
  - name: Drupal.formatPlural
    kind: Plural
    args: [count, string, string, mapping, options]
    looseCount: true
`))
	require.NoError(t, err)

	ms := s.Markers()
	require.Len(t, ms, 2)
	assert.Equal(t, Plural, ms[1].Kind)
	assert.True(t, ms[1].LooseCount)
	assert.Equal(t, []Role{RoleCount, RoleString, RoleString, RoleMapping, RoleOptions}, ms[1].Args)

	// Only looseCount differs from the defaults.
	assert.NotEqual(t, DefaultMarkers().Fingerprint(), s.Fingerprint())
}

func TestLoadMarkersErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown kind":  "markers:\n  - name: t\n    kind: dual\n    args: [string]\n",
		"unknown field": "markers:\n  - name: t\n    kind: singular\n    args: [string]\n    domain: x\n",
		"empty":         "markers: []\n",
		"bad layout":    "markers:\n  - name: t\n    kind: plural\n    args: [string]\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadMarkers(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadMarkersFileRoundTrip(t *testing.T) {
	t.Parallel()

	out, err := DefaultMarkers().MarshalYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "kind: plural")

	path := filepath.Join(t.TempDir(), "markers.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o600))

	s, err := LoadMarkersFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMarkers().Fingerprint(), s.Fingerprint())

	_, err = LoadMarkersFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
