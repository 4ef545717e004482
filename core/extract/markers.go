// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Kind distinguishes the two marker call shapes.
type Kind int

const (
	// Singular marks a call with one translatable string.
	Singular Kind = iota
	// Plural marks a call with a singular and a plural form.
	Plural
)

func (k Kind) String() string {
	switch k {
	case Singular:
		return "singular"
	case Plural:
		return "plural"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// strings reports how many string arguments a call of this kind carries.
func (k Kind) strings() int {
	if k == Plural {
		return 2
	}

	return 1
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "singular":
		*k = Singular
	case "plural":
		*k = Plural
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, text)
	}

	return nil
}

// Role is the meaning of one positional argument of a marker call.
type Role string

const (
	// RoleCount is a leading count argument. It is discarded.
	RoleCount Role = "count"
	// RoleString is a translatable string value.
	RoleString Role = "string"
	// RoleMapping is an optional placeholder-arguments mapping.
	RoleMapping Role = "mapping"
	// RoleOptions is an optional options object; its "context" key is extracted.
	RoleOptions Role = "options"
)

func (r Role) optional() bool {
	return r == RoleMapping || r == RoleOptions
}

// marker configuration errors.
var (
	ErrInvalidMarker = errors.New("invalid marker")
	errUnknownKind   = errors.New("unknown marker kind")
	errNoMarkers     = errors.New("marker set is empty")
)

// Marker describes one recognised call and the layout of its arguments.
type Marker struct {
	// Name is the dot-separated callee path, for example "Drupal.t".
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`
	Args []Role `yaml:"args"`
	// LooseCount accepts any expression as the count argument instead of
	// only a numeric literal.
	LooseCount bool `yaml:"looseCount,omitempty"`

	path []string
}

// Validate checks the argument layout against the marker kind.
func (m *Marker) Validate() error {
	parts := strings.Split(m.Name, ".")
	for _, p := range parts {
		if !isIdentifier(p) {
			return fmt.Errorf("%w %q: name must be a dot-separated identifier path", ErrInvalidMarker, m.Name)
		}
	}

	if m.Kind != Singular && m.Kind != Plural {
		return fmt.Errorf("%w %q: %w", ErrInvalidMarker, m.Name, errUnknownKind)
	}

	seen := map[Role]bool{}
	strs := 0
	optional := false

	for i, r := range m.Args {
		switch r {
		case RoleString:
			strs++
		case RoleCount:
			if i != 0 {
				return fmt.Errorf("%w %q: count must be the first argument", ErrInvalidMarker, m.Name)
			}
		case RoleMapping, RoleOptions:
		default:
			return fmt.Errorf("%w %q: unknown argument role %q", ErrInvalidMarker, m.Name, r)
		}

		if r != RoleString && seen[r] {
			return fmt.Errorf("%w %q: duplicate %s argument", ErrInvalidMarker, m.Name, r)
		}

		if optional && !r.optional() {
			return fmt.Errorf("%w %q: required %s argument after an optional one", ErrInvalidMarker, m.Name, r)
		}

		seen[r] = true
		optional = optional || r.optional()
	}

	if want := m.Kind.strings(); strs != want {
		return fmt.Errorf("%w %q: %s marker needs %d string arguments, has %d",
			ErrInvalidMarker, m.Name, m.Kind, want, strs)
	}

	m.path = parts

	return nil
}

// required returns the number of arguments that must be present.
func (m *Marker) required() int {
	n := 0
	for _, r := range m.Args {
		if r.optional() {
			break
		}

		n++
	}

	return n
}

// MarkerSet is a validated, ordered set of markers.
type MarkerSet struct {
	markers []Marker
	// byHead indexes markers by the first identifier of their path.
	byHead map[string][]int
}

// NewMarkerSet validates markers and builds a set from them.
func NewMarkerSet(markers ...Marker) (*MarkerSet, error) {
	if len(markers) == 0 {
		return nil, errNoMarkers
	}

	s := &MarkerSet{
		markers: make([]Marker, 0, len(markers)),
		byHead:  make(map[string][]int),
	}

	names := make(map[string]bool, len(markers))

	for _, m := range markers {
		m.Args = append([]Role(nil), m.Args...)
		if err := m.Validate(); err != nil {
			return nil, err
		}

		if names[m.Name] {
			return nil, fmt.Errorf("%w %q: declared twice", ErrInvalidMarker, m.Name)
		}

		names[m.Name] = true

		s.byHead[m.path[0]] = append(s.byHead[m.path[0]], len(s.markers))
		s.markers = append(s.markers, m)
	}

	return s, nil
}

// DefaultMarkers returns the Drupal.t and Drupal.formatPlural markers.
func DefaultMarkers() *MarkerSet {
	s, err := NewMarkerSet(
		Marker{
			Name: "Drupal.t",
			Kind: Singular,
			Args: []Role{RoleString, RoleMapping, RoleOptions},
		},
		Marker{
			Name: "Drupal.formatPlural",
			Kind: Plural,
			Args: []Role{RoleCount, RoleString, RoleString, RoleMapping, RoleOptions},
		},
	)
	if err != nil {
		panic(err)
	}

	return s
}

// Markers returns a copy of the markers in declaration order.
func (s *MarkerSet) Markers() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)

	return out
}

// Len returns the number of markers.
func (s *MarkerSet) Len() int {
	return len(s.markers)
}

// candidates returns the markers whose path starts with head.
func (s *MarkerSet) candidates(head string) []int {
	return s.byHead[head]
}

// Fingerprint returns a stable digest of the set, suitable for cache keys.
func (s *MarkerSet) Fingerprint() string {
	h := sha256.New()

	for _, m := range s.markers {
		fmt.Fprintf(h, "%s\x00%s\x00%t", m.Name, m.Kind, m.LooseCount)

		for _, r := range m.Args {
			fmt.Fprintf(h, "\x00%s", r)
		}

		h.Write([]byte{'\n'})
	}

	return hex.EncodeToString(h.Sum(nil))[:16]
}

type markerFile struct {
	Markers []Marker `yaml:"markers"`
}

// LoadMarkers parses a YAML marker configuration:
//
//	markers:
//	  - name: Drupal.t
//	    kind: singular
//	    args: [string, mapping, options]
func LoadMarkers(r io.Reader) (*MarkerSet, error) {
	var f markerFile
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode marker configuration: %w", err)
	}

	return NewMarkerSet(f.Markers...)
}

// LoadMarkersFile reads a YAML marker configuration from path.
func LoadMarkersFile(path string) (*MarkerSet, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open marker configuration: %w", err)
	}
	defer f.Close()

	s, err := LoadMarkers(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// MarshalYAML renders the set in the same layout LoadMarkers accepts.
func (s *MarkerSet) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(markerFile{Markers: s.markers})
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	l := newLexer(s)

	tok := l.lexIdent()

	return tok.kind == tokIdent && tok.end == len(s) && !isDigit(s[0])
}
