// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"errors"
	"fmt"
)

// Record is one extracted marker call.
//
// Strings holds one value for Singular calls and two (singular, plural) for
// Plural calls. Values are fully resolved: concatenations are folded and
// escapes are decoded, so nothing about the original quoting survives.
type Record struct {
	Kind    Kind     `yaml:"kind"`
	Marker  string   `yaml:"marker"`
	Strings []string `yaml:"strings"`
	// HasArgs reports whether a placeholder-arguments mapping was passed.
	HasArgs bool `yaml:"hasArgs"`
	// Context is the "context" option of the call, if any.
	Context string `yaml:"context,omitempty"`

	// Offset is the byte offset of the first token of the marker name.
	Offset int `yaml:"offset"`
	Line   int `yaml:"line"`
	Column int `yaml:"column"`
}

// Singular returns the first string of the record.
func (r Record) Singular() string {
	if len(r.Strings) == 0 {
		return ""
	}

	return r.Strings[0]
}

// Plural returns the plural form, or "" for Singular records.
func (r Record) Plural() string {
	if r.Kind != Plural || len(r.Strings) < 2 {
		return ""
	}

	return r.Strings[1]
}

// Code identifies a class of scan anomaly.
type Code int

const (
	// MalformedCall is a recognised marker whose arguments do not fit its layout.
	// The call is skipped and scanning continues.
	MalformedCall Code = iota + 1
	// UnterminatedLiteral is a string literal cut off by end of input.
	UnterminatedLiteral
	// UnterminatedCall is a marker call whose argument list never closes.
	UnterminatedCall
)

var (
	ErrMalformedCall       = errors.New("malformed marker call")
	ErrUnterminatedLiteral = errors.New("unterminated string literal")
	ErrUnterminatedCall    = errors.New("unterminated marker call")
)

func (c Code) String() string {
	switch c {
	case MalformedCall:
		return "malformed-call"
	case UnterminatedLiteral:
		return "unterminated-literal"
	case UnterminatedCall:
		return "unterminated-call"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Code) UnmarshalText(text []byte) error {
	for _, candidate := range []Code{MalformedCall, UnterminatedLiteral, UnterminatedCall} {
		if candidate.String() == string(text) {
			*c = candidate

			return nil
		}
	}

	return fmt.Errorf("unknown diagnostic code %q", text)
}

func (c Code) sentinel() error {
	switch c {
	case MalformedCall:
		return ErrMalformedCall
	case UnterminatedLiteral:
		return ErrUnterminatedLiteral
	case UnterminatedCall:
		return ErrUnterminatedCall
	default:
		return nil
	}
}

// Diagnostic reports an anomaly found while scanning. Diagnostics never
// interrupt a scan on their own.
type Diagnostic struct {
	Code    Code   `yaml:"code"`
	Marker  string `yaml:"marker,omitempty"`
	Message string `yaml:"message"`
	Offset  int    `yaml:"offset"`
	Line    int    `yaml:"line"`
	Column  int    `yaml:"column"`
}

func (d Diagnostic) Error() string {
	if d.Marker != "" {
		return fmt.Sprintf("%d:%d: %s: %s: %s", d.Line, d.Column, d.Code.sentinel(), d.Marker, d.Message)
	}

	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Code.sentinel(), d.Message)
}

// Unwrap lets errors.Is match the sentinel for the diagnostic's code.
func (d Diagnostic) Unwrap() error {
	return d.Code.sentinel()
}
