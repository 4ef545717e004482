// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sources

import (
	"iter"

	"codeberg.org/pixivfe/markerscan/core/extract"
)

// FileResult holds what one file yielded, in source order.
type FileResult struct {
	Path        string               `yaml:"path"`
	Records     []extract.Record     `yaml:"records,omitempty"`
	Diagnostics []extract.Diagnostic `yaml:"diagnostics,omitempty"`
	// Cached reports whether the result came from the scan cache.
	Cached bool `yaml:"-"`
}

// Result is the outcome of one collection run. Files are ordered by path.
type Result struct {
	RunID string       `yaml:"-"`
	Files []FileResult `yaml:"files"`
}

// Records iterates over (path, record) pairs in file-then-offset order.
func (r *Result) Records() iter.Seq2[string, extract.Record] {
	return func(yield func(string, extract.Record) bool) {
		for _, f := range r.Files {
			for _, rec := range f.Records {
				if !yield(f.Path, rec) {
					return
				}
			}
		}
	}
}

// Diagnostics iterates over (path, diagnostic) pairs in the same order.
func (r *Result) Diagnostics() iter.Seq2[string, extract.Diagnostic] {
	return func(yield func(string, extract.Diagnostic) bool) {
		for _, f := range r.Files {
			for _, d := range f.Diagnostics {
				if !yield(f.Path, d) {
					return
				}
			}
		}
	}
}

// HasDiagnostics reports whether any file produced a diagnostic.
func (r *Result) HasDiagnostics() bool {
	_, diags, _ := r.counts()

	return diags > 0
}

func (r *Result) counts() (records, diags, cached int) {
	for _, f := range r.Files {
		records += len(f.Records)
		diags += len(f.Diagnostics)

		if f.Cached {
			cached++
		}
	}

	return records, diags, cached
}
