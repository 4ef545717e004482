// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package sources

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/match"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"codeberg.org/pixivfe/markerscan/core/audit"
	"codeberg.org/pixivfe/markerscan/core/extract"
	"codeberg.org/pixivfe/markerscan/core/idgen"
	"codeberg.org/pixivfe/markerscan/core/scancache"
)

// ErrNotRegular is returned for input paths that are neither a directory
// nor a regular file.
var ErrNotRegular = errors.New("not a regular file or directory")

// DefaultExtensions are scanned when [Options.Extensions] is empty.
var DefaultExtensions = []string{".js"}

// Options tune a [Collector].
type Options struct {
	// Workers bounds the number of files scanned at once.
	// Non-positive means GOMAXPROCS.
	Workers int
	// Extensions selects files found while walking directories.
	// Files named directly are always scanned.
	Extensions []string
	// Exclude holds wildcard patterns ('*' and '?') matched against both the
	// slash-separated path below the walked root and the base name. A matching directory is skipped
	// entirely.
	Exclude []string
	// Cache, when set, is consulted before scanning a file and filled after.
	Cache *scancache.Cache
	// Logger receives the run summary and the per-file lines. It defaults
	// to the global logger.
	Logger *zerolog.Logger
}

// Collector scans many source files with one marker set.
type Collector struct {
	markers     *extract.MarkerSet
	fingerprint string
	workers     int
	extensions  []string
	exclude     []string
	cache       *scancache.Cache
	logger      zerolog.Logger
	// spanLogger receives the per-file lines.
	spanLogger  zerolog.Logger
}

// NewCollector returns a collector for markers. A nil markers uses
// [extract.DefaultMarkers].
func NewCollector(markers *extract.MarkerSet, opts Options) *Collector {
	if markers == nil {
		markers = extract.DefaultMarkers()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		normalized = append(normalized, ext)
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Collector{
		markers:     markers,
		fingerprint: markers.Fingerprint(),
		workers:     workers,
		extensions:  normalized,
		exclude:     slices.Clone(opts.Exclude),
		cache:       opts.Cache,
		logger:      logger.With().Str("sys", "sources").Logger(),
		spanLogger:  logger,
	}
}

// Collect scans every file under paths and returns the results ordered by
// path. Directories are walked recursively. A file that cannot be read fails
// the whole run; anomalies inside files are reported as diagnostics.
func (c *Collector) Collect(ctx context.Context, paths ...string) (*Result, error) {
	start := time.Now()
	runID := idgen.Make()
	logger := c.logger.With().Str("run", runID).Logger()

	files, err := c.expand(paths)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int("files", len(files)).
		Int("workers", c.workers).
		Str("markers", c.fingerprint).
		Msg("Collecting marker calls")

	results := make([]FileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := c.scanFile(ctx, runID, path)
			if err != nil {
				return err
			}

			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Collection aborted")

		return nil, err
	}

	result := &Result{RunID: runID, Files: results}
	records, diags, cached := result.counts()

	logger.Info().
		Int("files", len(results)).
		Int("records", records).
		Int("diagnostics", diags).
		Int("cached", cached).
		Dur("dur", time.Since(start)).
		Msg("Collection finished")

	return result, nil
}

// ScanFile scans a single file outside of a collection run.
func (c *Collector) ScanFile(ctx context.Context, path string) (FileResult, error) {
	return c.scanFile(ctx, "", path)
}

func (c *Collector) scanFile(ctx context.Context, runID, path string) (FileResult, error) {
	span := audit.Span{RunID: runID, Path: path, Logger: &c.spanLogger}
	span.Begin(ctx)

	defer func() {
		span.End()
		span.Log()
	}()

	raw, err := os.ReadFile(path)
	if err != nil {
		span.Error = err

		return FileResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	span.Size = len(raw)
	res := FileResult{Path: path}

	var key string
	if c.cache != nil {
		key = scancache.Key(raw, c.fingerprint)

		if cached, ok := c.lookup(key); ok {
			res.Records, res.Diagnostics, res.Cached = cached.Records, cached.Diagnostics, true
			span.Records, span.Diagnostics, span.Cached = len(res.Records), len(res.Diagnostics), true

			return res, nil
		}
	}

	src, err := decode(raw)
	if err != nil {
		span.Error = err

		return FileResult{}, fmt.Errorf("decode %s: %w", path, err)
	}

	records, diags := extract.ScanAll(src, c.markers)
	res.Records, res.Diagnostics = nonEmpty(records), nonEmpty(diags)
	span.Records, span.Diagnostics = len(res.Records), len(res.Diagnostics)

	if c.cache != nil {
		c.store(key, cacheEntry{Records: res.Records, Diagnostics: res.Diagnostics})
	}

	return res, nil
}

// cacheEntry is the form of a file's scan stored in the cache. It is gob
// encoded so that strings come back byte for byte, including invalid UTF-8.
type cacheEntry struct {
	Records     []extract.Record
	Diagnostics []extract.Diagnostic
}

func (c *Collector) lookup(key string) (cacheEntry, bool) {
	data, ok := c.cache.Get(key)
	if !ok {
		return cacheEntry{}, false
	}

	var entry cacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		c.cache.Remove(key)

		return cacheEntry{}, false
	}

	entry.Records = nonEmpty(entry.Records)
	entry.Diagnostics = nonEmpty(entry.Diagnostics)

	return entry, true
}

func (c *Collector) store(key string, entry cacheEntry) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode scan result for caching")

		return
	}

	c.cache.Add(key, buf.Bytes())
}

// decode turns raw file contents into text. A UTF-8 or UTF-16 byte order
// mark selects the encoding and is stripped; anything else is taken as UTF-8.
func decode(raw []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// expand resolves paths into a sorted list of unique files.
func (c *Collector) expand(paths []string) ([]string, error) {
	seen := make(map[string]struct{})

	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}

		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		root = filepath.Clean(root)

		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		switch {
		case info.Mode().IsRegular():
			add(root)
		case info.IsDir():
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}

				if path != root && c.excluded(root, path) {
					if d.IsDir() {
						return filepath.SkipDir
					}

					return nil
				}

				if d.Type().IsRegular() && c.wanted(path) {
					add(path)
				}

				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", root, err)
			}
		default:
			return nil, fmt.Errorf("%s: %w", root, ErrNotRegular)
		}
	}

	slices.Sort(files)

	return files, nil
}

func (c *Collector) wanted(path string) bool {
	return slices.Contains(c.extensions, strings.ToLower(filepath.Ext(path)))
}

// excluded matches path, relative to the walked root, against the exclude
// patterns.
func (c *Collector) excluded(root, path string) bool {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		relPath = path
	}

	slashed := filepath.ToSlash(relPath)
	base := filepath.Base(path)

	for _, pattern := range c.exclude {
		if match.Match(slashed, pattern) || match.Match(base, pattern) {
			return true
		}
	}

	return false
}

func nonEmpty[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}

	return s
}
