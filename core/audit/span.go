// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"fmt"
	"runtime/trace"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sysScan = "scan"

// Span represents the scan of a single source file.
type Span struct {
	// only these fields are set automatically
	task     *trace.Task
	start    time.Time
	duration time.Duration

	RunID       string
	Path        string
	Size        int
	Records     int
	Diagnostics int
	Cached      bool
	Error       error

	// Logger receives the line written by Log. Nil means the global logger.
	Logger *zerolog.Logger
}

// Begin starts timing the span and opens a runtime/trace task for it.
func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "scan.file")
	trace.Log(ctx, "path", span.Path)

	return ctx
}

// End stops the span. Calling it more than once has no effect.
func (span *Span) End() {
	// only end once
	if span.task != nil {
		span.duration = time.Since(span.start)
		span.task.End()
		span.task = nil
	}
}

// Duration returns the time between Begin and End.
func (span Span) Duration() time.Duration {
	return span.duration
}

// Log writes one line describing the span, at warn level if it failed.
func (span Span) Log() {
	logger := &log.Logger
	if span.Logger != nil {
		logger = span.Logger
	}

	event := logger.Debug()
	if span.Error != nil {
		event = logger.Warn().Err(span.Error)
	}

	event.Str("sys", sysScan).
		Str("run", span.RunID).
		Str("path", span.Path).
		Str("len", humanizeSize(span.Size)).
		Int("records", span.Records).
		Int("diagnostics", span.Diagnostics).
		Bool("cached", span.Cached).
		Dur("dur", span.duration).
		Send()
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
	bytesInGB = bytesInMB * bytesInKB
)

func humanizeSize(x int) string {
	if x < bytesInKB {
		return strconv.Itoa(x)
	}

	if x < bytesInMB {
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	}

	if x < bytesInGB {
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	}

	return fmt.Sprintf("%.2fG", float64(x)/bytesInGB)
}
