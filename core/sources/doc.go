// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package sources runs the marker extractor over whole source trees.
//
// Every file is scanned independently and files are scanned in parallel.
// Results are merged in file-then-offset order, so the output never depends
// on the number of workers or on which files were served from the cache.
package sources
