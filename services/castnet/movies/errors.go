// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package movies decodes the movie-actor dataset and loads it from local
// files, HTTP(S) URLs or Google Cloud Storage objects.
//
// # Record Tolerance
//
// The dataset is produced by a third party and is not perfectly regular.
// Decoding never fails on a single bad field:
//   - missing "actors" or "genres" decode to empty lists
//   - a non-list "actors" value decodes to an empty list and sets
//     Record.ActorsMalformed so callers can count such records
//   - actor entries that are not [id, name] string pairs are skipped
//   - "year" and "rating" accept numbers or strings and are kept as text
//
// # Input Shapes
//
// Decode accepts a single JSON array of records and falls back to JSON
// Lines (one record per line), skipping lines that do not decode.
package movies

import "errors"

// Sentinel errors for dataset loading.
var (
	// ErrEmptyURI is returned when a source is opened without a location.
	ErrEmptyURI = errors.New("dataset uri is empty")

	// ErrUnsupportedScheme is returned for URIs other than file paths,
	// http(s):// and gs://.
	ErrUnsupportedScheme = errors.New("unsupported dataset uri scheme")

	// ErrFetchFailed is returned when a remote fetch completes with a
	// non-success status.
	ErrFetchFailed = errors.New("dataset fetch failed")

	// ErrNilCache is returned when a CachedFetcher is built without a cache.
	ErrNilCache = errors.New("dataset cache is nil")
)
