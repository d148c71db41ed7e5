// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// TimestampLayout formats the timestamp embedded in output file names.
const TimestampLayout = "20060102_150405"

// Sink persists tables.
type Sink interface {
	// Write stores t and returns where it was written.
	Write(ctx context.Context, t Table) (string, error)
}

// FileName returns "<name>_<YYYYMMDD_HHMMSS>.csv".
func FileName(name string, ts time.Time) string {
	return name + "_" + ts.Format(TimestampLayout) + ".csv"
}

// =============================================================================
// CSV files
// =============================================================================

// CSVSink writes each table to a timestamped CSV file in Dir.
type CSVSink struct {
	// Dir is the output directory. Created on first write.
	Dir string

	// Now returns the timestamp used in file names. Defaults to time.Now.
	Now func() time.Time
}

// NewCSVSink creates a CSVSink writing into dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir, Now: time.Now}
}

// Write implements Sink.
func (s *CSVSink) Write(_ context.Context, t Table) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", s.Dir, err)
	}

	p := filepath.Join(s.Dir, FileName(t.Name, now(s.Now)))
	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", p, err)
	}
	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", p, err)
	}

	slog.Debug("table written", slog.String("path", p), slog.Int("rows", t.Len()))
	return p, nil
}

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now()
	}
	return fn()
}

// =============================================================================
// Google Cloud Storage
// =============================================================================

// GCSSink uploads each table as a timestamped CSV object.
type GCSSink struct {
	storageClient *storage.Client

	// BucketName is the destination bucket.
	BucketName string

	// Prefix is prepended to object names. May be empty.
	Prefix string

	// Now returns the timestamp used in object names. Defaults to time.Now.
	Now func() time.Time
}

// NewGCSSink creates a GCS client for bucket.
//
// credentialsFile may be empty to use application default credentials;
// otherwise it must exist.
func NewGCSSink(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSSink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", credentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSSink{
		storageClient: client,
		BucketName:    bucket,
		Prefix:        strings.Trim(prefix, "/"),
		Now:           time.Now,
	}, nil
}

// ObjectName returns the object path for a table written at ts.
func (s *GCSSink) ObjectName(name string, ts time.Time) string {
	return path.Join(s.Prefix, FileName(name, ts))
}

// Write implements Sink.
func (s *GCSSink) Write(ctx context.Context, t Table) (string, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return "", err
	}

	objectName := s.ObjectName(t.Name, now(s.Now))
	writer := s.storageClient.Bucket(s.BucketName).Object(objectName).NewWriter(ctx)
	writer.ContentType = "text/csv"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := writer.Write(buf.Bytes()); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write GCS object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", objectName, err)
	}

	location := "gs://" + s.BucketName + "/" + objectName
	slog.Debug("table uploaded", slog.String("location", location), slog.Int("rows", t.Len()))
	return location, nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	return s.storageClient.Close()
}

// =============================================================================
// Composition
// =============================================================================

// MultiSink writes every table to each sink in order.
type MultiSink []Sink

// Write implements Sink. It returns the locations joined by ", ". The first
// failing sink stops the fan-out; later sinks are not written.
func (m MultiSink) Write(ctx context.Context, t Table) (string, error) {
	locations := make([]string, 0, len(m))
	for _, s := range m {
		loc, err := s.Write(ctx, t)
		if err != nil {
			return strings.Join(locations, ", "), err
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ", "), nil
}

// MemorySink keeps tables in memory.
//
// Thread Safety: safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	tables []Table
}

// Write implements Sink.
func (m *MemorySink) Write(_ context.Context, t Table) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = append(m.tables, t)
	return "memory://" + t.Name, nil
}

// Tables returns the tables written so far, in write order.
func (m *MemorySink) Tables() []Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Table, len(m.tables))
	copy(out, m.tables)
	return out
}

// Table returns the most recent table with the given name.
func (m *MemorySink) Table(name string) (Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.tables) - 1; i >= 0; i-- {
		if m.tables[i].Name == name {
			return m.tables[i], true
		}
	}
	return Table{}, false
}
