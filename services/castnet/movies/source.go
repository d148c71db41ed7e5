// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package movies

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

var tracer = otel.Tracer("castnet.movies")

// DefaultFetchTimeout bounds a single HTTP or GCS fetch.
const DefaultFetchTimeout = 60 * time.Second

// Source yields the full set of movie records for one batch run.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// Fetcher retrieves the raw dataset payload.
type Fetcher interface {
	// Fetch returns the complete payload.
	Fetch(ctx context.Context) ([]byte, error)

	// URI identifies the payload; it is used as the cache key.
	URI() string
}

// FetchOptions configures NewFetcher.
type FetchOptions struct {
	// Timeout bounds a remote fetch. Zero means DefaultFetchTimeout.
	Timeout time.Duration

	// HTTPClient overrides the client used for http(s) URIs.
	HTTPClient *http.Client

	// GCSCredentialsFile is a service-account key for gs:// URIs.
	// Empty means Application Default Credentials.
	GCSCredentialsFile string
}

// NewFetcher picks a fetcher for the URI.
//
// Description:
//
//	Plain paths and file:// URIs are read from disk, http:// and https://
//	are fetched with net/http, and gs://bucket/object is read through the
//	Cloud Storage client.
//
// Errors:
//
//	ErrEmptyURI - uri is blank
//	ErrUnsupportedScheme - any other scheme
func NewFetcher(uri string, opts FetchOptions) (Fetcher, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, ErrEmptyURI
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" || len(parsed.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return &FileFetcher{Path: uri}, nil
	}

	switch parsed.Scheme {
	case "file":
		return &FileFetcher{Path: parsed.Path}, nil
	case "http", "https":
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: opts.Timeout}
		}
		return &HTTPFetcher{URL: uri, Client: client}, nil
	case "gs":
		return &GCSFetcher{
			Bucket:          parsed.Host,
			Object:          strings.TrimPrefix(parsed.Path, "/"),
			CredentialsFile: opts.GCSCredentialsFile,
			Timeout:         opts.Timeout,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, parsed.Scheme)
	}
}

// FileFetcher reads the dataset from the local filesystem.
type FileFetcher struct {
	Path string
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return data, nil
}

// URI implements Fetcher.
func (f *FileFetcher) URI() string { return "file://" + f.Path }

// HTTPFetcher downloads the dataset over HTTP(S). Redirects are followed.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", f.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetchFailed, f.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", f.URL, err)
	}
	return data, nil
}

// URI implements Fetcher.
func (f *HTTPFetcher) URI() string { return f.URL }

// GCSFetcher reads the dataset from a Cloud Storage object.
type GCSFetcher struct {
	Bucket          string
	Object          string
	CredentialsFile string
	Timeout         time.Duration
}

// Fetch implements Fetcher. A client is created and closed per call.
func (f *GCSFetcher) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	var clientOpts []option.ClientOption
	if f.CredentialsFile != "" {
		if _, err := os.Stat(f.CredentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not usable at %s: %w", f.CredentialsFile, err)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(f.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	reader, err := client.Bucket(f.Bucket).Object(f.Object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.URI(), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.URI(), err)
	}
	return data, nil
}

// URI implements Fetcher.
func (f *GCSFetcher) URI() string { return "gs://" + f.Bucket + "/" + f.Object }

// FetcherSource decodes whatever its Fetcher returns.
type FetcherSource struct {
	Fetcher Fetcher
}

// NewSource returns a Source over the given fetcher.
func NewSource(f Fetcher) *FetcherSource {
	return &FetcherSource{Fetcher: f}
}

// Load implements Source.
//
// Description:
//
//	Fetches the payload and decodes it with DecodeBytes. A fetch failure is
//	returned as an error; a payload with no decodable records is not an
//	error and yields an empty slice.
func (s *FetcherSource) Load(ctx context.Context) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "movies.Load",
		trace.WithAttributes(attribute.String("dataset.uri", s.Fetcher.URI())),
	)
	defer span.End()

	start := time.Now()
	data, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records, stats := DecodeBytes(data)
	span.SetAttributes(
		attribute.Int("dataset.bytes", len(data)),
		attribute.Int("dataset.records", stats.Decoded),
		attribute.Int("dataset.skipped", stats.Skipped),
		attribute.Bool("dataset.json_lines", stats.Lines),
	)

	slog.Debug("dataset loaded",
		slog.String("uri", s.Fetcher.URI()),
		slog.Int("bytes", len(data)),
		slog.Int("records", stats.Decoded),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}

// StaticSource serves an in-memory record slice.
type StaticSource []Record

// Load implements Source.
func (s StaticSource) Load(_ context.Context) ([]Record, error) {
	return []Record(s), nil
}
