// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/castnet/pkg/logging"
	"github.com/AleutianAI/castnet/services/castnet/config"
	"github.com/AleutianAI/castnet/services/castnet/export"
	"github.com/AleutianAI/castnet/services/castnet/movies"
	badgerstore "github.com/AleutianAI/castnet/services/castnet/storage/badger"
	"github.com/AleutianAI/castnet/services/castnet/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// openSource returns the dataset source described by cfg. When caching is
// enabled the raw payload is kept in a BadgerDB under cfg.Cache.Dir; the
// returned func closes it.
func openSource(cfg *config.Config, logger *logging.Logger) (movies.Source, func(), error) {
	fetcher, err := movies.NewFetcher(cfg.Source.URI, movies.FetchOptions{
		Timeout:            cfg.Source.Timeout,
		GCSCredentialsFile: cfg.Source.GCSCredentialsFile,
	})
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return movies.NewSource(fetcher), func() {}, nil
	}

	bcfg := badgerstore.DefaultConfig(cfg.Cache.Dir)
	bcfg.Logger = logger.Slog()
	db, err := badgerstore.Open(bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset cache: %w", err)
	}
	cached, err := movies.NewCachedFetcher(fetcher, movies.NewCache(db, cfg.Cache.TTL))
	if err != nil {
		_ = badgerstore.Close(db)
		return nil, nil, err
	}
	closeCache := func() {
		if err := badgerstore.Close(db); err != nil {
			logger.Warn("closing dataset cache", "error", err)
		}
	}
	return movies.NewSource(cached), closeCache, nil
}

// openSink returns a CSV sink for cfg.Output.Dir, fanned out to Cloud
// Storage when a bucket is configured.
func openSink(ctx context.Context, cfg *config.Config) (export.Sink, func(), error) {
	csvSink := export.NewCSVSink(cfg.Output.Dir)
	if cfg.Output.GCSBucket == "" {
		return csvSink, func() {}, nil
	}

	gcs, err := export.NewGCSSink(ctx, cfg.Output.GCSBucket, cfg.Output.GCSPrefix, cfg.Output.GCSCredentialsFile)
	if err != nil {
		return nil, nil, err
	}
	closeGCS := func() {
		if err := gcs.Close(); err != nil {
			slog.Warn("closing storage client", "error", err)
		}
	}
	return export.MultiSink{csvSink, gcs}, closeGCS, nil
}

// initTelemetry starts the OpenTelemetry providers configured in cfg. The
// returned func flushes them.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	tcfg := telemetry.DefaultConfig()
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tcfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	tcfg.Environment = cfg.Telemetry.Environment

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, err
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}, nil
}
