// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("castnet.graph")
	meter  = otel.Meter("castnet.graph")
)

// Metrics for build and centrality operations.
var (
	buildLatency      metric.Float64Histogram
	buildTotal        metric.Int64Counter
	graphNodes        metric.Int64Histogram
	graphEdges        metric.Int64Histogram
	centralityLatency metric.Float64Histogram
	pivotsProcessed   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"castnet_graph_build_duration_seconds",
			metric.WithDescription("Duration of co-occurrence graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"castnet_graph_build_total",
			metric.WithDescription("Total number of graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphNodes, err = meter.Int64Histogram(
			"castnet_graph_nodes",
			metric.WithDescription("Number of actors per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		graphEdges, err = meter.Int64Histogram(
			"castnet_graph_edges",
			metric.WithDescription("Number of co-occurrence edges per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		centralityLatency, err = meter.Float64Histogram(
			"castnet_centrality_duration_seconds",
			metric.WithDescription("Duration of centrality computations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pivotsProcessed, err = meter.Int64Counter(
			"castnet_betweenness_pivots_total",
			metric.WithDescription("Total number of betweenness pivots processed"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a build operation.
func recordBuildMetrics(ctx context.Context, duration time.Duration, nodeCount, edgeCount int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if success {
		graphNodes.Record(ctx, int64(nodeCount))
		graphEdges.Record(ctx, int64(edgeCount))
	}
}

// recordCentralityMetrics records metrics for a centrality computation.
func recordCentralityMetrics(ctx context.Context, duration time.Duration, result *CentralityResult) {
	if err := initMetrics(); err != nil {
		return
	}

	centralityLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.Bool("exact", result.Exact),
			attribute.Bool("fallback", result.FullGraphFallback),
		),
	)
	if !result.Cancelled {
		pivotsProcessed.Add(ctx, int64(result.Pivots))
	}
}

// startBuildSpan creates a span for a build operation.
func startBuildSpan(ctx context.Context, recordCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(
			attribute.Int("graph.record_count", recordCount),
		),
	)
}

// setBuildSpanResult sets the result attributes on a build span.
func setBuildSpanResult(span trace.Span, nodeCount, edgeCount int, incomplete bool) {
	span.SetAttributes(
		attribute.Int("graph.node_count", nodeCount),
		attribute.Int("graph.edge_count", edgeCount),
		attribute.Bool("graph.incomplete", incomplete),
	)
}

// startCentralitySpan creates a span for a centrality computation.
func startCentralitySpan(ctx context.Context, nodeCount, sampleSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "CentralityEngine.Compute",
		trace.WithAttributes(
			attribute.Int("graph.node_count", nodeCount),
			attribute.Int("centrality.sample_size", sampleSize),
		),
	)
}

// setCentralitySpanResult sets the result attributes on a centrality span.
func setCentralitySpanResult(span trace.Span, result *CentralityResult) {
	span.SetAttributes(
		attribute.Int("centrality.retained_nodes", result.RetainedNodes),
		attribute.Int("centrality.components", result.Components),
		attribute.Int("centrality.pivots", result.Pivots),
		attribute.Bool("centrality.fallback", result.FullGraphFallback),
		attribute.Bool("centrality.cancelled", result.Cancelled),
	)
}
