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
	"log/slog"
	"runtime"
	"time"
)

// =============================================================================
// Centrality Configuration
// =============================================================================

const (
	// DefaultSampleSize is the default number of betweenness pivots.
	DefaultSampleSize = 500

	// DefaultSeed is the default pivot sampling seed.
	DefaultSeed int64 = 42
)

// CentralityOptions configures the centrality engine.
type CentralityOptions struct {
	// SampleSize is the number of betweenness pivots. Values <= 0, or values
	// >= the retained node count, compute exact betweenness.
	// Default: 500
	SampleSize int

	// Seed drives pivot selection.
	// Default: 42
	Seed int64

	// Workers bounds the number of concurrent pivot chunks.
	// Default: runtime.NumCPU()
	Workers int
}

// DefaultCentralityOptions returns sensible defaults.
func DefaultCentralityOptions() CentralityOptions {
	return CentralityOptions{
		SampleSize: DefaultSampleSize,
		Seed:       DefaultSeed,
		Workers:    runtime.NumCPU(),
	}
}

// CentralityOption is a functional option for configuring the engine.
type CentralityOption func(*CentralityOptions)

// WithSampleSize sets the number of betweenness pivots.
func WithSampleSize(k int) CentralityOption {
	return func(o *CentralityOptions) {
		o.SampleSize = k
	}
}

// WithSeed sets the pivot sampling seed.
func WithSeed(seed int64) CentralityOption {
	return func(o *CentralityOptions) {
		o.Seed = seed
	}
}

// WithWorkers sets the number of concurrent pivot chunks.
func WithWorkers(n int) CentralityOption {
	return func(o *CentralityOptions) {
		o.Workers = n
	}
}

// =============================================================================
// Result Types
// =============================================================================

// CentralityRecord holds the centrality of one retained actor.
type CentralityRecord struct {
	ActorID   string
	ActorName string

	// DegreeCentrality is Degree / (n - 1), 0 when n == 1.
	DegreeCentrality float64

	// BetweennessCentrality is the normalised, possibly sampled, score in [0, 1].
	BetweennessCentrality float64

	// Degree is the number of distinct co-stars within the retained graph.
	Degree int
}

// CentralityResult is the output of CentralityEngine.Compute.
type CentralityResult struct {
	// Records has one entry per retained actor, in node insertion order.
	Records []CentralityRecord

	// TotalNodes is the node count of the input graph.
	TotalNodes int

	// RetainedNodes is the node count of the analysed subgraph.
	RetainedNodes int

	// Components is the number of connected components found. Zero when
	// discovery failed.
	Components int

	// FullGraphFallback is true when component discovery failed and the
	// whole graph was analysed instead.
	FullGraphFallback bool

	// Pivots is the number of betweenness sources used.
	Pivots int

	// Exact is true when every retained node was a pivot.
	Exact bool

	// Cancelled is true if the context ended before betweenness finished.
	// Betweenness scores are zero in that case.
	Cancelled bool

	// DurationMilli is the computation time in milliseconds.
	DurationMilli int64
}

// =============================================================================
// Engine
// =============================================================================

// CentralityEngine computes degree and betweenness centrality.
//
// Thread Safety:
//
//	Safe for concurrent use. The graph must be frozen or otherwise not
//	mutated during Compute.
type CentralityEngine struct {
	options CentralityOptions
}

// NewCentralityEngine creates an engine with the given options.
func NewCentralityEngine(opts ...CentralityOption) *CentralityEngine {
	options := DefaultCentralityOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &CentralityEngine{options: options}
}

// Options returns the engine configuration.
func (e *CentralityEngine) Options() CentralityOptions {
	return e.options
}

// Compute computes centrality for the graph's largest connected component.
//
// Description:
//
//	Restricts the graph to its largest connected component (ties go to the
//	component holding the smallest actor id), or to the whole graph if
//	components cannot be determined. Degree centrality is exact.
//	Betweenness is computed by Brandes' algorithm from min(SampleSize, n)
//	pivots drawn deterministically from Seed, extrapolated by n/k,
//	normalised for an undirected graph, and clamped to [0, 1].
//
// Inputs:
//
//	ctx - Context for cancellation.
//	g - The graph. Nil or empty graphs yield an empty result.
//
// Outputs:
//
//	*CentralityResult - Never nil.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (e *CentralityEngine) Compute(ctx context.Context, g *Graph) *CentralityResult {
	result := &CentralityResult{Records: make([]CentralityRecord, 0)}
	if g == nil || g.NodeCount() == 0 {
		return result
	}

	ctx, span := startCentralitySpan(ctx, g.NodeCount(), e.options.SampleSize)
	defer span.End()
	start := time.Now()

	result.TotalNodes = g.NodeCount()
	v := e.retainedView(g, result)
	n := len(v.nodes)
	result.RetainedNodes = n

	pivots := samplePivots(n, e.options.SampleSize, e.options.Seed)
	result.Pivots = len(pivots)
	result.Exact = len(pivots) == n

	raw, err := rawBetweenness(ctx, v, pivots, e.options.Workers)
	if err != nil {
		result.Cancelled = true
		raw = make([]float64, n)
	}
	scale := betweennessScale(n, len(pivots))

	result.Records = make([]CentralityRecord, n)
	for i, node := range v.nodes {
		degree := len(v.adj[i])
		dc := 0.0
		if n > 1 {
			dc = float64(degree) / float64(n-1)
		}
		result.Records[i] = CentralityRecord{
			ActorID:               node.ID,
			ActorName:             node.Name,
			DegreeCentrality:      dc,
			BetweennessCentrality: clampUnit(raw[i] * scale),
			Degree:                degree,
		}
	}

	duration := time.Since(start)
	result.DurationMilli = duration.Milliseconds()

	setCentralitySpanResult(span, result)
	recordCentralityMetrics(ctx, duration, result)

	slog.Debug("centrality computed",
		slog.Int("total_nodes", result.TotalNodes),
		slog.Int("retained_nodes", n),
		slog.Int("components", result.Components),
		slog.Int("pivots", result.Pivots),
		slog.Bool("exact", result.Exact),
		slog.Bool("cancelled", result.Cancelled),
	)

	return result
}

// retainedView selects the subgraph to analyse.
func (e *CentralityEngine) retainedView(g *Graph, result *CentralityResult) *view {
	indices, err := g.componentIndices()
	if err != nil {
		slog.Warn("component discovery failed, using full graph",
			slog.String("error", err.Error()),
			slog.Int("nodes", g.NodeCount()),
		)
		result.FullGraphFallback = true
		return g.fullView()
	}

	result.Components = len(indices)
	if len(indices) <= 1 {
		return g.fullView()
	}
	return g.inducedView(indices[g.largest(indices)])
}
