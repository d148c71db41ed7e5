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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/castnet/services/castnet/movies"
)

// Default builder configuration values.
const (
	// DefaultParallelMinRecords is the smallest input for which the
	// partition-and-merge build is used. Smaller inputs fold sequentially.
	DefaultParallelMinRecords = 2048

	// progressInterval is how many records are folded between progress reports.
	progressInterval = 1000

	// cancelCheckInterval is how many records are folded between context checks.
	cancelCheckInterval = 256
)

// ProgressPhase indicates which phase of building is in progress.
type ProgressPhase int

const (
	// ProgressPhaseFolding indicates records are being folded into the graph
	// (or into per-worker deltas).
	ProgressPhaseFolding ProgressPhase = iota

	// ProgressPhaseMerging indicates worker deltas are being merged.
	ProgressPhaseMerging

	// ProgressPhaseFinalizing indicates the graph is being finalized.
	ProgressPhaseFinalizing
)

// String returns the string representation of the ProgressPhase.
func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseFolding:
		return "folding"
	case ProgressPhaseMerging:
		return "merging"
	case ProgressPhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// BuildProgress contains progress information during a build.
type BuildProgress struct {
	// Phase is the current build phase.
	Phase ProgressPhase

	// RecordsTotal is the total number of records to process.
	RecordsTotal int

	// RecordsProcessed is the number of records processed so far.
	RecordsProcessed int

	// NodesCreated is the number of nodes in the graph so far.
	NodesCreated int

	// EdgesCreated is the number of edges in the graph so far.
	EdgesCreated int
}

// ProgressFunc is a callback function for build progress updates.
type ProgressFunc func(progress BuildProgress)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// WorkerCount is the number of workers for the partition-and-merge build.
	// Values <= 0 mean runtime.NumCPU(). 1 forces the sequential fold.
	WorkerCount int

	// ParallelMinRecords is the input size at which workers are used.
	// Default: 2048
	ParallelMinRecords int

	// ProgressCallback is called periodically with build progress.
	// May be nil.
	ProgressCallback ProgressFunc

	// MaxNodes is the maximum number of nodes (passed to Graph).
	MaxNodes int

	// MaxEdges is the maximum number of edges (passed to Graph).
	MaxEdges int
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		WorkerCount:        runtime.NumCPU(),
		ParallelMinRecords: DefaultParallelMinRecords,
		MaxNodes:           DefaultMaxNodes,
		MaxEdges:           DefaultMaxEdges,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithWorkerCount sets the number of build workers.
func WithWorkerCount(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.WorkerCount = n
	}
}

// WithParallelMinRecords sets the input size at which workers are used.
func WithParallelMinRecords(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.ParallelMinRecords = n
	}
}

// WithProgressCallback sets the progress callback function.
func WithProgressCallback(fn ProgressFunc) BuilderOption {
	return func(o *BuilderOptions) {
		o.ProgressCallback = fn
	}
}

// WithBuilderMaxNodes sets the maximum node count.
func WithBuilderMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithBuilderMaxEdges sets the maximum edge count.
func WithBuilderMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// Builder folds movie records into a co-occurrence graph.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build call works on its own graph.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// Build constructs the co-occurrence graph from records.
//
// Description:
//
//	For each record, in input order, every listed actor becomes a node if
//	absent, and every pair of positions i < j holding distinct actor ids
//	adds 1 to the weight of that pair's edge. Pairs of positions holding
//	the same id are skipped and counted. Records with zero or one actor
//	add nodes only.
//
//	Large inputs are split into contiguous chunks folded concurrently into
//	private deltas, which are then merged serially in chunk order. Both
//	paths produce the same graph.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked periodically.
//	records - The decoded movie records.
//
// Outputs:
//
//	*BuildResult - The frozen graph, statistics and skipped errors.
//	error - Always nil; failures are reported in the result.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (b *Builder) Build(ctx context.Context, records []movies.Record) (*BuildResult, error) {
	ctx, span := startBuildSpan(ctx, len(records))
	defer span.End()

	start := time.Now()
	g := NewGraph(
		WithMaxNodes(b.options.MaxNodes),
		WithMaxEdges(b.options.MaxEdges),
	)
	result := &BuildResult{
		Graph:      g,
		EdgeErrors: make([]EdgeError, 0),
	}

	workers := b.workerCount(len(records))
	result.Stats.Workers = workers
	if workers > 1 {
		b.buildParallel(ctx, records, workers, result)
	} else {
		b.buildSequential(ctx, records, result)
	}

	result.Stats.NodesCreated = g.NodeCount()
	result.Stats.EdgesCreated = g.EdgeCount()
	g.Freeze()

	duration := time.Since(start)
	result.Stats.DurationMilli = duration.Milliseconds()
	result.Stats.DurationMicro = duration.Microseconds()

	b.reportProgress(result, ProgressPhaseFinalizing, len(records))

	setBuildSpanResult(span, g.NodeCount(), g.EdgeCount(), result.Incomplete)
	recordBuildMetrics(ctx, duration, g.NodeCount(), g.EdgeCount(), !result.Incomplete)

	slog.Debug("co-occurrence graph built",
		slog.Int("records", result.Stats.RecordsProcessed),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("workers", workers),
		slog.Int("self_pairs_skipped", result.Stats.SelfPairsSkipped),
		slog.Int("errors", len(result.EdgeErrors)),
		slog.Bool("incomplete", result.Incomplete),
	)

	return result, nil
}

// workerCount decides how many workers to use for n records.
func (b *Builder) workerCount(n int) int {
	workers := b.options.WorkerCount
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers <= 1 || n < b.options.ParallelMinRecords {
		return 1
	}
	if workers > n {
		workers = n
	}
	return workers
}

// =============================================================================
// Sequential fold
// =============================================================================

func (b *Builder) buildSequential(ctx context.Context, records []movies.Record, result *BuildResult) {
	for i := range records {
		if i%cancelCheckInterval == 0 {
			if ctx.Err() != nil {
				result.Incomplete = true
				return
			}
		}

		b.foldRecord(result.Graph, i, &records[i], result)

		if (i+1)%progressInterval == 0 {
			b.reportProgress(result, ProgressPhaseFolding, len(records))
		}
	}
}

// foldRecord adds one record's actors and pairs to the graph.
func (b *Builder) foldRecord(g *Graph, index int, rec *movies.Record, result *BuildResult) {
	stats := &result.Stats
	stats.RecordsProcessed++
	if rec.ActorsMalformed {
		stats.MalformedActorLists++
	}
	if len(rec.Actors) == 0 {
		stats.RecordsWithoutActors++
		return
	}

	for _, actor := range rec.Actors {
		if _, _, err := g.AddNode(actor.ID, actor.Name); err != nil {
			result.addError(EdgeError{
				RecordIndex: index,
				MovieID:     rec.ID,
				LeftID:      actor.ID,
				Err:         err,
			})
		}
	}

	for i := 0; i < len(rec.Actors); i++ {
		for j := i + 1; j < len(rec.Actors); j++ {
			left, right := rec.Actors[i].ID, rec.Actors[j].ID
			if left == right {
				stats.SelfPairsSkipped++
				continue
			}
			if _, _, err := g.AddWeight(left, right, 1); err != nil {
				result.addError(EdgeError{
					RecordIndex: index,
					MovieID:     rec.ID,
					LeftID:      left,
					RightID:     right,
					Err:         err,
				})
				continue
			}
			stats.PairIncrements++
		}
	}
}

// =============================================================================
// Partition-and-merge build
// =============================================================================

// deltaActor is an actor in first-seen order within a chunk.
type deltaActor struct {
	actor   movies.Actor
	record  int
	movieID string
}

// deltaPair is a pair in first-seen order within a chunk, oriented as
// first listed.
type deltaPair struct {
	left, right string
	record      int
	movieID     string
}

// chunkDelta is the private contribution of one contiguous chunk.
type chunkDelta struct {
	stats    BuildStats
	actors   []deltaActor
	seen     map[string]struct{}
	pairs    []deltaPair
	weights  map[[2]string]int
	complete bool
}

// unorderedKey returns the canonical key of an actor pair.
func unorderedKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// foldChunk folds records[offset:offset+len(chunk)] into a fresh delta.
func foldChunk(ctx context.Context, chunk []movies.Record, offset int) *chunkDelta {
	d := &chunkDelta{
		actors:  make([]deltaActor, 0),
		seen:    make(map[string]struct{}),
		pairs:   make([]deltaPair, 0),
		weights: make(map[[2]string]int),
	}

	for i := range chunk {
		if i%cancelCheckInterval == 0 && ctx.Err() != nil {
			return d
		}

		rec := &chunk[i]
		d.stats.RecordsProcessed++
		if rec.ActorsMalformed {
			d.stats.MalformedActorLists++
		}
		if len(rec.Actors) == 0 {
			d.stats.RecordsWithoutActors++
			continue
		}

		for _, actor := range rec.Actors {
			if _, ok := d.seen[actor.ID]; ok {
				continue
			}
			d.seen[actor.ID] = struct{}{}
			d.actors = append(d.actors, deltaActor{actor: actor, record: offset + i, movieID: rec.ID})
		}

		for p := 0; p < len(rec.Actors); p++ {
			for q := p + 1; q < len(rec.Actors); q++ {
				left, right := rec.Actors[p].ID, rec.Actors[q].ID
				if left == right {
					d.stats.SelfPairsSkipped++
					continue
				}
				key := unorderedKey(left, right)
				if _, ok := d.weights[key]; !ok {
					d.pairs = append(d.pairs, deltaPair{left: left, right: right, record: offset + i, movieID: rec.ID})
				}
				d.weights[key]++
			}
		}
	}

	d.complete = true
	return d
}

func (b *Builder) buildParallel(ctx context.Context, records []movies.Record, workers int, result *BuildResult) {
	chunkSize := (len(records) + workers - 1) / workers
	deltas := make([]*chunkDelta, 0, workers)
	for start := 0; start < len(records); start += chunkSize {
		deltas = append(deltas, nil)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for c := range deltas {
		start := c * chunkSize
		end := min(start+chunkSize, len(records))
		eg.Go(func() error {
			deltas[c] = foldChunk(egCtx, records[start:end], start)
			return nil
		})
	}
	_ = eg.Wait()

	b.reportProgress(result, ProgressPhaseMerging, len(records))

	// Merge serially in chunk order; stop at the first chunk cut short so
	// the graph reflects a prefix of the input.
	for _, d := range deltas {
		if d == nil || !d.complete {
			result.Incomplete = true
			return
		}
		mergeDelta(result.Graph, d, result)
	}

	if ctx.Err() != nil {
		result.Incomplete = true
	}
}

// mergeDelta applies one chunk's delta to the graph.
func mergeDelta(g *Graph, d *chunkDelta, result *BuildResult) {
	for _, a := range d.actors {
		if _, _, err := g.AddNode(a.actor.ID, a.actor.Name); err != nil {
			result.addError(EdgeError{
				RecordIndex: a.record,
				MovieID:     a.movieID,
				LeftID:      a.actor.ID,
				Err:         err,
			})
		}
	}

	for _, p := range d.pairs {
		w := d.weights[unorderedKey(p.left, p.right)]
		if _, _, err := g.AddWeight(p.left, p.right, w); err != nil {
			result.addError(EdgeError{
				RecordIndex: p.record,
				MovieID:     p.movieID,
				LeftID:      p.left,
				RightID:     p.right,
				Err:         err,
			})
			continue
		}
		result.Stats.PairIncrements += w
	}

	result.Stats.add(d.stats)
}

// reportProgress calls the progress callback if set.
func (b *Builder) reportProgress(result *BuildResult, phase ProgressPhase, total int) {
	if b.options.ProgressCallback == nil {
		return
	}
	processed := result.Stats.RecordsProcessed
	if phase == ProgressPhaseMerging {
		processed = total
	}
	b.options.ProgressCallback(BuildProgress{
		Phase:            phase,
		RecordsTotal:     total,
		RecordsProcessed: processed,
		NodesCreated:     result.Graph.NodeCount(),
		EdgesCreated:     result.Graph.EdgeCount(),
	})
}
