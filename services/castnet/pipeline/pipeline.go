// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline runs the castnet batch stages: flattening the dataset
// into tables, the co-occurrence centrality analysis, and genre
// similarity.
//
// # Stages
//
// Each stage loads the dataset from its Source, computes its tables and
// hands them to its Sink. A dataset that cannot be loaded, or holds no
// records, is not an error: the stage reports StatusNoInput and writes
// nothing. Sink failures are returned as errors.
//
// # Observability
//
// Stage runs are counted in Prometheus and traced with OpenTelemetry. When
// a Pushgateway URL is configured the default registry is pushed after
// each run, grouped by run id.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/castnet/pkg/logging"
	"github.com/AleutianAI/castnet/services/castnet/config"
	"github.com/AleutianAI/castnet/services/castnet/etl"
	"github.com/AleutianAI/castnet/services/castnet/export"
	"github.com/AleutianAI/castnet/services/castnet/graph"
	"github.com/AleutianAI/castnet/services/castnet/movies"
	"github.com/AleutianAI/castnet/services/castnet/similarity"
	"github.com/AleutianAI/castnet/services/castnet/telemetry"
)

var tracer = otel.Tracer("castnet.pipeline")

var (
	// ErrNoInput is returned by Analyze when there are no records to analyse.
	ErrNoInput = errors.New("no input records")

	// ErrNoSource is returned when a Pipeline has no Source.
	ErrNoSource = errors.New("pipeline has no source")

	// ErrNoSink is returned when a stage must write but the Pipeline has no Sink.
	ErrNoSink = errors.New("pipeline has no sink")
)

// PushJob is the Pushgateway job name for batch runs.
const PushJob = "castnet"

// maxLoggedEdgeErrors bounds the per-pair warnings logged for one build.
const maxLoggedEdgeErrors = 20

// Pipeline runs the batch stages against one source and sink.
//
// Thread Safety:
//
//	A Pipeline may run stages concurrently if its Source and Sink allow it.
type Pipeline struct {
	Config *config.Config
	Source movies.Source
	Sink   export.Sink
	Logger *logging.Logger

	// RunID labels every report, log line and pushed metric of this
	// Pipeline. New assigns a random one.
	RunID string
}

// New creates a Pipeline with a fresh run id. Nil cfg and logger are
// replaced by defaults.
func New(cfg *config.Config, source movies.Source, sink export.Sink, logger *logging.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		Config: cfg,
		Source: source,
		Sink:   sink,
		Logger: logger,
		RunID:  uuid.NewString(),
	}
}

func (p *Pipeline) log() *logging.Logger {
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return logger.With("run_id", p.RunID)
}

// =============================================================================
// Stages
// =============================================================================

// RunETL flattens the dataset into the actor, network and genre tables.
func (p *Pipeline) RunETL(ctx context.Context) (*Report, error) {
	records, ok, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := p.runStage(ctx, StageETL, records, ok, p.etlStage)
	p.push(ctx)
	return report, err
}

// RunCentrality builds the co-occurrence graph, computes centrality and
// writes the centrality and edge tables.
//
// Description:
//
//	The centrality table covers the largest connected component; the edge
//	table covers the whole graph. The TopK actors by TopBy are logged and
//	returned in the report. Cancellation during the build or betweenness
//	computation is returned as an error and nothing is written.
func (p *Pipeline) RunCentrality(ctx context.Context) (*Report, error) {
	records, ok, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := p.runStage(ctx, StageCentrality, records, ok, p.centralityStage)
	p.push(ctx)
	return report, err
}

// RunSimilarity ranks actors by genre-profile distance to the configured
// query actor and writes the similarity table. An unknown query actor
// yields StatusQueryNotFound.
func (p *Pipeline) RunSimilarity(ctx context.Context) (*Report, error) {
	records, ok, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	report, err := p.runStage(ctx, StageSimilarity, records, ok, p.similarityStage)
	p.push(ctx)
	return report, err
}

// RunAll loads the dataset once and runs the ETL, centrality and
// similarity stages in that order, stopping at the first error.
//
// Outputs:
//
//	[]*Report - One report per stage that ran.
//	error - The first stage error.
func (p *Pipeline) RunAll(ctx context.Context) ([]*Report, error) {
	records, ok, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	defer p.push(ctx)

	stages := []struct {
		stage Stage
		run   stageFunc
	}{
		{StageETL, p.etlStage},
		{StageCentrality, p.centralityStage},
		{StageSimilarity, p.similarityStage},
	}

	reports := make([]*Report, 0, len(stages))
	for _, s := range stages {
		report, err := p.runStage(ctx, s.stage, records, ok, s.run)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// stageFunc fills report from records and writes its tables.
type stageFunc func(ctx context.Context, records []movies.Record, report *Report) error

// runStage wraps a stage with tracing, metrics and the no-input rule.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, records []movies.Record, ok bool, run stageFunc) (*Report, error) {
	ctx, span := tracer.Start(ctx, "pipeline."+string(stage),
		trace.WithAttributes(
			attribute.String("run_id", p.RunID),
			attribute.Int("records", len(records)),
		),
	)
	defer span.End()

	start := time.Now()
	report := &Report{
		RunID:     p.RunID,
		Stage:     stage,
		Records:   len(records),
		Locations: make([]string, 0),
	}

	var err error
	if !ok {
		report.Status = StatusNoInput
	} else {
		err = run(ctx, records, report)
	}

	elapsed := time.Since(start)
	report.DurationMilli = elapsed.Milliseconds()

	status := report.Status.String()
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log().Error("stage failed", "stage", stage, "error", err)
	} else {
		p.log().Info("stage finished",
			"stage", stage,
			"status", report.Status,
			"rows", report.Rows,
			"duration_ms", report.DurationMilli,
		)
	}
	span.SetAttributes(attribute.String("status", status), attribute.Int("rows", report.Rows))
	observeStage(stage, status, elapsed)

	return report, err
}

func (p *Pipeline) etlStage(ctx context.Context, records []movies.Record, report *Report) error {
	rows := etl.Flatten(records)
	return p.write(ctx, report,
		etl.ActorTable(rows),
		etl.NetworkTable(rows),
		etl.GenreTable(rows),
	)
}

func (p *Pipeline) centralityStage(ctx context.Context, records []movies.Record, report *Report) error {
	build, err := p.buildGraph(ctx, records)
	if err != nil {
		return err
	}
	g := build.Graph
	if build.Incomplete {
		report.Truncated = true
		p.log().Warn("graph truncated by capacity limits",
			"max_nodes", p.Config.Graph.MaxNodes,
			"max_edges", p.Config.Graph.MaxEdges,
			"errors", len(build.EdgeErrors),
		)
	}

	result := p.engine().Compute(ctx, g)
	if result.Cancelled {
		return fmt.Errorf("centrality cancelled: %w", context.Cause(ctx))
	}

	by, err := graph.ParseField(p.Config.Centrality.TopBy)
	if err != nil {
		by = graph.FieldDegreeCentrality
	}

	report.Nodes = g.NodeCount()
	report.Edges = g.EdgeCount()
	report.RetainedNodes = result.RetainedNodes
	report.Components = result.Components
	report.Pivots = result.Pivots
	report.Exact = result.Exact
	report.FullGraphFallback = result.FullGraphFallback
	report.TopBy = by
	report.Top = graph.TopK(result.Records, p.Config.Centrality.TopK, by)

	graphSize.WithLabelValues("nodes").Set(float64(report.Nodes))
	graphSize.WithLabelValues("edges").Set(float64(report.Edges))
	graphSize.WithLabelValues("retained_nodes").Set(float64(report.RetainedNodes))

	logger := p.log()
	for i, r := range report.Top {
		logger.Info("top actor",
			"rank", i+1,
			"actor_id", r.ActorID,
			"actor_name", r.ActorName,
			by.String(), r.Value(by),
		)
	}

	return p.write(ctx, report,
		export.CentralityTable(result.Records),
		export.EdgeTable(graph.ProjectEdges(g)),
	)
}

func (p *Pipeline) similarityStage(ctx context.Context, records []movies.Record, report *Report) error {
	cfg := p.Config.Similarity
	metric, err := similarity.ParseMetric(cfg.Metric)
	if err != nil {
		return err
	}
	report.Query = cfg.QueryActorID
	report.Metric = metric

	neighbors, err := similarity.NewMatrix(records).Nearest(cfg.QueryActorID, cfg.TopN, metric)
	if errors.Is(err, similarity.ErrActorNotFound) {
		report.Status = StatusQueryNotFound
		p.log().Warn("query actor not found", "actor_id", cfg.QueryActorID)
		return nil
	}
	if err != nil {
		return err
	}
	report.Neighbors = neighbors

	return p.write(ctx, report, export.SimilarityTable(neighbors, metric))
}

// =============================================================================
// Analysis
// =============================================================================

// Analysis is an in-memory snapshot of one dataset, served by the report API.
type Analysis struct {
	RunID   string
	Records int

	Build      *graph.BuildResult
	Centrality *graph.CentralityResult
	Similarity *similarity.Matrix

	CreatedAt time.Time
}

// Analyze loads the dataset and computes the graph, centrality and genre
// matrix without writing anything.
//
// Outputs:
//
//	*Analysis - The snapshot.
//	error - ErrNoInput when there are no records, or a cancellation error.
func (p *Pipeline) Analyze(ctx context.Context) (*Analysis, error) {
	records, ok, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoInput
	}

	build, err := p.buildGraph(ctx, records)
	if err != nil {
		return nil, err
	}
	result := p.engine().Compute(ctx, build.Graph)
	if result.Cancelled {
		return nil, fmt.Errorf("centrality cancelled: %w", context.Cause(ctx))
	}

	p.log().Info("analysis ready",
		"records", len(records),
		"nodes", build.Graph.NodeCount(),
		"edges", build.Graph.EdgeCount(),
		"retained_nodes", result.RetainedNodes,
	)
	return &Analysis{
		RunID:      p.RunID,
		Records:    len(records),
		Build:      build,
		Centrality: result,
		Similarity: similarity.NewMatrix(records),
		CreatedAt:  time.Now(),
	}, nil
}

// =============================================================================
// Helpers
// =============================================================================

// load fetches the records. ok is false when there is nothing to analyse.
func (p *Pipeline) load(ctx context.Context) (records []movies.Record, ok bool, err error) {
	if p.Source == nil {
		return nil, false, ErrNoSource
	}
	records, err = p.Source.Load(ctx)
	if err != nil {
		p.log().Warn("dataset unavailable", "error", err)
		return nil, false, nil
	}
	if len(records) == 0 {
		p.log().Warn("dataset is empty")
		return records, false, nil
	}
	return records, true, nil
}

func (p *Pipeline) buildGraph(ctx context.Context, records []movies.Record) (*graph.BuildResult, error) {
	cfg := p.Config.Graph
	opts := []graph.BuilderOption{
		graph.WithBuilderMaxNodes(cfg.MaxNodes),
		graph.WithBuilderMaxEdges(cfg.MaxEdges),
	}
	if cfg.Workers > 0 {
		opts = append(opts, graph.WithWorkerCount(cfg.Workers))
	}

	build, err := graph.NewBuilder(opts...).Build(ctx, records)
	if err != nil {
		return nil, err
	}
	if build.Incomplete && ctx.Err() != nil {
		return nil, fmt.Errorf("graph build cancelled: %w", context.Cause(ctx))
	}
	p.logEdgeErrors(build.EdgeErrors)
	return build, nil
}

// logEdgeErrors logs a count and the first maxLoggedEdgeErrors entries.
func (p *Pipeline) logEdgeErrors(errs []graph.EdgeError) {
	if len(errs) == 0 {
		return
	}
	logger := p.log()
	for _, e := range errs[:min(len(errs), maxLoggedEdgeErrors)] {
		logger.Warn("pair skipped", "error", e)
	}
	logger.Warn("pairs skipped during build",
		"errors", len(errs),
		"logged", min(len(errs), maxLoggedEdgeErrors),
	)
}

func (p *Pipeline) engine() *graph.CentralityEngine {
	cfg := p.Config.Centrality
	opts := []graph.CentralityOption{
		graph.WithSampleSize(cfg.SampleSize),
		graph.WithSeed(cfg.Seed),
	}
	if cfg.Workers > 0 {
		opts = append(opts, graph.WithWorkers(cfg.Workers))
	}
	return graph.NewCentralityEngine(opts...)
}

// write hands each table to the sink in order, stopping at the first failure.
func (p *Pipeline) write(ctx context.Context, report *Report, tables ...export.Table) error {
	if p.Sink == nil {
		return ErrNoSink
	}
	for _, t := range tables {
		loc, err := p.Sink.Write(ctx, t)
		if err != nil {
			return fmt.Errorf("writing %s: %w", t.Name, err)
		}
		report.Locations = append(report.Locations, loc)
		report.Rows += t.Len()
		rowsWritten.WithLabelValues(t.Name).Add(float64(t.Len()))
		p.log().Info("table written", "table", t.Name, "rows", t.Len(), "location", loc)
	}
	return nil
}

// push sends run metrics to the Pushgateway, if one is configured.
// Failures are logged, never returned.
func (p *Pipeline) push(ctx context.Context) {
	url := p.Config.Telemetry.PushgatewayURL
	if url == "" {
		return
	}
	if err := telemetry.Push(context.WithoutCancel(ctx), url, PushJob, p.RunID, prometheus.DefaultGatherer); err != nil {
		p.log().Warn("metrics push failed", "error", err)
	}
}
