// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/castnet/pkg/logging"
	"github.com/AleutianAI/castnet/services/castnet/config"
	"github.com/AleutianAI/castnet/services/castnet/etl"
	"github.com/AleutianAI/castnet/services/castnet/export"
	"github.com/AleutianAI/castnet/services/castnet/movies"
)

// =============================================================================
// Helpers
// =============================================================================

func movie(id string, genres []string, actorIDs ...string) movies.Record {
	actors := make([]movies.Actor, len(actorIDs))
	for i, a := range actorIDs {
		actors[i] = movies.Actor{ID: a, Name: "Name " + a}
	}
	return movies.Record{ID: id, Title: "Title " + id, Year: "2010", Rating: "7.1", Genres: genres, Actors: actors}
}

// dataset holds a triangle a-b-c (a-b twice) and a separate pair d-e.
func dataset() movies.StaticSource {
	return movies.StaticSource{
		movie("m1", []string{"Drama"}, "a", "b", "c"),
		movie("m2", []string{"Drama", "Comedy"}, "a", "b"),
		movie("m3", []string{"Horror"}, "d", "e"),
	}
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Writer: io.Discard})
}

func newTestPipeline(t *testing.T, source movies.Source) (*Pipeline, *export.MemorySink) {
	t.Helper()
	cfg := config.Default()
	cfg.Centrality.TopK = 2
	cfg.Similarity.QueryActorID = "a"
	cfg.Similarity.TopN = 3
	sink := &export.MemorySink{}
	return New(cfg, source, sink, quietLogger()), sink
}

type failingSource struct{}

func (failingSource) Load(context.Context) ([]movies.Record, error) {
	return nil, errors.New("connection refused")
}

type failingSink struct{}

func (failingSink) Write(context.Context, export.Table) (string, error) {
	return "", errors.New("disk full")
}

// =============================================================================
// Centrality
// =============================================================================

func TestRunCentrality_WritesTables(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())

	report, err := p.RunCentrality(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, p.RunID, report.RunID)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 5, report.Nodes)
	assert.Equal(t, 4, report.Edges)
	assert.Equal(t, 3, report.RetainedNodes)
	assert.Equal(t, 2, report.Components)
	assert.True(t, report.Exact)
	assert.Len(t, report.Locations, 2)

	centrality, ok := sink.Table(export.CentralityTableName)
	require.True(t, ok)
	assert.Equal(t, 3, centrality.Len(), "only the largest component is reported")
	assert.Equal(t, "a", centrality.Rows[0][0])

	edges, ok := sink.Table(export.EdgeTableName)
	require.True(t, ok)
	assert.Equal(t, 4, edges.Len(), "edges cover the whole graph")
	assert.Equal(t, []string{"Name a", export.EdgeSeparator, "Name b", "2"}, edges.Rows[0])
	assert.Equal(t, 7, report.Rows)
}

func TestRunCentrality_TopK(t *testing.T) {
	p, _ := newTestPipeline(t, dataset())

	report, err := p.RunCentrality(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Top, 2)
	assert.Equal(t, "a", report.Top[0].ActorID, "ties keep input order")
	assert.Equal(t, "b", report.Top[1].ActorID)
	assert.InDelta(t, 1.0, report.Top[0].DegreeCentrality, 1e-12)
}

func TestRunCentrality_TruncatedByCapacity(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())
	p.Config.Graph.MaxNodes = 2

	report, err := p.RunCentrality(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusOK, report.Status)
	assert.True(t, report.Truncated)
	assert.Equal(t, 2, report.Nodes)
	assert.Equal(t, 1, report.Edges)

	edges, ok := sink.Table(export.EdgeTableName)
	require.True(t, ok)
	assert.Equal(t, []string{"Name a", export.EdgeSeparator, "Name b", "2"}, edges.Rows[0])
}

func TestRunCentrality_NotTruncated(t *testing.T) {
	p, _ := newTestPipeline(t, dataset())

	report, err := p.RunCentrality(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Truncated)
}

func TestRunCentrality_EdgeErrorLogIsBounded(t *testing.T) {
	records := make(movies.StaticSource, 30)
	for i := range records {
		records[i] = movie(fmt.Sprintf("m%d", i), nil, fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i))
	}
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Graph.MaxNodes = 2
	p := New(cfg, records, &export.MemorySink{}, logging.New(logging.Config{Writer: &buf, JSON: true}))

	_, err := p.RunCentrality(context.Background())
	require.NoError(t, err)

	out := buf.String()
	// 29 records each drop two actors and their pair.
	assert.Equal(t, maxLoggedEdgeErrors, strings.Count(out, `"msg":"pair skipped"`))
	assert.Contains(t, out, `"msg":"pairs skipped during build"`)
	assert.Contains(t, out, `"errors":87`)
}

func TestRunCentrality_Cancelled(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunCentrality(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.Tables())
}

// =============================================================================
// No Input and Failures
// =============================================================================

func TestRun_NoInput(t *testing.T) {
	sources := map[string]movies.Source{
		"empty":   movies.StaticSource(nil),
		"failing": failingSource{},
	}

	for name, source := range sources {
		t.Run(name, func(t *testing.T) {
			p, sink := newTestPipeline(t, source)

			for _, run := range []func(context.Context) (*Report, error){p.RunETL, p.RunCentrality, p.RunSimilarity} {
				report, err := run(context.Background())
				require.NoError(t, err)
				assert.Equal(t, StatusNoInput, report.Status)
				assert.False(t, report.Wrote())
			}
			assert.Empty(t, sink.Tables())
		})
	}
}

func TestRun_NoSource(t *testing.T) {
	p := New(nil, nil, &export.MemorySink{}, quietLogger())
	_, err := p.RunETL(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRun_SinkFailure(t *testing.T) {
	p := New(config.Default(), dataset(), failingSink{}, quietLogger())

	report, err := p.RunCentrality(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, report.Locations)
}

// =============================================================================
// ETL and Similarity
// =============================================================================

func TestRunETL(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())

	report, err := p.RunETL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Status)

	for _, name := range []string{etl.ActorTableName, etl.NetworkTableName, etl.GenreTableName} {
		table, ok := sink.Table(name)
		require.True(t, ok, name)
		assert.Equal(t, 7, table.Len(), name)
	}
	assert.Equal(t, 21, report.Rows)
}

func TestRunSimilarity(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())

	report, err := p.RunSimilarity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, "a", report.Query)
	require.Len(t, report.Neighbors, 3)
	assert.Equal(t, "b", report.Neighbors[0].ActorID)
	assert.InDelta(t, 0.0, report.Neighbors[0].Distance, 1e-12)

	table, ok := sink.Table(export.SimilarityTableName)
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())
}

func TestRunSimilarity_QueryNotFound(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())
	p.Config.Similarity.QueryActorID = "nm0000000"

	report, err := p.RunSimilarity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusQueryNotFound, report.Status)
	assert.Empty(t, sink.Tables())
}

func TestRunAll(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())

	reports, err := p.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, StageETL, reports[0].Stage)
	assert.Equal(t, StageCentrality, reports[1].Stage)
	assert.Equal(t, StageSimilarity, reports[2].Stage)
	assert.Len(t, sink.Tables(), 6)
}

func TestRunAll_StopsAtFirstError(t *testing.T) {
	p := New(config.Default(), dataset(), failingSink{}, quietLogger())

	reports, err := p.RunAll(context.Background())
	require.Error(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StageETL, reports[0].Stage)
}

// =============================================================================
// Analysis and Push
// =============================================================================

func TestAnalyze(t *testing.T) {
	p, sink := newTestPipeline(t, dataset())

	analysis, err := p.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, analysis.Records)
	assert.Equal(t, 5, analysis.Build.Graph.NodeCount())
	assert.Len(t, analysis.Centrality.Records, 3)
	assert.Equal(t, 5, analysis.Similarity.Len())
	assert.Empty(t, sink.Tables(), "Analyze writes nothing")

	p.Source = movies.StaticSource(nil)
	_, err = p.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestPush_AfterRun(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, _ := newTestPipeline(t, dataset())
	p.Config.Telemetry.PushgatewayURL = srv.URL

	_, err := p.RunETL(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "/metrics/job/castnet/run_id/"+p.RunID, paths[0])
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "no_input", StatusNoInput.String())
	assert.Equal(t, "query_not_found", StatusQueryNotFound.String())
	assert.Equal(t, "unknown", Status(9).String())
}
