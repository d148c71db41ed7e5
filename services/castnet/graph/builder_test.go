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
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/castnet/services/castnet/movies"
)

// record builds a movie record from alternating actor id/name arguments.
func record(id string, idNames ...string) movies.Record {
	actors := make([]movies.Actor, 0, len(idNames)/2)
	for i := 0; i+1 < len(idNames); i += 2 {
		actors = append(actors, movies.Actor{ID: idNames[i], Name: idNames[i+1]})
	}
	return movies.Record{ID: id, Genres: []string{}, Actors: actors}
}

// randomRecords returns a reproducible synthetic dataset.
func randomRecords(seed uint64, count, actors, maxCast int) []movies.Record {
	rng := rand.New(rand.NewPCG(seed, seed^0x5eed))
	records := make([]movies.Record, count)
	for i := range records {
		cast := rng.IntN(maxCast + 1)
		rec := movies.Record{ID: fmt.Sprintf("tt%d", i), Genres: []string{}, Actors: make([]movies.Actor, 0, cast)}
		for j := 0; j < cast; j++ {
			id := rng.IntN(actors)
			rec.Actors = append(rec.Actors, movies.Actor{
				ID:   fmt.Sprintf("nm%d", id),
				Name: fmt.Sprintf("Actor %d (seen in %d)", id, i),
			})
		}
		records[i] = rec
	}
	return records
}

func buildGraph(t *testing.T, records []movies.Record, opts ...BuilderOption) *BuildResult {
	t.Helper()
	result, err := NewBuilder(opts...).Build(context.Background(), records)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	return result
}

func TestBuilder_ThreeActors(t *testing.T) {
	result := buildGraph(t, []movies.Record{
		record("tt1", "a", "Alice", "b", "Bob", "c", "Carol"),
	})
	g := result.Graph

	assert.True(t, g.IsFrozen())
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 3, g.EdgeCount())
	for _, e := range g.Edges() {
		assert.Equal(t, 1, e.Weight)
	}
	assert.Equal(t, 3, result.Stats.PairIncrements)
	assert.True(t, result.Success())
}

func TestBuilder_RepeatedPairAccumulates(t *testing.T) {
	result := buildGraph(t, []movies.Record{
		record("tt1", "a", "Alice", "b", "Bob"),
		record("tt2", "a", "Alice", "b", "Bob"),
	})
	g := result.Graph

	assert.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, g.Edges()[0].Weight)
	assert.Equal(t, 2, g.Weight("b", "a"))
}

func TestBuilder_PairIncrements(t *testing.T) {
	for n := 0; n <= 8; n++ {
		t.Run(fmt.Sprintf("cast of %d", n), func(t *testing.T) {
			idNames := make([]string, 0, 2*n)
			for i := 0; i < n; i++ {
				idNames = append(idNames, fmt.Sprintf("nm%d", i), "")
			}
			result := buildGraph(t, []movies.Record{record("tt1", idNames...)})

			want := n * (n - 1) / 2
			if result.Stats.PairIncrements != want {
				t.Errorf("PairIncrements = %d, want %d", result.Stats.PairIncrements, want)
			}
			assert.Equal(t, n, result.Graph.NodeCount())
			assert.Equal(t, want, result.Graph.EdgeCount())
		})
	}
}

func TestBuilder_DegenerateRecords(t *testing.T) {
	result := buildGraph(t, []movies.Record{
		{ID: "empty"},
		{ID: "malformed", ActorsMalformed: true},
		record("solo", "a", "Alice"),
		record("dup", "b", "Bob", "b", "Bobby", "c", "Carol"),
	})
	g := result.Graph

	assert.Equal(t, 4, result.Stats.RecordsProcessed)
	assert.Equal(t, 2, result.Stats.RecordsWithoutActors)
	assert.Equal(t, 1, result.Stats.MalformedActorLists)
	assert.Equal(t, 1, result.Stats.SelfPairsSkipped)
	assert.Empty(t, result.EdgeErrors)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, g.Weight("b", "c"), "each position of the duplicate pairs with c")

	node, ok := g.GetNode("b")
	require.True(t, ok)
	assert.Equal(t, "Bob", node.Name)
}

func TestBuilder_HandshakeLemma(t *testing.T) {
	result := buildGraph(t, randomRecords(7, 400, 120, 6))
	g := result.Graph

	sum := 0
	for id := range g.Nodes() {
		sum += g.Degree(id)
	}
	assert.Equal(t, 2*g.EdgeCount(), sum)
	assert.NoError(t, g.Validate())
}

func TestBuilder_ParallelMatchesSequential(t *testing.T) {
	records := randomRecords(42, 3000, 500, 8)

	seq := buildGraph(t, records, WithWorkerCount(1))
	for _, workers := range []int{2, 3, 8} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			par := buildGraph(t, records, WithWorkerCount(workers), WithParallelMinRecords(1))

			assert.Equal(t, workers, par.Stats.Workers)
			assert.Equal(t, 1, seq.Stats.Workers)
			assert.False(t, par.Incomplete)

			require.Equal(t, seq.Graph.NodeCount(), par.Graph.NodeCount())
			for i, n := range seq.Graph.nodes {
				p := par.Graph.nodes[i]
				if n.ID != p.ID || n.Name != p.Name {
					t.Fatalf("node %d = %s/%q, want %s/%q", i, p.ID, p.Name, n.ID, n.Name)
				}
			}

			require.Equal(t, seq.Graph.EdgeCount(), par.Graph.EdgeCount())
			for i, e := range seq.Graph.Edges() {
				assert.Equal(t, *e, *par.Graph.Edges()[i], "edge %d", i)
			}

			assert.Equal(t, seq.Stats.PairIncrements, par.Stats.PairIncrements)
			assert.Equal(t, seq.Stats.SelfPairsSkipped, par.Stats.SelfPairsSkipped)
			assert.Equal(t, seq.Stats.RecordsProcessed, par.Stats.RecordsProcessed)
			assert.Equal(t, seq.Stats.RecordsWithoutActors, par.Stats.RecordsWithoutActors)
			assert.Equal(t, ProjectEdges(seq.Graph), ProjectEdges(par.Graph))
		})
	}
}

func TestBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		result, err := NewBuilder(WithWorkerCount(workers), WithParallelMinRecords(1)).
			Build(ctx, randomRecords(1, 100, 20, 4))
		require.NoError(t, err)
		assert.True(t, result.Incomplete)
		assert.True(t, result.Graph.IsFrozen())
		assert.False(t, result.Success())
	}
}

func TestBuilder_CapacityErrors(t *testing.T) {
	result := buildGraph(t, []movies.Record{
		record("tt1", "a", "Alice", "b", "Bob", "c", "Carol"),
	}, WithBuilderMaxNodes(2))

	assert.Equal(t, 2, result.Graph.NodeCount())
	assert.Equal(t, 1, result.Graph.EdgeCount())
	require.NotEmpty(t, result.EdgeErrors)
	assert.ErrorIs(t, result.EdgeErrors[0], ErrMaxNodesExceeded)
	assert.Equal(t, "tt1", result.EdgeErrors[0].MovieID)
	assert.True(t, result.HasErrors())
	assert.True(t, result.Incomplete, "a capacity limit truncates the graph")
	assert.False(t, result.Success())
}

func TestBuilder_CapacityMarksIncomplete(t *testing.T) {
	records := []movies.Record{
		record("tt1", "a", "Alice", "b", "Bob", "c", "Carol"),
		record("tt2", "d", "Dan", "e", "Eve"),
	}

	tests := []struct {
		name      string
		opts      []BuilderOption
		wantNodes int
		wantEdges int
		wantErr   error
	}{
		{
			name:      "max nodes sequential",
			opts:      []BuilderOption{WithBuilderMaxNodes(2), WithWorkerCount(1)},
			wantNodes: 2,
			wantEdges: 1,
			wantErr:   ErrMaxNodesExceeded,
		},
		{
			name:      "max nodes parallel",
			opts:      []BuilderOption{WithBuilderMaxNodes(2), WithWorkerCount(2), WithParallelMinRecords(1)},
			wantNodes: 2,
			wantEdges: 1,
			wantErr:   ErrMaxNodesExceeded,
		},
		{
			name:      "max edges sequential",
			opts:      []BuilderOption{WithBuilderMaxEdges(2), WithWorkerCount(1)},
			wantNodes: 5,
			wantEdges: 2,
			wantErr:   ErrMaxEdgesExceeded,
		},
		{
			name:      "max edges parallel",
			opts:      []BuilderOption{WithBuilderMaxEdges(2), WithWorkerCount(2), WithParallelMinRecords(1)},
			wantNodes: 5,
			wantEdges: 2,
			wantErr:   ErrMaxEdgesExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := buildGraph(t, records, tt.opts...)

			assert.True(t, result.Incomplete)
			assert.Equal(t, tt.wantNodes, result.Graph.NodeCount())
			assert.Equal(t, tt.wantEdges, result.Graph.EdgeCount())
			require.NotEmpty(t, result.EdgeErrors)
			assert.ErrorIs(t, result.EdgeErrors[0], tt.wantErr)
		})
	}
}

func TestBuilder_NodeNotFoundAloneIsComplete(t *testing.T) {
	result := &BuildResult{}
	result.addError(EdgeError{LeftID: "a", RightID: "b", Err: ErrNodeNotFound})

	assert.True(t, result.HasErrors())
	assert.False(t, result.Incomplete)
}

func TestBuilder_Progress(t *testing.T) {
	var phases []ProgressPhase
	buildGraph(t, randomRecords(3, 2500, 50, 3),
		WithWorkerCount(1),
		WithProgressCallback(func(p BuildProgress) {
			phases = append(phases, p.Phase)
			assert.Equal(t, 2500, p.RecordsTotal)
		}),
	)

	require.NotEmpty(t, phases)
	assert.Equal(t, ProgressPhaseFolding, phases[0])
	assert.Equal(t, ProgressPhaseFinalizing, phases[len(phases)-1])
}
