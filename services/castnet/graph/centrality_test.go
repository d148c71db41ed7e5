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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/castnet/services/castnet/movies"
)

// =============================================================================
// Test Helpers
// =============================================================================

// pathRecords returns records forming the path ids[0] - ids[1] - ... .
func pathRecords(ids ...string) []movies.Record {
	out := make([]movies.Record, 0, len(ids))
	for i := 0; i+1 < len(ids); i++ {
		out = append(out, record("p", ids[i], ids[i], ids[i+1], ids[i+1]))
	}
	return out
}

func byID(records []CentralityRecord) map[string]CentralityRecord {
	out := make(map[string]CentralityRecord, len(records))
	for _, r := range records {
		out[r.ActorID] = r
	}
	return out
}

func compute(t *testing.T, records []movies.Record, opts ...CentralityOption) *CentralityResult {
	t.Helper()
	g := buildGraph(t, records).Graph
	return NewCentralityEngine(opts...).Compute(context.Background(), g)
}

// =============================================================================
// Tests
// =============================================================================

func TestCentrality_EmptyGraph(t *testing.T) {
	engine := NewCentralityEngine()

	result := engine.Compute(context.Background(), NewGraph())
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)

	result = engine.Compute(context.Background(), nil)
	assert.Empty(t, result.Records)
}

func TestCentrality_SingleNode(t *testing.T) {
	result := compute(t, []movies.Record{record("tt1", "a", "Alice")})

	require.Len(t, result.Records, 1)
	assert.Equal(t, 0.0, result.Records[0].DegreeCentrality)
	assert.Equal(t, 0.0, result.Records[0].BetweennessCentrality)
	assert.Equal(t, 0, result.Records[0].Degree)
}

func TestCentrality_Triangle(t *testing.T) {
	result := compute(t, []movies.Record{
		record("tt1", "a", "Alice", "b", "Bob", "c", "Carol"),
	})

	require.Len(t, result.Records, 3)
	for _, r := range result.Records {
		assert.Equal(t, 1.0, r.DegreeCentrality, r.ActorID)
		assert.Equal(t, 0.0, r.BetweennessCentrality, r.ActorID)
		assert.Equal(t, 2, r.Degree, r.ActorID)
	}
	assert.Equal(t, "Alice", result.Records[0].ActorName)
	assert.True(t, result.Exact)
}

func TestCentrality_ExactBetweenness(t *testing.T) {
	tests := []struct {
		name    string
		records []movies.Record
		want    map[string]float64
	}{
		{
			name:    "path of three",
			records: pathRecords("a", "b", "c"),
			want:    map[string]float64{"a": 0, "b": 1, "c": 0},
		},
		{
			name:    "path of four",
			records: pathRecords("a", "b", "c", "d"),
			want:    map[string]float64{"a": 0, "b": 2.0 / 3.0, "c": 2.0 / 3.0, "d": 0},
		},
		{
			name: "star",
			records: []movies.Record{
				record("s1", "hub", "", "x", ""),
				record("s2", "hub", "", "y", ""),
				record("s3", "hub", "", "z", ""),
			},
			want: map[string]float64{"hub": 1, "x": 0, "y": 0, "z": 0},
		},
		{
			name: "two paths through a square",
			records: []movies.Record{
				record("q1", "a", "", "b", ""),
				record("q2", "b", "", "c", ""),
				record("q3", "c", "", "d", ""),
				record("q4", "d", "", "a", ""),
			},
			want: map[string]float64{"a": 1.0 / 6.0, "b": 1.0 / 6.0, "c": 1.0 / 6.0, "d": 1.0 / 6.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := compute(t, tt.records, WithSampleSize(0))
			got := byID(result.Records)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				if math.Abs(got[id].BetweennessCentrality-want) > 1e-12 {
					t.Errorf("betweenness(%s) = %v, want %v", id, got[id].BetweennessCentrality, want)
				}
			}
		})
	}
}

func TestCentrality_Disconnected(t *testing.T) {
	result := compute(t, []movies.Record{
		record("tt1", "c", "Carol", "d", "Dave"),
		record("tt2", "a", "Alice", "b", "Bob"),
	})

	require.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Components)
	assert.Equal(t, 4, result.TotalNodes)
	assert.Equal(t, 2, result.RetainedNodes)

	// Equal sizes: the component holding the smallest id wins.
	assert.Equal(t, "a", result.Records[0].ActorID)
	assert.Equal(t, "b", result.Records[1].ActorID)
	for _, r := range result.Records {
		assert.Equal(t, 1.0, r.DegreeCentrality)
	}
}

func TestCentrality_LargestComponentWins(t *testing.T) {
	records := append(pathRecords("x", "y", "z"), record("tt9", "a", "Alice", "b", "Bob"))
	result := compute(t, records)

	require.Len(t, result.Records, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{
		result.Records[0].ActorID, result.Records[1].ActorID, result.Records[2].ActorID,
	})
}

func TestCentrality_FallbackOnCorruptAdjacency(t *testing.T) {
	g := buildGraph(t, append(pathRecords("a", "b", "c"), record("solo", "d", "Dan"))).Graph
	g.adj[0] = append(g.adj[0], 0)

	result := NewCentralityEngine().Compute(context.Background(), g)

	assert.True(t, result.FullGraphFallback)
	assert.Equal(t, 0, result.Components)
	require.Len(t, result.Records, 4, "the whole graph is analysed")
	got := byID(result.Records)
	// b bridges one of the three pairs that exclude it in a 4-node graph.
	assert.InDelta(t, 1.0/3.0, got["b"].BetweennessCentrality, 1e-12)
	assert.Equal(t, 1, got["a"].Degree)
	assert.Equal(t, 0, got["d"].Degree)
}

func TestCentrality_Bounds(t *testing.T) {
	result := compute(t, randomRecords(11, 300, 150, 5), WithSampleSize(40))

	require.NotEmpty(t, result.Records)
	assert.Equal(t, 40, result.Pivots)
	assert.False(t, result.Exact)
	for _, r := range result.Records {
		assert.GreaterOrEqual(t, r.DegreeCentrality, 0.0)
		assert.LessOrEqual(t, r.DegreeCentrality, 1.0)
		assert.GreaterOrEqual(t, r.BetweennessCentrality, 0.0)
		assert.LessOrEqual(t, r.BetweennessCentrality, 1.0)
	}
}

func TestCentrality_SampleLargerThanGraphIsExact(t *testing.T) {
	records := pathRecords("a", "b", "c", "d", "e")
	sampled := compute(t, records, WithSampleSize(500))
	exact := compute(t, records, WithSampleSize(0))

	assert.True(t, sampled.Exact)
	assert.Equal(t, 5, sampled.Pivots)
	assert.Equal(t, exact.Records, sampled.Records)
}

func TestCentrality_Deterministic(t *testing.T) {
	g := buildGraph(t, randomRecords(5, 600, 250, 6)).Graph

	first := NewCentralityEngine(WithSampleSize(50), WithSeed(42), WithWorkers(1)).Compute(context.Background(), g)
	second := NewCentralityEngine(WithSampleSize(50), WithSeed(42), WithWorkers(1)).Compute(context.Background(), g)
	wide := NewCentralityEngine(WithSampleSize(50), WithSeed(42), WithWorkers(8)).Compute(context.Background(), g)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Records, wide.Records, "worker count must not change the result")

	other := NewCentralityEngine(WithSampleSize(50), WithSeed(7)).Compute(context.Background(), g)
	assert.Equal(t, len(first.Records), len(other.Records))
}

func TestCentrality_Cancelled(t *testing.T) {
	g := buildGraph(t, pathRecords("a", "b", "c")).Graph
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewCentralityEngine().Compute(ctx, g)

	assert.True(t, result.Cancelled)
	require.Len(t, result.Records, 3)
	for _, r := range result.Records {
		assert.Equal(t, 0.0, r.BetweennessCentrality)
	}
	assert.Equal(t, 1.0, byID(result.Records)["b"].DegreeCentrality)
}

// On a path every pivot's dependency on a node is the number of nodes
// beyond it on the far side, so sampled scores follow by hand from the
// pivots: sum the dependencies, then scale by n/k / ((n-1)(n-2)).
func TestCentrality_SampledPathValues(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}

	tests := []struct {
		name   string
		seed   int64
		k      int
		pivots []int
		want   []float64
	}{
		{
			// pivots f, b: raw [0 1 6 6 6 1 0], scale 7/2/30
			name:   "two pivots",
			seed:   42,
			k:      2,
			pivots: []int{5, 1},
			want:   []float64{0, 7.0 / 60, 7.0 / 10, 7.0 / 10, 7.0 / 10, 7.0 / 60, 0},
		},
		{
			// pivots c, b, g: raw [0 2 6 9 8 7 0], scale 7/3/30
			name:   "three pivots",
			seed:   7,
			k:      3,
			pivots: []int{2, 1, 6},
			want:   []float64{0, 7.0 / 45, 7.0 / 15, 7.0 / 10, 28.0 / 45, 49.0 / 90, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.pivots, samplePivots(len(ids), tt.k, tt.seed))

			for _, workers := range []int{1, 4} {
				result := compute(t, pathRecords(ids...),
					WithSampleSize(tt.k), WithSeed(tt.seed), WithWorkers(workers))

				require.Len(t, result.Records, len(ids))
				assert.False(t, result.Exact)
				assert.Equal(t, tt.k, result.Pivots)
				for i, r := range result.Records {
					assert.Equal(t, ids[i], r.ActorID)
					assert.InDelta(t, tt.want[i], r.BetweennessCentrality, 1e-12,
						"workers=%d actor=%s", workers, r.ActorID)
				}
			}
		})
	}
}

func TestBetweennessScale(t *testing.T) {
	tests := []struct {
		n, k int
		want float64
	}{
		{n: 1, k: 1, want: 0},
		{n: 2, k: 2, want: 0},
		{n: 3, k: 3, want: 0.5},
		{n: 4, k: 2, want: 2.0 / 6.0},
		{n: 10, k: 0, want: 0},
	}
	for _, tt := range tests {
		if got := betweennessScale(tt.n, tt.k); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("betweennessScale(%d, %d) = %v, want %v", tt.n, tt.k, got, tt.want)
		}
	}
}
