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

	"golang.org/x/sync/errgroup"
)

// pivotChunkSize is the number of pivots each betweenness task handles.
// Partial sums are merged per chunk in chunk order, so the result does not
// depend on the number of workers.
const pivotChunkSize = 16

// brandesScratch holds the per-worker buffers for single-source passes.
type brandesScratch struct {
	dist  []int32
	sigma []float64
	delta []float64
	order []int32
}

func newBrandesScratch(n int) *brandesScratch {
	return &brandesScratch{
		dist:  make([]int32, n),
		sigma: make([]float64, n),
		delta: make([]float64, n),
		order: make([]int32, 0, n),
	}
}

// accumulate runs one unweighted Brandes pass from src and adds each
// node's dependency to out.
//
// Shortest-path counts come from a BFS; dependencies are back-propagated
// in reverse BFS order, where the predecessors of w are its neighbors one
// level closer to src.
func (s *brandesScratch) accumulate(adj [][]int32, src int32, out []float64) {
	for i := range s.dist {
		s.dist[i] = -1
		s.sigma[i] = 0
		s.delta[i] = 0
	}

	s.dist[src] = 0
	s.sigma[src] = 1
	s.order = append(s.order[:0], src)
	for head := 0; head < len(s.order); head++ {
		v := s.order[head]
		next := s.dist[v] + 1
		for _, w := range adj[v] {
			if s.dist[w] < 0 {
				s.dist[w] = next
				s.order = append(s.order, w)
			}
			if s.dist[w] == next {
				s.sigma[w] += s.sigma[v]
			}
		}
	}

	for i := len(s.order) - 1; i >= 0; i-- {
		w := s.order[i]
		coeff := (1 + s.delta[w]) / s.sigma[w]
		prev := s.dist[w] - 1
		for _, v := range adj[w] {
			if s.dist[v] == prev {
				s.delta[v] += s.sigma[v] * coeff
			}
		}
		if w != src {
			out[w] += s.delta[w]
		}
	}
}

// rawBetweenness sums Brandes dependencies over the given pivots.
//
// Description:
//
//	Pivots are split into chunks of pivotChunkSize. Each chunk runs on the
//	errgroup (at most workers at a time) into its own partial vector; the
//	partials are then added in chunk order.
//
// Outputs:
//
//	[]float64 - Unscaled scores indexed like v.nodes.
//	error - The context error if cancelled.
func rawBetweenness(ctx context.Context, v *view, pivots []int, workers int) ([]float64, error) {
	n := len(v.nodes)
	total := make([]float64, n)
	if len(pivots) == 0 {
		return total, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunks := (len(pivots) + pivotChunkSize - 1) / pivotChunkSize
	partials := make([][]float64, chunks)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		start := c * pivotChunkSize
		end := min(start+pivotChunkSize, len(pivots))
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			scratch := newBrandesScratch(n)
			partial := make([]float64, n)
			for _, p := range pivots[start:end] {
				scratch.accumulate(v.adj, int32(p), partial)
			}
			partials[c] = partial
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return total, err
	}

	for _, partial := range partials {
		for i, x := range partial {
			total[i] += x
		}
	}
	return total, nil
}

// betweennessScale returns the factor applied to raw scores.
//
// Each unordered pair is counted from both ends, so raw scores are halved
// and divided by the (n-1)(n-2)/2 pairs not involving the node; sampled
// runs are extrapolated by n/k. n <= 2 has no intermediate nodes.
func betweennessScale(n, k int) float64 {
	if n <= 2 || k <= 0 {
		return 0
	}
	scale := 1 / (float64(n-1) * float64(n-2))
	if k < n {
		scale *= float64(n) / float64(k)
	}
	return scale
}

// clampUnit limits x to [0, 1].
func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
