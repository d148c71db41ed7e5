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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitMix64_ReferenceValue(t *testing.T) {
	rng := newSplitMix64(0)
	if got := rng.next(); got != 0xe220a8397b1dcdaf {
		t.Errorf("first output for seed 0 = %#x, want 0xe220a8397b1dcdaf", got)
	}
}

func TestSplitMix64_Bounded(t *testing.T) {
	rng := newSplitMix64(42)
	for _, n := range []uint64{1, 2, 3, 7, 1000, 1<<63 + 1} {
		for i := 0; i < 200; i++ {
			if v := rng.bounded(n); v >= n {
				t.Fatalf("bounded(%d) = %d, out of range", n, v)
			}
		}
	}
}

func TestSamplePivots(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, samplePivots(1000, 50, 42), samplePivots(1000, 50, 42))
		assert.NotEqual(t, samplePivots(1000, 50, 42), samplePivots(1000, 50, 43))
	})

	t.Run("distinct and in range", func(t *testing.T) {
		pivots := samplePivots(100, 60, 9)
		assert.Len(t, pivots, 60)
		seen := make(map[int]bool)
		for _, p := range pivots {
			assert.True(t, p >= 0 && p < 100)
			assert.False(t, seen[p], "duplicate pivot %d", p)
			seen[p] = true
		}
	})

	t.Run("k covers all", func(t *testing.T) {
		for _, k := range []int{0, -1, 5, 9} {
			assert.Equal(t, []int{0, 1, 2, 3, 4}, samplePivots(5, k, 1), "k=%d", k)
		}
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, samplePivots(0, 10, 1))
	})
}
