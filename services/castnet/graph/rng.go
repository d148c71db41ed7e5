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

import "math/bits"

// splitMix64 is a small deterministic generator. The same seed yields the
// same stream on every platform and Go release.
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed int64) *splitMix64 {
	return &splitMix64{state: uint64(seed)}
}

func (r *splitMix64) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// bounded returns a uniform value in [0, n) using Lemire's
// multiply-shift method with rejection. n must be > 0.
func (r *splitMix64) bounded(n uint64) uint64 {
	hi, lo := bits.Mul64(r.next(), n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			hi, lo = bits.Mul64(r.next(), n)
		}
	}
	return hi
}

// samplePivots returns k distinct positions in [0, n).
//
// The result is the first k entries of a partial Fisher-Yates shuffle of
// 0..n-1. k <= 0 or k >= n returns every position in order.
func samplePivots(n, k int, seed int64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if k <= 0 || k >= n {
		return perm
	}

	rng := newSplitMix64(seed)
	for i := 0; i < k; i++ {
		j := i + int(rng.bounded(uint64(n-i)))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}
