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
	"fmt"
	"slices"
	"strings"
)

// EdgeRecord is one co-occurrence edge with display names.
type EdgeRecord struct {
	LeftActorName  string
	RightActorName string
	Weight         int
}

// ProjectEdges returns one record per edge of g in creation order.
//
// The projection covers the whole graph, not only the component used for
// centrality. Actors without a known name project as "".
func ProjectEdges(g *Graph) []EdgeRecord {
	if g == nil {
		return make([]EdgeRecord, 0)
	}

	out := make([]EdgeRecord, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		out = append(out, EdgeRecord{
			LeftActorName:  g.nameOf(e.LeftID),
			RightActorName: g.nameOf(e.RightID),
			Weight:         e.Weight,
		})
	}
	return out
}

func (g *Graph) nameOf(id string) string {
	if node, ok := g.byID[id]; ok {
		return node.Name
	}
	return ""
}

// Field selects the CentralityRecord value TopK sorts by.
type Field int

const (
	// FieldDegreeCentrality sorts by DegreeCentrality.
	FieldDegreeCentrality Field = iota

	// FieldBetweennessCentrality sorts by BetweennessCentrality.
	FieldBetweennessCentrality

	// FieldDegree sorts by Degree.
	FieldDegree
)

// String returns the column name of the field.
func (f Field) String() string {
	switch f {
	case FieldDegreeCentrality:
		return "degree_centrality"
	case FieldBetweennessCentrality:
		return "betweenness_centrality"
	case FieldDegree:
		return "degree"
	default:
		return "unknown"
	}
}

// ParseField maps a column name (or a short alias) to a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "degree_centrality", "dc":
		return FieldDegreeCentrality, nil
	case "betweenness_centrality", "betweenness", "bc":
		return FieldBetweennessCentrality, nil
	case "degree":
		return FieldDegree, nil
	default:
		return 0, fmt.Errorf("unknown centrality field %q", s)
	}
}

// Value returns the value of field f in r.
func (r CentralityRecord) Value(f Field) float64 {
	switch f {
	case FieldBetweennessCentrality:
		return r.BetweennessCentrality
	case FieldDegree:
		return float64(r.Degree)
	default:
		return r.DegreeCentrality
	}
}

// TopK returns the k records with the highest value of by.
//
// The sort is stable and descending, so ties keep their input order.
// k <= 0 returns an empty slice; k larger than the input returns all
// records. The input is not modified.
func TopK(records []CentralityRecord, k int, by Field) []CentralityRecord {
	if k <= 0 {
		return make([]CentralityRecord, 0)
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b CentralityRecord) int {
		va, vb := a.Value(by), b.Value(by)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		default:
			return 0
		}
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
