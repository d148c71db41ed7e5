// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package similarity ranks actors by the genres they appear in.
//
// Each actor is a vector of per-genre appearance counts. Two actors are
// similar when their vectors are close under cosine or Euclidean distance.
package similarity

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/AleutianAI/castnet/services/castnet/movies"
)

var (
	// ErrActorNotFound is returned when the query actor has no row.
	ErrActorNotFound = errors.New("actor not found in feature matrix")

	// ErrUnknownMetric is returned for an unrecognised metric name.
	ErrUnknownMetric = errors.New("unknown distance metric")
)

// Metric selects a distance function.
type Metric int

const (
	// MetricCosine is 1 - cos(angle). Zero vectors are at distance 1.
	MetricCosine Metric = iota

	// MetricEuclidean is the L2 distance.
	MetricEuclidean
)

// String returns the metric name.
func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricEuclidean:
		return "euclidean"
	default:
		return "unknown"
	}
}

// ParseMetric maps a metric name to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine", "":
		return MetricCosine, nil
	case "euclidean", "l2":
		return MetricEuclidean, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// Matrix is the actor x genre appearance-count matrix.
//
// Rows follow first-seen actor order; columns are the genres in sorted
// order. A Matrix is immutable and safe for concurrent reads.
type Matrix struct {
	// Genres are the column labels, sorted.
	Genres []string

	ids   []string
	names []string
	index map[string]int
	rows  [][]float64
}

// NewMatrix counts, for every actor, how many times they appear in a movie
// of each genre.
//
// Records whose actor list was malformed contribute nothing. An actor
// listed twice in one movie counts twice. The first name seen for an id
// is kept.
func NewMatrix(records []movies.Record) *Matrix {
	m := &Matrix{index: make(map[string]int)}
	counts := make([]map[string]int, 0)
	genreSet := make(map[string]struct{})

	for i := range records {
		rec := &records[i]
		if rec.ActorsMalformed {
			continue
		}
		for _, actor := range rec.Actors {
			row, ok := m.index[actor.ID]
			if !ok {
				row = len(m.ids)
				m.index[actor.ID] = row
				m.ids = append(m.ids, actor.ID)
				m.names = append(m.names, actor.Name)
				counts = append(counts, make(map[string]int))
			}
			for _, g := range rec.Genres {
				counts[row][g]++
				genreSet[g] = struct{}{}
			}
		}
	}

	m.Genres = make([]string, 0, len(genreSet))
	for g := range genreSet {
		m.Genres = append(m.Genres, g)
	}
	slices.Sort(m.Genres)

	m.rows = make([][]float64, len(m.ids))
	for i, c := range counts {
		row := make([]float64, len(m.Genres))
		for j, g := range m.Genres {
			row[j] = float64(c[g])
		}
		m.rows[i] = row
	}
	return m
}

// Len returns the number of actors.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// Row returns the genre counts of an actor, aligned with Genres.
// Callers should NOT modify the returned slice.
func (m *Matrix) Row(id string) ([]float64, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	return m.rows[i], true
}

// Name returns the actor's name.
func (m *Matrix) Name(id string) (string, bool) {
	i, ok := m.index[id]
	if !ok {
		return "", false
	}
	return m.names[i], true
}

// Distance returns the distance between two equal-length vectors.
func Distance(a, b []float64, metric Metric) float64 {
	if metric == MetricEuclidean {
		return floats.Distance(a, b, 2)
	}

	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(na*nb)
	switch {
	case d < 0:
		return 0
	case d > 2:
		return 2
	default:
		return d
	}
}

// Neighbor is an actor ranked against a query actor.
type Neighbor struct {
	ActorID   string
	ActorName string
	Distance  float64
}

// Nearest returns the n actors closest to queryID, excluding queryID.
//
// Description:
//
//	Every other actor is scored with metric and sorted by ascending
//	distance. The sort is stable, so equal distances keep first-seen
//	actor order.
//
// Outputs:
//
//	[]Neighbor - At most n entries. n <= 0 yields an empty slice.
//	error - ErrActorNotFound if queryID has no row.
func (m *Matrix) Nearest(queryID string, n int, metric Metric) ([]Neighbor, error) {
	q, ok := m.index[queryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActorNotFound, queryID)
	}
	if n <= 0 {
		return make([]Neighbor, 0), nil
	}

	query := m.rows[q]
	ranked := make([]Neighbor, 0, len(m.ids)-1)
	for i, id := range m.ids {
		if i == q {
			continue
		}
		ranked = append(ranked, Neighbor{
			ActorID:   id,
			ActorName: m.names[i],
			Distance:  Distance(query, m.rows[i], metric),
		})
	}

	slices.SortStableFunc(ranked, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n], nil
}
