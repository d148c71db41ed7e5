// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export renders analysis results as row-oriented tables and
// writes them to sinks (local CSV files, Google Cloud Storage).
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AleutianAI/castnet/services/castnet/graph"
	"github.com/AleutianAI/castnet/services/castnet/similarity"
)

// Table names, used as file name stems.
const (
	CentralityTableName = "network_centrality"
	EdgeTableName       = "network_edges"
	SimilarityTableName = "similar_actors_genre"
)

// EdgeSeparator is the literal value of the separator column of the edge table.
const EdgeSeparator = "<->"

// ErrRaggedRow is returned when a row's width differs from the header's.
var ErrRaggedRow = errors.New("row width does not match header")

// Table is a named, row-oriented tabular artifact.
type Table struct {
	// Name is the file name stem, e.g. "network_centrality".
	Name string

	// Header holds the column names.
	Header []string

	// Rows holds the cells, one slice per row, each as wide as Header.
	Rows [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// WriteCSV writes the header and rows as CSV.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing header of %s: %w", t.Name, err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("%w: %s row %d has %d cells, want %d", ErrRaggedRow, t.Name, i, len(row), len(t.Header))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d of %s: %w", i, t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CentralityTable renders one row per centrality record.
func CentralityTable(records []graph.CentralityRecord) Table {
	t := Table{
		Name:   CentralityTableName,
		Header: []string{"actor_id", "actor_name", "degree_centrality", "betweenness_centrality", "degree"},
		Rows:   make([][]string, 0, len(records)),
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.ActorID,
			r.ActorName,
			formatFloat(r.DegreeCentrality),
			formatFloat(r.BetweennessCentrality),
			strconv.Itoa(r.Degree),
		})
	}
	return t
}

// EdgeTable renders one row per edge. The second column always holds
// EdgeSeparator.
func EdgeTable(edges []graph.EdgeRecord) Table {
	t := Table{
		Name:   EdgeTableName,
		Header: []string{"left_actor_name", EdgeSeparator, "right_actor_name", "weight"},
		Rows:   make([][]string, 0, len(edges)),
	}
	for _, e := range edges {
		t.Rows = append(t.Rows, []string{
			e.LeftActorName,
			EdgeSeparator,
			e.RightActorName,
			strconv.Itoa(e.Weight),
		})
	}
	return t
}

// SimilarityTable renders ranked neighbors; the distance column is named
// after the metric.
func SimilarityTable(neighbors []similarity.Neighbor, metric similarity.Metric) Table {
	t := Table{
		Name:   SimilarityTableName,
		Header: []string{"actor_id", "name", metric.String()},
		Rows:   make([][]string, 0, len(neighbors)),
	}
	for _, n := range neighbors {
		t.Rows = append(t.Rows, []string{n.ActorID, n.ActorName, formatFloat(n.Distance)})
	}
	return t
}
