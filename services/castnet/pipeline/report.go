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
	"github.com/AleutianAI/castnet/services/castnet/graph"
	"github.com/AleutianAI/castnet/services/castnet/similarity"
)

// Stage names a pipeline step.
type Stage string

const (
	StageETL        Stage = "etl"
	StageCentrality Stage = "centrality"
	StageSimilarity Stage = "similarity"
)

// Status is the outcome of a stage that did not fail.
type Status int

const (
	// StatusOK means the stage ran and wrote its tables.
	StatusOK Status = iota

	// StatusNoInput means the dataset could not be loaded or was empty.
	// Nothing was written.
	StatusNoInput

	// StatusQueryNotFound means the similarity query actor has no
	// appearances in the dataset. Nothing was written.
	StatusQueryNotFound
)

// String returns the status label used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoInput:
		return "no_input"
	case StatusQueryNotFound:
		return "query_not_found"
	default:
		return "unknown"
	}
}

// Report summarises one stage run.
type Report struct {
	// RunID groups the reports of one invocation.
	RunID string

	Stage  Stage
	Status Status

	// Records is the number of movie records loaded.
	Records int

	// Rows is the total number of data rows written.
	Rows int

	// Graph facts, centrality stage only.
	Nodes             int
	Edges             int
	RetainedNodes     int
	Components        int
	Pivots            int
	Exact             bool
	FullGraphFallback bool

	// Truncated is set when capacity limits dropped actors or pairs.
	Truncated bool

	// Top holds the TopK centrality records by TopBy.
	Top   []graph.CentralityRecord
	TopBy graph.Field

	// Query and Neighbors are set by the similarity stage.
	Query     string
	Metric    similarity.Metric
	Neighbors []similarity.Neighbor

	// Locations lists where each table was written, in write order.
	Locations []string

	DurationMilli int64
}

// Wrote reports whether the stage produced output.
func (r *Report) Wrote() bool {
	return r != nil && len(r.Locations) > 0
}
