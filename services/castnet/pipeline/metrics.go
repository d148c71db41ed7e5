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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Pipeline Runs
// =============================================================================

var (
	// stageRuns counts stage runs.
	// Labels: stage, status (ok, no_input, query_not_found, error)
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castnet",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total pipeline stage runs by outcome",
	}, []string{"stage", "status"})

	// stageDuration measures wall time per stage, including output.
	// Labels: stage
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "castnet",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "Pipeline stage duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"stage"})

	// rowsWritten counts rows handed to the sink.
	// Labels: table
	rowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castnet",
		Subsystem: "pipeline",
		Name:      "rows_written_total",
		Help:      "Total table rows written by table name",
	}, []string{"table"})

	// graphSize holds the size of the most recently built graph.
	// Labels: kind (nodes, edges, retained_nodes)
	graphSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "castnet",
		Subsystem: "graph",
		Name:      "size",
		Help:      "Size of the most recently built co-occurrence graph",
	}, []string{"kind"})
)

func observeStage(stage Stage, status string, elapsed time.Duration) {
	stageRuns.WithLabelValues(string(stage), status).Inc()
	stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}
