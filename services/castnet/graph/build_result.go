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
	"errors"
	"fmt"
)

// EdgeError represents a failure to add an actor or a co-occurrence
// while folding a record into the graph.
type EdgeError struct {
	// RecordIndex is the position of the record in the input.
	RecordIndex int

	// MovieID is the id of the record, possibly empty.
	MovieID string

	// LeftID is the first actor id.
	LeftID string

	// RightID is the second actor id. Empty when adding LeftID as a node failed.
	RightID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e EdgeError) Error() string {
	if e.RightID == "" {
		return fmt.Sprintf("record %d (%s) actor %s: %v", e.RecordIndex, e.MovieID, e.LeftID, e.Err)
	}
	return fmt.Sprintf("record %d (%s) pair %s <-> %s: %v", e.RecordIndex, e.MovieID, e.LeftID, e.RightID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e EdgeError) Unwrap() error {
	return e.Err
}

// BuildStats contains statistics about a build operation.
type BuildStats struct {
	// RecordsProcessed is the number of records folded into the graph.
	RecordsProcessed int

	// RecordsWithoutActors is the number of records with an empty actor list.
	RecordsWithoutActors int

	// MalformedActorLists is the number of records whose actors field was
	// present but not a list.
	MalformedActorLists int

	// NodesCreated is the number of actors added to the graph.
	NodesCreated int

	// EdgesCreated is the number of distinct actor pairs added to the graph.
	EdgesCreated int

	// PairIncrements is the total weight added across all edges.
	PairIncrements int

	// SelfPairsSkipped counts pairs of positions holding the same actor id.
	SelfPairsSkipped int

	// Workers is the number of workers used; 1 for the sequential fold.
	Workers int

	// DurationMilli is the total build time in milliseconds.
	// NOTE: For fast builds (< 1ms), this rounds to 0. Use DurationMicro for precision.
	DurationMilli int64

	// DurationMicro is the total build time in microseconds.
	DurationMicro int64
}

// add accumulates the per-record counters of other into s.
func (s *BuildStats) add(other BuildStats) {
	s.RecordsProcessed += other.RecordsProcessed
	s.RecordsWithoutActors += other.RecordsWithoutActors
	s.MalformedActorLists += other.MalformedActorLists
	s.SelfPairsSkipped += other.SelfPairsSkipped
}

// BuildResult contains the result of a graph build operation.
//
// Individual actor or pair failures do not fail the build. The graph is
// returned along with the errors that were skipped.
type BuildResult struct {
	// Graph is the constructed, frozen graph. May be partial if the build
	// was cancelled or a capacity limit was hit.
	Graph *Graph

	// EdgeErrors contains failures for actors or pairs that couldn't be added.
	EdgeErrors []EdgeError

	// Stats contains build statistics.
	Stats BuildStats

	// Incomplete is true if the build was cancelled via context or a
	// capacity limit dropped actors or pairs.
	Incomplete bool
}

// addError records a skipped actor or pair. Capacity errors mark the
// result incomplete.
func (r *BuildResult) addError(e EdgeError) {
	r.EdgeErrors = append(r.EdgeErrors, e)
	if errors.Is(e.Err, ErrMaxNodesExceeded) || errors.Is(e.Err, ErrMaxEdgesExceeded) {
		r.Incomplete = true
	}
}

// HasErrors returns true if any edge errors occurred.
func (r *BuildResult) HasErrors() bool {
	return len(r.EdgeErrors) > 0
}

// Success returns true if the build completed without errors and is complete.
func (r *BuildResult) Success() bool {
	return !r.Incomplete && !r.HasErrors()
}
