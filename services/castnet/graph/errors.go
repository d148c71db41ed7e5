// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds the actor co-occurrence graph and computes
// centrality over it.
//
// The graph is undirected and simple: nodes are actors keyed by actor id,
// and an edge between two actors carries the number of movies in which
// they appear together as its weight. Co-occurrence is accumulated as
// weight, never as parallel edges.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use during building. It is designed for:
//   - Single-writer access during build phase (AddNode, AddWeight calls)
//   - Read-only access after Freeze() is called
//
// After Freeze(), the graph can be safely read from multiple goroutines,
// which is what the betweenness workers rely on.
//
// # Lifecycle
//
//  1. Build with Builder.Build (or NewGraph + AddNode/AddWeight)
//  2. Freeze() to finalize
//  3. Analyze with CentralityEngine.Compute and ProjectEdges
//
// # Determinism
//
// Nodes enumerate in insertion order and edges in creation order. Every
// algorithm in this package iterates in those orders, so identical input
// always produces identical output.
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNodeNotFound is returned when an edge references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidNode is returned when adding a node with an empty ID.
	ErrInvalidNode = errors.New("invalid node")

	// ErrSelfLoop is returned when both endpoints of an edge are the same
	// actor. A co-occurrence graph has no self-loops.
	ErrSelfLoop = errors.New("self-loop not allowed")

	// ErrInvalidWeight is returned for a non-positive weight increment.
	ErrInvalidWeight = errors.New("weight increment must be positive")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrInconsistentAdjacency is returned by Validate when the adjacency
	// lists disagree with the edge list.
	ErrInconsistentAdjacency = errors.New("adjacency is inconsistent with edges")
)
