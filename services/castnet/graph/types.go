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
	"time"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of actors a graph can hold.
	DefaultMaxNodes = 5_000_000

	// DefaultMaxEdges is the default maximum number of actor pairs a graph can hold.
	DefaultMaxEdges = 100_000_000
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddWeight calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// Node is an actor in the co-occurrence graph.
type Node struct {
	// ID is the actor id. Unique within the graph.
	ID string

	// Name is the first name seen for this actor id.
	Name string

	// index is the insertion position, used by the algorithms.
	index int
}

// Edge is an undirected co-occurrence between two actors.
//
// LeftID is the actor listed first in the movie that created the edge.
// The orientation carries no meaning beyond display.
type Edge struct {
	// LeftID is the first endpoint.
	LeftID string

	// RightID is the second endpoint. Never equal to LeftID.
	RightID string

	// Weight is the number of movies both actors appear in. Always >= 1.
	Weight int
}

// pairKey is the unordered key of an edge: lo < hi by node index.
type pairKey struct {
	lo, hi int
}

func newPairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// GraphOptions configures Graph behavior and limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// Graph is the weighted undirected actor co-occurrence graph.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use during building. After Freeze()
//	it can be read from multiple goroutines.
type Graph struct {
	// nodes holds every node in insertion order.
	nodes []*Node

	// byID maps actor id to node.
	byID map[string]*Node

	// adj holds, per node index, neighbor indices in edge creation order.
	adj [][]int

	// edges holds every edge in creation order.
	edges []*Edge

	// edgeIndex maps an unordered index pair to its edge.
	edgeIndex map[pairKey]*Edge

	// state is the current lifecycle state.
	state GraphState

	// options contains configuration.
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze() was called.
	// Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewGraph creates a new empty graph in the Building state.
//
// Example:
//
//	g := NewGraph(WithMaxNodes(100_000))
//	g.AddNode("nm1", "Alice")
//	g.AddNode("nm2", "Bob")
//	g.AddWeight("nm1", "nm2", 1)
//	g.Freeze()
func NewGraph(opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		nodes:     make([]*Node, 0),
		byID:      make(map[string]*Node),
		adj:       make([][]int, 0),
		edges:     make([]*Edge, 0),
		edgeIndex: make(map[pairKey]*Edge),
		state:     GraphStateBuilding,
		options:   options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode. Irreversible.
func (g *Graph) Freeze() {
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode inserts an actor if its id is not yet present.
//
// Description:
//
//	The first name seen for an id wins: adding an existing id returns the
//	existing node unchanged with added == false.
//
// Outputs:
//
//	*Node - The new or existing node.
//	bool - True if the node was created by this call.
//	error - Non-nil if the graph is frozen, at capacity, or id is empty.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidNode - id is empty
//	ErrMaxNodesExceeded - Graph is at node capacity
func (g *Graph) AddNode(id, name string) (*Node, bool, error) {
	if g.state == GraphStateReadOnly {
		return nil, false, ErrGraphFrozen
	}
	if id == "" {
		return nil, false, fmt.Errorf("%w: empty actor id", ErrInvalidNode)
	}
	if existing, ok := g.byID[id]; ok {
		return existing, false, nil
	}
	if len(g.nodes) >= g.options.MaxNodes {
		return nil, false, ErrMaxNodesExceeded
	}

	node := &Node{ID: id, Name: name, index: len(g.nodes)}
	g.nodes = append(g.nodes, node)
	g.byID[id] = node
	g.adj = append(g.adj, nil)
	return node, true, nil
}

// GetNode retrieves a node by actor id.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, ok := g.byID[id]
	return node, ok
}

// AddWeight increments the co-occurrence weight between two actors.
//
// Description:
//
//	Creates the edge with the given weight when absent, otherwise adds
//	delta to the existing weight. Both nodes must already exist.
//
// Outputs:
//
//	*Edge - The created or updated edge.
//	bool - True if the edge was created by this call.
//	error - Non-nil on any of the errors below; the graph is unchanged.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrSelfLoop - leftID == rightID
//	ErrInvalidWeight - delta <= 0
//	ErrNodeNotFound - an endpoint does not exist
//	ErrMaxEdgesExceeded - a new edge would exceed capacity
func (g *Graph) AddWeight(leftID, rightID string, delta int) (*Edge, bool, error) {
	if g.state == GraphStateReadOnly {
		return nil, false, ErrGraphFrozen
	}
	if leftID == rightID {
		return nil, false, fmt.Errorf("%w: %s", ErrSelfLoop, leftID)
	}
	if delta <= 0 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidWeight, delta)
	}

	left, ok := g.byID[leftID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrNodeNotFound, leftID)
	}
	right, ok := g.byID[rightID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrNodeNotFound, rightID)
	}

	key := newPairKey(left.index, right.index)
	if edge, exists := g.edgeIndex[key]; exists {
		edge.Weight += delta
		return edge, false, nil
	}

	if len(g.edges) >= g.options.MaxEdges {
		return nil, false, ErrMaxEdgesExceeded
	}

	edge := &Edge{LeftID: leftID, RightID: rightID, Weight: delta}
	g.edges = append(g.edges, edge)
	g.edgeIndex[key] = edge
	g.adj[left.index] = append(g.adj[left.index], right.index)
	g.adj[right.index] = append(g.adj[right.index], left.index)
	return edge, true, nil
}

// Weight returns the co-occurrence weight between two actors, 0 if none.
func (g *Graph) Weight(a, b string) int {
	na, ok := g.byID[a]
	if !ok {
		return 0
	}
	nb, ok := g.byID[b]
	if !ok {
		return 0
	}
	if edge, ok := g.edgeIndex[newPairKey(na.index, nb.index)]; ok {
		return edge.Weight
	}
	return 0
}

// Degree returns the number of distinct co-stars of an actor.
// Unknown ids have degree 0.
func (g *Graph) Degree(id string) int {
	node, ok := g.byID[id]
	if !ok {
		return 0
	}
	return len(g.adj[node.index])
}

// Neighbors returns the co-star ids of an actor in edge creation order.
func (g *Graph) Neighbors(id string) []string {
	node, ok := g.byID[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[node.index]))
	for i, idx := range g.adj[node.index] {
		out[i] = g.nodes[idx].ID
	}
	return out
}

// Nodes returns an iterator over all nodes in insertion order.
//
// Example:
//
//	for id, node := range g.Nodes() {
//	    fmt.Printf("%s: %s\n", id, node.Name)
//	}
func (g *Graph) Nodes() func(yield func(string, *Node) bool) {
	return func(yield func(string, *Node) bool) {
		for _, node := range g.nodes {
			if !yield(node.ID, node) {
				return
			}
		}
	}
}

// Edges returns all edges in creation order.
//
// Callers should NOT modify the returned slice.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Validate checks that the adjacency lists agree with the edge list.
//
// Description:
//
//	Every adjacency entry must point at an existing node other than
//	itself, and the adjacency lists must hold exactly two entries per
//	edge. Component discovery relies on these invariants.
//
// Complexity: O(V + E).
func (g *Graph) Validate() error {
	if len(g.adj) != len(g.nodes) {
		return fmt.Errorf("%w: %d adjacency lists for %d nodes",
			ErrInconsistentAdjacency, len(g.adj), len(g.nodes))
	}

	entries := 0
	for i, neighbors := range g.adj {
		for _, j := range neighbors {
			if j < 0 || j >= len(g.nodes) || j == i {
				return fmt.Errorf("%w: node %d lists neighbor %d",
					ErrInconsistentAdjacency, i, j)
			}
		}
		entries += len(neighbors)
	}

	if entries != 2*len(g.edges) {
		return fmt.Errorf("%w: %d adjacency entries for %d edges",
			ErrInconsistentAdjacency, entries, len(g.edges))
	}
	return nil
}
