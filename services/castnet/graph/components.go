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
)

// Component is a connected set of actors.
type Component struct {
	// Nodes holds the members in node insertion order.
	Nodes []*Node

	// MinID is the lexicographically smallest actor id in the component.
	MinID string
}

// Size returns the number of actors in the component.
func (c Component) Size() int {
	return len(c.Nodes)
}

// componentIndices finds connected components by BFS.
//
// Components are discovered in node insertion order (each new component
// starts at the first unvisited node) and their members are returned
// sorted by insertion index.
func (g *Graph) componentIndices() ([][]int, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("finding components: %w", err)
	}

	n := len(g.nodes)
	visited := make([]bool, n)
	queue := make([]int, 0, n)
	components := make([][]int, 0)

	for root := 0; root < n; root++ {
		if visited[root] {
			continue
		}
		visited[root] = true
		queue = append(queue[:0], root)
		for head := 0; head < len(queue); head++ {
			for _, w := range g.adj[queue[head]] {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
		members := slices.Clone(queue)
		slices.Sort(members)
		components = append(components, members)
	}

	return components, nil
}

// ConnectedComponents returns every connected component of the graph.
//
// Description:
//
//	Components are ordered by their first member in insertion order.
//	Isolated actors form singleton components.
//
// Outputs:
//
//	[]Component - The components.
//	error - Non-nil if the adjacency is inconsistent (ErrInconsistentAdjacency).
//
// Complexity: O(V + E).
func (g *Graph) ConnectedComponents() ([]Component, error) {
	indices, err := g.componentIndices()
	if err != nil {
		return nil, err
	}

	out := make([]Component, len(indices))
	for i, members := range indices {
		out[i] = g.component(members)
	}
	return out, nil
}

// LargestComponent returns the component with the most actors.
//
// Ties go to the component containing the lexicographically smallest
// actor id. An empty graph yields an empty component.
func (g *Graph) LargestComponent() (Component, error) {
	indices, err := g.componentIndices()
	if err != nil {
		return Component{}, err
	}
	best := g.largest(indices)
	if best < 0 {
		return Component{}, nil
	}
	return g.component(indices[best]), nil
}

// largest returns the position of the largest component, -1 if none.
func (g *Graph) largest(indices [][]int) int {
	best := -1
	bestMin := ""
	for i, members := range indices {
		minID := g.minID(members)
		if best < 0 {
			best, bestMin = i, minID
			continue
		}
		size := len(indices[best])
		if len(members) > size || (len(members) == size && minID < bestMin) {
			best, bestMin = i, minID
		}
	}
	return best
}

func (g *Graph) minID(members []int) string {
	minID := ""
	for i, idx := range members {
		if id := g.nodes[idx].ID; i == 0 || id < minID {
			minID = id
		}
	}
	return minID
}

func (g *Graph) component(members []int) Component {
	nodes := make([]*Node, len(members))
	for i, idx := range members {
		nodes[i] = g.nodes[idx]
	}
	return Component{Nodes: nodes, MinID: g.minID(members)}
}

// =============================================================================
// Views
// =============================================================================

// view is a compact, re-indexed subgraph used by the centrality algorithms.
type view struct {
	nodes []*Node
	adj   [][]int32
}

// fullView returns a view over every node.
func (g *Graph) fullView() *view {
	v := &view{
		nodes: g.nodes,
		adj:   make([][]int32, len(g.adj)),
	}
	for i, neighbors := range g.adj {
		local := make([]int32, 0, len(neighbors))
		for _, w := range neighbors {
			if w >= 0 && w < len(g.nodes) && w != i {
				local = append(local, int32(w))
			}
		}
		v.adj[i] = local
	}
	return v
}

// inducedView returns the subgraph induced by members, which must be
// sorted by insertion index.
func (g *Graph) inducedView(members []int) *view {
	local := make(map[int]int32, len(members))
	for i, idx := range members {
		local[idx] = int32(i)
	}

	v := &view{
		nodes: make([]*Node, len(members)),
		adj:   make([][]int32, len(members)),
	}
	for i, idx := range members {
		v.nodes[i] = g.nodes[idx]
		neighbors := make([]int32, 0, len(g.adj[idx]))
		for _, w := range g.adj[idx] {
			if lw, ok := local[w]; ok {
				neighbors = append(neighbors, lw)
			}
		}
		v.adj[i] = neighbors
	}
	return v
}
