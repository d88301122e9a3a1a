// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// ShortestPathDistances runs a BFS from each source node and returns the
// distance of every node to every source, as a [NumNodes, len(sources)]
// Float32 tensor usable as a structural node feature. Distances are capped
// at maxDist; unreachable nodes keep distance 0.
//
// Out-of-range sources or a non-positive maxDist throw an ErrShape panic.
func ShortestPathDistances(g *Graph, sources []int32, maxDist int) *tensors.Tensor {
	if maxDist <= 0 {
		PanicShapef("ShortestPathDistances: maxDist must be positive, got %d", maxDist)
	}
	for _, s := range sources {
		if s < 0 || int(s) >= g.NumNodes {
			PanicShapef("ShortestPathDistances: source %d out of range [0, %d)", s, g.NumNodes)
		}
	}

	// Adjacency list from the COO form, once for all sources.
	source, target := g.EdgeList()
	neighbors := make([][]int32, g.NumNodes)
	for e := range source {
		neighbors[source[e]] = append(neighbors[source[e]], target[e])
	}

	flat := make([]float32, g.NumNodes*len(sources))
	dist := make([]int, g.NumNodes)
	queue := make([]int32, 0, g.NumNodes)
	for col, s := range sources {
		for i := range dist {
			dist[i] = -1
		}
		dist[s] = 0
		queue = append(queue[:0], s)
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range neighbors[u] {
				if dist[v] >= 0 {
					continue
				}
				dist[v] = dist[u] + 1
				queue = append(queue, v)
			}
		}
		for node, d := range dist {
			if d < 0 {
				continue
			}
			if d > maxDist {
				d = maxDist
			}
			flat[node*len(sources)+col] = float32(d)
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, g.NumNodes, len(sources))
}
