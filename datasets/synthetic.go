// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"math/rand/v2"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/graphs"
)

// Synthetic generates numSamples link prediction samples from random
// Erdos-Renyi graphs: half positive (an existing edge removed from the
// observed structure and offered as the candidate, label 1) and half
// negative (a non-adjacent pair, label 0). Node counts are uniform in
// [minNodes, maxNodes], each undirected edge appears with probability
// edgeProb (stored bidirectionally) and node features are standard normal
// of width featureDim.
//
// All randomness comes from rng; there is no package state.
func Synthetic(rng *rand.Rand, numSamples, minNodes, maxNodes, featureDim int, edgeProb float64) (records []*graphs.Graph, pairs [][2]int32) {
	if minNodes < 3 || maxNodes < minNodes {
		graphs.PanicShapef("Synthetic: need 3 <= minNodes <= maxNodes, got [%d, %d]", minNodes, maxNodes)
	}
	if edgeProb <= 0 || edgeProb > 1 {
		graphs.PanicNumericalf("Synthetic: edge probability %g outside (0, 1]", edgeProb)
	}
	records = make([]*graphs.Graph, 0, numSamples)
	pairs = make([][2]int32, 0, numSamples)
	for sample := 0; sample < numSamples; sample++ {
		positive := sample%2 == 0
		n := minNodes + rng.IntN(maxNodes-minNodes+1)
		edges := randomEdges(rng, n, edgeProb)
		for positive && len(edges) == 0 {
			edges = randomEdges(rng, n, edgeProb)
		}

		var pair [2]int32
		var label float32
		if positive {
			// Remove one undirected edge and predict it.
			pick := edges[rng.IntN(len(edges))]
			pair, label = pick, 1
			edges = removeEdge(edges, pick)
		} else {
			pair, label = nonAdjacentPair(rng, n, edges), 0
		}

		src := make([]int32, 0, 2*len(edges))
		tgt := make([]int32, 0, 2*len(edges))
		for _, e := range edges {
			src = append(src, e[0], e[1])
			tgt = append(tgt, e[1], e[0])
		}
		features := make([]float32, n*featureDim)
		for i := range features {
			features[i] = float32(rng.NormFloat64())
		}
		record := graphs.FromEdgeList(src, tgt, n).
			WithNodeFeatures(tensors.FromFlatDataAndDimensions(features, n, featureDim)).
			WithLabel(tensors.FromValue([]float32{label}))
		records = append(records, record)
		pairs = append(pairs, pair)
	}
	return
}

// randomEdges samples the undirected edge set of an Erdos-Renyi graph.
func randomEdges(rng *rand.Rand, n int, edgeProb float64) [][2]int32 {
	var edges [][2]int32
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < edgeProb {
				edges = append(edges, [2]int32{int32(i), int32(j)})
			}
		}
	}
	return edges
}

func removeEdge(edges [][2]int32, edge [2]int32) [][2]int32 {
	kept := edges[:0]
	for _, e := range edges {
		if e != edge {
			kept = append(kept, e)
		}
	}
	return kept
}

// nonAdjacentPair samples a node pair without an edge: rejection sampling
// first, then a scan over all pairs. Only a complete graph falls through to
// an adjacent pair, a mislabel too rare to matter for synthetic data.
func nonAdjacentPair(rng *rand.Rand, n int, edges [][2]int32) [2]int32 {
	adjacent := make(map[[2]int32]bool, len(edges))
	for _, e := range edges {
		adjacent[e] = true
	}
	for attempt := 0; attempt < 32; attempt++ {
		i := int32(rng.IntN(n))
		j := int32(rng.IntN(n))
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		if !adjacent[[2]int32{i, j}] {
			return [2]int32{i, j}
		}
	}
	for i := int32(0); i < int32(n); i++ {
		for j := i + 1; j < int32(n); j++ {
			if !adjacent[[2]int32{i, j}] {
				return [2]int32{i, j}
			}
		}
	}
	return [2]int32{0, 1}
}
