// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphs holds an in-memory graph record for graph-structured
// learning, plus the batching policy that combines several records into one,
// the candidate-pair edge type used for link prediction and small
// graph-topology helpers.
//
// A Graph stores its adjacency either densely, as a [NumNodes, NumNodes]
// tensor, or sparsely as a COO edge list. Node features, edge features,
// positional encodings and labels are optional tensors attached to the
// record. Records are assembled on the CPU as tensors.Tensor values and fed
// to model graphs built with github.com/gomlx/gomlx.
//
// Errors are thrown as panics in the exceptions.Panicf style, wrapping the
// sentinels ErrShape and ErrNumerical, so they can be recovered with
// exceptions.TryCatch and matched with errors.Is.
package graphs

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
)

// Graph is one graph, or one batch of graphs (see Batch).
//
// The adjacency is stored dense (Adjacency != nil) or as a COO edge list
// (EdgeSource/EdgeTarget). Both forms can coexist; Dense and EdgeList
// convert lazily between them.
//
// For a dense batch (IsBatch true, BatchIDs nil) NumNodes is the per-graph
// node count and Adjacency is shaped [BatchSize, NumNodes, NumNodes]. For a
// sparse union batch NumNodes is the total node count across members and
// BatchIDs assigns each node to its member graph.
type Graph struct {
	// NumNodes is the number of nodes: per graph for a single record or a
	// dense batch, total across members for a sparse union batch.
	NumNodes int

	// Adjacency is the dense adjacency, [NumNodes, NumNodes] of Float32, or
	// [BatchSize, NumNodes, NumNodes] for a dense batch. Nil when the record
	// only carries an edge list.
	Adjacency *tensors.Tensor

	// EdgeSource and EdgeTarget are the COO edge list: edge e goes from
	// EdgeSource[e] to EdgeTarget[e]. Nil when the record is dense only.
	EdgeSource, EdgeTarget []int32

	// NodeFeatures is [NumNodes, F] (or [BatchSize, NumNodes, F] for a dense
	// batch) of Float32. Optional.
	NodeFeatures *tensors.Tensor

	// EdgeFeatures is [NumEdges, Fe] of Float32, aligned with the edge list.
	// Optional.
	EdgeFeatures *tensors.Tensor

	// PositionalEncoding is [NumNodes, K] of Float32, present only after
	// spectral encoding. Optional.
	PositionalEncoding *tensors.Tensor

	// Label is a graph-level or node-level target. Optional.
	Label *tensors.Tensor

	// IsBatch and BatchSize are set by Batch and UnionBatch.
	IsBatch   bool
	BatchSize int

	// BatchIDs maps each node of a sparse union batch to the index of its
	// member graph. Values are non-decreasing. Nil otherwise.
	BatchIDs []int32
}

// FromDense creates a Graph from a dense [N, N] Float32 adjacency.
// Non-square or non-Float32 adjacencies throw an ErrShape panic.
func FromDense(adjacency *tensors.Tensor) *Graph {
	shape := adjacency.Shape()
	if shape.Rank() != 2 || shape.Dimensions[0] != shape.Dimensions[1] {
		PanicShapef("FromDense: adjacency must be square, got shape %s", shape)
	}
	if shape.DType != dtypes.Float32 {
		PanicShapef("FromDense: adjacency must be Float32, got %s", shape.DType)
	}
	return &Graph{
		NumNodes:  shape.Dimensions[0],
		Adjacency: adjacency,
	}
}

// FromEdgeList creates a Graph from a COO edge list over numNodes nodes.
// Mismatched source/target lengths or out-of-range node ids throw an
// ErrShape panic. The edge list is aliased, not copied.
func FromEdgeList(source, target []int32, numNodes int) *Graph {
	if len(source) != len(target) {
		PanicShapef("FromEdgeList: %d sources but %d targets", len(source), len(target))
	}
	if numNodes <= 0 {
		PanicShapef("FromEdgeList: numNodes must be positive, got %d", numNodes)
	}
	for e := range source {
		if source[e] < 0 || int(source[e]) >= numNodes || target[e] < 0 || int(target[e]) >= numNodes {
			PanicShapef("FromEdgeList: edge %d (%d->%d) out of range [0, %d)",
				e, source[e], target[e], numNodes)
		}
	}
	return &Graph{
		NumNodes:   numNodes,
		EdgeSource: source,
		EdgeTarget: target,
	}
}

// NumEdges returns the number of edges in the COO edge list, deriving it
// from the dense adjacency if needed.
func (g *Graph) NumEdges() int {
	if g.EdgeSource == nil && g.Adjacency != nil {
		g.EdgeSource, g.EdgeTarget = denseToEdgeList(g.Adjacency, g.NumNodes)
	}
	return len(g.EdgeSource)
}

// EdgeList returns the COO form of the adjacency, deriving it from the
// dense adjacency on first use. Edges derived from a dense adjacency are
// those with a non-zero entry, ordered row-major (by source, then target).
func (g *Graph) EdgeList() (source, target []int32) {
	if g.EdgeSource == nil && g.Adjacency != nil {
		g.EdgeSource, g.EdgeTarget = denseToEdgeList(g.Adjacency, g.NumNodes)
	}
	return g.EdgeSource, g.EdgeTarget
}

// Dense returns the dense [NumNodes, NumNodes] adjacency, materializing it
// from the edge list on first use. Edge weights are 1 for edge-list sourced
// graphs. It throws an ErrShape panic on batched records, whose dense form
// is built by Batch instead.
func (g *Graph) Dense() *tensors.Tensor {
	if g.IsBatch {
		PanicShapef("Graph.Dense: record is a batch, its adjacency is assembled by Batch")
	}
	if g.Adjacency == nil {
		n := g.NumNodes
		flat := make([]float32, n*n)
		for e := range g.EdgeSource {
			flat[int(g.EdgeSource[e])*n+int(g.EdgeTarget[e])] = 1
		}
		g.Adjacency = tensors.FromFlatDataAndDimensions(flat, n, n)
	}
	return g.Adjacency
}

// denseToEdgeList extracts the non-zero entries of a single dense [N, N]
// adjacency in row-major order.
func denseToEdgeList(adjacency *tensors.Tensor, numNodes int) (source, target []int32) {
	tensors.MustConstFlatData(adjacency, func(flat []float32) {
		for row := 0; row < numNodes; row++ {
			for col := 0; col < numNodes; col++ {
				if flat[row*numNodes+col] != 0 {
					source = append(source, int32(row))
					target = append(target, int32(col))
				}
			}
		}
	})
	return
}

// WithNodeFeatures attaches node features [NumNodes, F] and returns g.
// Wrong leading dimension or dtype throws an ErrShape panic.
func (g *Graph) WithNodeFeatures(features *tensors.Tensor) *Graph {
	shape := features.Shape()
	if shape.Rank() != 2 || shape.Dimensions[0] != g.NumNodes {
		PanicShapef("WithNodeFeatures: want [%d, F], got shape %s", g.NumNodes, shape)
	}
	if shape.DType != dtypes.Float32 {
		PanicShapef("WithNodeFeatures: want Float32, got %s", shape.DType)
	}
	g.NodeFeatures = features
	return g
}

// WithEdgeFeatures attaches edge features [NumEdges, Fe] and returns g.
func (g *Graph) WithEdgeFeatures(features *tensors.Tensor) *Graph {
	shape := features.Shape()
	if shape.Rank() != 2 || shape.Dimensions[0] != g.NumEdges() {
		PanicShapef("WithEdgeFeatures: want [%d, Fe], got shape %s", g.NumEdges(), shape)
	}
	if shape.DType != dtypes.Float32 {
		PanicShapef("WithEdgeFeatures: want Float32, got %s", shape.DType)
	}
	g.EdgeFeatures = features
	return g
}

// WithPositionalEncoding attaches a positional encoding [NumNodes, K] and
// returns g. Usually called by the spectral encoder.
func (g *Graph) WithPositionalEncoding(pe *tensors.Tensor) *Graph {
	shape := pe.Shape()
	if shape.Rank() != 2 || shape.Dimensions[0] != g.NumNodes {
		PanicShapef("WithPositionalEncoding: want [%d, K], got shape %s", g.NumNodes, shape)
	}
	if shape.DType != dtypes.Float32 {
		PanicShapef("WithPositionalEncoding: want Float32, got %s", shape.DType)
	}
	g.PositionalEncoding = pe
	return g
}

// WithLabel attaches a label tensor and returns g. Any shape is accepted,
// labels are opaque to this package.
func (g *Graph) WithLabel(label *tensors.Tensor) *Graph {
	g.Label = label
	return g
}

// FeatureDim returns the node feature width F, or 0 if no node features
// are attached.
func (g *Graph) FeatureDim() int {
	if g.NodeFeatures == nil {
		return 0
	}
	shape := g.NodeFeatures.Shape()
	return shape.Dimensions[shape.Rank()-1]
}

// MaxNodesPerGraph returns the largest member-graph node count: NumNodes
// for single records and dense batches, the largest BatchIDs run for sparse
// union batches.
func (g *Graph) MaxNodesPerGraph() int {
	if g.BatchIDs == nil {
		return g.NumNodes
	}
	max, count := 0, 0
	current := int32(-1)
	for _, id := range g.BatchIDs {
		if id != current {
			current, count = id, 0
		}
		count++
		if count > max {
			max = count
		}
	}
	return max
}
