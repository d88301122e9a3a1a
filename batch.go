// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
)

// Batch combines records into one batched Graph.
//
// When every record has the same node count the batch is dense: the
// adjacency becomes [B, N, N], node features [B, N, F], and the optional
// positional encoding and label are stacked only when present on every
// member (partial presence silently drops the field, callers that need it
// must ensure uniformity upstream). Otherwise it falls back to UnionBatch.
// The choice keys only on node-count uniformity, never on how the records
// were constructed.
//
// Input records are never mutated (densifying a member's adjacency caches
// the dense form on the member, but no record field is rewritten).
//
// It throws an ErrShape panic on an empty sequence or when feature widths
// differ across records.
func Batch(records []*Graph) *Graph {
	checkBatchable(records)
	n := records[0].NumNodes
	for _, r := range records[1:] {
		if r.NumNodes != n {
			return UnionBatch(records)
		}
	}

	b := len(records)
	batched := &Graph{
		NumNodes:  n,
		IsBatch:   true,
		BatchSize: b,
	}

	adjFlat := make([]float32, b*n*n)
	for i, r := range records {
		tensors.MustConstFlatData(r.Dense(), func(flat []float32) {
			copy(adjFlat[i*n*n:], flat)
		})
	}
	batched.Adjacency = tensors.FromFlatDataAndDimensions(adjFlat, b, n, n)

	if allPresent(records, func(r *Graph) *tensors.Tensor { return r.NodeFeatures }) {
		batched.NodeFeatures = stackFloat32(records, func(r *Graph) *tensors.Tensor { return r.NodeFeatures })
	}
	if allPresent(records, func(r *Graph) *tensors.Tensor { return r.PositionalEncoding }) {
		if uniformWidth(records, func(r *Graph) *tensors.Tensor { return r.PositionalEncoding }) {
			batched.PositionalEncoding = stackFloat32(records, func(r *Graph) *tensors.Tensor { return r.PositionalEncoding })
		}
	}
	batched.Label = stackLabels(records)
	return batched
}

// UnionBatch combines records into one sparse disjoint-union Graph: node
// ids of member i are shifted past all nodes of members 0..i-1, edges are
// remapped into the combined id space, and no cross-graph edges are added.
// BatchIDs assigns each combined node to its member graph.
//
// Node features are concatenated along the node axis and must be present on
// all members. Edge features, positional encodings and labels follow the
// same partial-presence rule as Batch.
func UnionBatch(records []*Graph) *Graph {
	checkBatchable(records)

	totalNodes, totalEdges := 0, 0
	for _, r := range records {
		totalNodes += r.NumNodes
		totalEdges += r.NumEdges()
	}

	batched := &Graph{
		NumNodes:   totalNodes,
		IsBatch:    true,
		BatchSize:  len(records),
		EdgeSource: make([]int32, 0, totalEdges),
		EdgeTarget: make([]int32, 0, totalEdges),
		BatchIDs:   make([]int32, 0, totalNodes),
	}

	offset := int32(0)
	for i, r := range records {
		src, tgt := r.EdgeList()
		for e := range src {
			batched.EdgeSource = append(batched.EdgeSource, src[e]+offset)
			batched.EdgeTarget = append(batched.EdgeTarget, tgt[e]+offset)
		}
		for range r.NumNodes {
			batched.BatchIDs = append(batched.BatchIDs, int32(i))
		}
		offset += int32(r.NumNodes)
	}

	if allPresent(records, func(r *Graph) *tensors.Tensor { return r.NodeFeatures }) {
		batched.NodeFeatures = concatFloat32(records, func(r *Graph) *tensors.Tensor { return r.NodeFeatures })
	}
	if allPresent(records, func(r *Graph) *tensors.Tensor { return r.EdgeFeatures }) {
		if uniformWidth(records, func(r *Graph) *tensors.Tensor { return r.EdgeFeatures }) {
			batched.EdgeFeatures = concatFloat32(records, func(r *Graph) *tensors.Tensor { return r.EdgeFeatures })
		}
	}
	if allPresent(records, func(r *Graph) *tensors.Tensor { return r.PositionalEncoding }) {
		if uniformWidth(records, func(r *Graph) *tensors.Tensor { return r.PositionalEncoding }) {
			batched.PositionalEncoding = concatFloat32(records, func(r *Graph) *tensors.Tensor { return r.PositionalEncoding })
		}
	}
	batched.Label = stackLabels(records)
	return batched
}

// checkBatchable validates the shared preconditions of Batch and
// UnionBatch: non-empty input, no nested batches, uniform node feature
// width when features are present.
func checkBatchable(records []*Graph) {
	if len(records) == 0 {
		PanicShapef("Batch: empty sequence of records")
	}
	featureDim := -1
	for i, r := range records {
		if r.IsBatch {
			PanicShapef("Batch: records[%d] is already a batch", i)
		}
		if r.NodeFeatures == nil {
			continue
		}
		if featureDim < 0 {
			featureDim = r.FeatureDim()
		} else if r.FeatureDim() != featureDim {
			PanicShapef("Batch: records[%d] has feature width %d, want %d",
				i, r.FeatureDim(), featureDim)
		}
	}
}

func allPresent(records []*Graph, field func(*Graph) *tensors.Tensor) bool {
	for _, r := range records {
		if field(r) == nil {
			return false
		}
	}
	return true
}

// uniformWidth reports whether an all-present 2D field has the same trailing
// dimension on every record.
func uniformWidth(records []*Graph, field func(*Graph) *tensors.Tensor) bool {
	want := field(records[0]).Shape().Dimensions[1]
	for _, r := range records[1:] {
		if field(r).Shape().Dimensions[1] != want {
			return false
		}
	}
	return true
}

// stackFloat32 stacks an all-present [N, W] Float32 field into [B, N, W].
func stackFloat32(records []*Graph, field func(*Graph) *tensors.Tensor) *tensors.Tensor {
	first := field(records[0]).Shape()
	rows, cols := first.Dimensions[0], first.Dimensions[1]
	flat := make([]float32, len(records)*rows*cols)
	for i, r := range records {
		tensors.MustConstFlatData(field(r), func(data []float32) {
			copy(flat[i*rows*cols:], data)
		})
	}
	return tensors.FromFlatDataAndDimensions(flat, len(records), rows, cols)
}

// concatFloat32 concatenates an all-present [*, W] Float32 field along the
// leading axis.
func concatFloat32(records []*Graph, field func(*Graph) *tensors.Tensor) *tensors.Tensor {
	cols := field(records[0]).Shape().Dimensions[1]
	total := 0
	for _, r := range records {
		total += field(r).Shape().Dimensions[0]
	}
	flat := make([]float32, 0, total*cols)
	for _, r := range records {
		tensors.MustConstFlatData(field(r), func(data []float32) {
			flat = append(flat, data...)
		})
	}
	return tensors.FromFlatDataAndDimensions(flat, total, cols)
}

// stackLabels stacks Float32 labels of identical shape into a leading batch
// axis. Partial presence, non-Float32 labels or mismatched shapes drop the
// field, matching the partial-presence policy of the optional fields.
func stackLabels(records []*Graph) *tensors.Tensor {
	if !allPresent(records, func(r *Graph) *tensors.Tensor { return r.Label }) {
		return nil
	}
	first := records[0].Label.Shape()
	if first.DType != dtypes.Float32 {
		return nil
	}
	for _, r := range records[1:] {
		if !r.Label.Shape().Equal(first) {
			return nil
		}
	}
	perRecord := first.Size()
	flat := make([]float32, 0, len(records)*perRecord)
	for _, r := range records {
		tensors.MustConstFlatData(r.Label, func(data []float32) {
			flat = append(flat, data...)
		})
	}
	dims := append([]int{len(records)}, first.Dimensions...)
	return tensors.FromFlatDataAndDimensions(flat, dims...)
}
