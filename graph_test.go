// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ringAdjacency returns the dense adjacency of a bidirectional ring over n
// nodes.
func ringAdjacency(n int) *tensors.Tensor {
	flat := make([]float32, n*n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		flat[i*n+j] = 1
		flat[j*n+i] = 1
	}
	return tensors.FromFlatDataAndDimensions(flat, n, n)
}

func TestFromDense(t *testing.T) {
	g := FromDense(ringAdjacency(4))
	require.Equal(t, 4, g.NumNodes)

	src, tgt := g.EdgeList()
	require.Len(t, src, 8)
	// Row-major extraction: node 0's edges come first.
	assert.Equal(t, int32(0), src[0])
	assert.Equal(t, int32(1), tgt[0])
	assert.Equal(t, int32(0), src[1])
	assert.Equal(t, int32(3), tgt[1])

	err := TryShape(func() {
		FromDense(tensors.FromFlatDataAndDimensions(make([]float32, 6), 2, 3))
	})
	require.True(t, errors.Is(err, ErrShape))
}

func TestFromEdgeList(t *testing.T) {
	g := FromEdgeList([]int32{0, 1, 1, 2}, []int32{1, 0, 2, 1}, 3)
	require.Equal(t, 3, g.NumNodes)
	require.Equal(t, 4, g.NumEdges())

	// Densifying an edge-list graph gives weight 1 per edge.
	var want = [][]float32{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}
	require.True(t, tensors.FromValue(want).Equal(g.Dense()))

	err := TryShape(func() { FromEdgeList([]int32{0, 3}, []int32{1, 0}, 3) })
	require.True(t, errors.Is(err, ErrShape))
	err = TryShape(func() { FromEdgeList([]int32{0}, []int32{1, 2}, 3) })
	require.True(t, errors.Is(err, ErrShape))
}

func TestFieldSetters(t *testing.T) {
	g := FromDense(ringAdjacency(4))
	g.WithNodeFeatures(tensors.FromFlatDataAndDimensions(make([]float32, 4*2), 4, 2))
	require.Equal(t, 2, g.FeatureDim())

	err := TryShape(func() {
		g.WithNodeFeatures(tensors.FromFlatDataAndDimensions(make([]float32, 3*2), 3, 2))
	})
	require.True(t, errors.Is(err, ErrShape))

	err = TryShape(func() {
		g.WithPositionalEncoding(tensors.FromFlatDataAndDimensions(make([]float32, 5*3), 5, 3))
	})
	require.True(t, errors.Is(err, ErrShape))

	err = TryShape(func() {
		g.WithEdgeFeatures(tensors.FromFlatDataAndDimensions(make([]float32, 3), 3, 1))
	})
	require.True(t, errors.Is(err, ErrShape))
	g.WithEdgeFeatures(tensors.FromFlatDataAndDimensions(make([]float32, 8), 8, 1))
	require.NotNil(t, g.EdgeFeatures)
}

func TestMaxNodesPerGraph(t *testing.T) {
	single := FromDense(ringAdjacency(5))
	require.Equal(t, 5, single.MaxNodesPerGraph())

	union := UnionBatch([]*Graph{FromDense(ringAdjacency(3)), FromDense(ringAdjacency(5))})
	require.Equal(t, 5, union.MaxNodesPerGraph())
}
