// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gnn

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/require"
)

func denseBatchInputs() (x, adjacency *tensors.Tensor) {
	// Two graphs of 4 nodes, 3 features.
	xFlat := make([]float32, 2*4*3)
	for i := range xFlat {
		xFlat[i] = float32(i%5) * 0.1
	}
	adjFlat := make([]float32, 2*4*4)
	for b := 0; b < 2; b++ {
		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			adjFlat[b*16+i*4+j] = 1
			adjFlat[b*16+j*4+i] = 1
		}
	}
	return tensors.FromFlatDataAndDimensions(xFlat, 2, 4, 3),
		tensors.FromFlatDataAndDimensions(adjFlat, 2, 4, 4)
}

func TestGINConvShapes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, adj := denseBatchInputs()

	got := context.MustExecOnce(backend, context.New(), func(ctx *context.Context, x, adj *Node) *Node {
		return GINConv(ctx.In("conv"), x, adj, 8, 5)
	}, x, adj)
	require.Equal(t, []int{2, 4, 5}, got.Shape().Dimensions)

	got = context.MustExecOnce(backend, context.New(), func(ctx *context.Context, x, adj *Node) *Node {
		return DiGINConv(ctx.In("conv"), x, adj, 8, 5)
	}, x, adj)
	require.Equal(t, []int{2, 4, 5}, got.Shape().Dimensions)
}

func TestSparseGINConvMatchesDense(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// Single graph as a dense batch of one and as an edge list. The same
	// context serves both, so the variables are shared and the outputs must
	// agree.
	ctx := context.New()
	dense := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x, adj *Node) *Node {
		return GINConv(ctx.In("conv"), x, adj, 8, 5)
	}, tensors.FromValue([][][]float32{{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}}),
		tensors.FromValue([][][]float32{{{0, 1, 0, 1}, {1, 0, 1, 0}, {0, 1, 0, 1}, {1, 0, 1, 0}}}))

	sparse := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x, src, tgt *Node) *Node {
		return SparseGINConv(ctx.In("conv"), x, src, tgt, 8, 5)
	}, tensors.FromValue([][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}),
		tensors.FromValue([]int32{0, 1, 1, 2, 2, 3, 3, 0}),
		tensors.FromValue([]int32{1, 0, 2, 1, 3, 2, 0, 3}))

	require.Equal(t, []int{1, 4, 5}, dense.Shape().Dimensions)
	require.Equal(t, []int{4, 5}, sparse.Shape().Dimensions)
	var denseFlat, sparseFlat []float32
	tensors.MustConstFlatData(dense, func(flat []float32) { denseFlat = append(denseFlat, flat...) })
	tensors.MustConstFlatData(sparse, func(flat []float32) { sparseFlat = append(sparseFlat, flat...) })
	require.InDeltaSlice(t, denseFlat, sparseFlat, 1e-5)
}

func TestEmbedPositional(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x := tensors.FromFlatDataAndDimensions(make([]float32, 4*3), 4, 3)
	pe := tensors.FromFlatDataAndDimensions(make([]float32, 4*2), 4, 2)

	got := context.MustExecOnce(backend, context.New(), func(ctx *context.Context, x, pe *Node) *Node {
		return EmbedPositional(ctx, x, pe)
	}, x, pe)
	require.Equal(t, []int{4, 5}, got.Shape().Dimensions)

	got = context.MustExecOnce(backend, context.New(), func(ctx *context.Context, x *Node) *Node {
		return EmbedPositional(ctx, x, nil)
	}, x)
	require.Equal(t, []int{4, 3}, got.Shape().Dimensions)
}

func TestLinkPredictor(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	zi := tensors.FromFlatDataAndDimensions(make([]float32, 3*8), 3, 8)
	zj := tensors.FromFlatDataAndDimensions(make([]float32, 3*8), 3, 8)

	got := context.MustExecOnce(backend, context.New(), func(ctx *context.Context, zi, zj *Node) *Node {
		return LinkPredictor(ctx, zi, zj, 16)
	}, zi, zj)
	require.Equal(t, []int{3, 1}, got.Shape().Dimensions)
}
