// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package gnn has the embedding producers consumed by the walk pooling
// extractor: GIN convolutions over dense-batched adjacencies, a sparse
// edge-list convolution for union batches, an MLP block and a Hadamard
// link predictor.
//
// All layers read their activation and dropout configuration from the
// context (activations.ParamActivation, layers.ParamDropoutRate).
package gnn

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/graphs"
	"github.com/gomlx/graphs/spectral"
)

// MLP applies a chain of dense layers with the context activation between
// them (none after the last) and dropout from the context after each hidden
// layer.
func MLP(ctx *context.Context, x *Node, dims ...int) *Node {
	for i, dim := range dims {
		layerCtx := ctx.Inf("dense_%d", i)
		x = layers.DenseWithBias(layerCtx, x, dim)
		if i < len(dims)-1 {
			x = activations.ApplyFromContext(ctx, x)
			x = layers.DropoutFromContext(ctx, x)
		}
	}
	return x
}

// GINConv is a graph isomorphism convolution over a dense-batched
// adjacency: (1+eps)*x + A*x pushed through an MLP, with eps a trainable
// scalar. x is [batch, numNodes, features], adjacency
// [batch, numNodes, numNodes], and the output feature width is
// dims[len(dims)-1].
func GINConv(ctx *context.Context, x, adjacency *Node, dims ...int) *Node {
	g := x.Graph()
	eps := ctx.VariableWithValue("eps", float32(0)).ValueGraph(g)
	aggregated := MatMul(adjacency, x)
	combined := Add(Add(x, Mul(x, eps)), aggregated)
	return MLP(ctx.In("mlp"), combined, dims...)
}

// DiGINConv is the directed variant: it aggregates over both edge
// directions (A*x and Aᵀ*x), concatenates the two messages with the scaled
// root features and pushes the result through an MLP.
func DiGINConv(ctx *context.Context, x, adjacency *Node, dims ...int) *Node {
	g := x.Graph()
	eps := ctx.VariableWithValue("eps", float32(0)).ValueGraph(g)
	root := Add(x, Mul(x, eps))
	out := MatMul(adjacency, x)
	in := MatMul(TransposeAllDims(adjacency, 0, 2, 1), x)
	return MLP(ctx.In("mlp"), Concatenate([]*Node{root, out, in}, -1), dims...)
}

// SparseGINConv is GINConv for union-batched (edge list) graphs: x is
// [numNodes, features] for the whole batch and edgeSource/edgeTarget the
// remapped COO edge list. Messages flow source to target.
func SparseGINConv(ctx *context.Context, x, edgeSource, edgeTarget *Node, dims ...int) *Node {
	g := x.Graph()
	numNodes := x.Shape().Dimensions[0]
	if edgeSource.Shape().Dimensions[0] != edgeTarget.Shape().Dimensions[0] {
		graphs.PanicShapef("SparseGINConv: edge list shapes differ: %s sources, %s targets",
			edgeSource.Shape(), edgeTarget.Shape())
	}
	eps := ctx.VariableWithValue("eps", float32(0)).ValueGraph(g)
	messages := Gather(x, InsertAxes(edgeSource, -1))
	aggregated := ScatterSum(
		Zeros(g, shapes.Make(x.DType(), numNodes, x.Shape().Dimensions[1])),
		InsertAxes(edgeTarget, -1), messages, false, false)
	combined := Add(Add(x, Mul(x, eps)), aggregated)
	return MLP(ctx.In("mlp"), combined, dims...)
}

// EmbedPositional concatenates the spectral positional encoding to the node
// features, sign-flipping it during training so consumers stay invariant to
// the arbitrary eigenvector signs. pe may be nil, in which case x is
// returned unchanged.
func EmbedPositional(ctx *context.Context, x, pe *Node) *Node {
	if pe == nil {
		return x
	}
	pe = spectral.SignFlip(ctx, pe)
	return Concatenate([]*Node{x, pe}, -1)
}

// LinkPredictor scores a node pair from its two embeddings: the Hadamard
// product pushed through an MLP to a single logit per pair. zi and zj are
// [numPairs, embeddingDim]; the result is [numPairs, 1].
func LinkPredictor(ctx *context.Context, zi, zj *Node, hiddenDims ...int) *Node {
	dims := append(append([]int{}, hiddenDims...), 1)
	return MLP(ctx.In("predictor"), Mul(zi, zj), dims...)
}
