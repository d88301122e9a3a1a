// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package spectral

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/graphs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ringGraph(n int) *graphs.Graph {
	flat := make([]float32, n*n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		flat[i*n+j] = 1
		flat[j*n+i] = 1
	}
	return graphs.FromDense(tensors.FromFlatDataAndDimensions(flat, n, n))
}

func TestDecompose(t *testing.T) {
	// The normalized Laplacian of the 4-ring has eigenvalues {0, 1, 1, 2}.
	values, vectors := Decompose(ringGraph(4))
	require.Len(t, values, 4)
	assert.InDelta(t, 0, values[0], 1e-9)
	assert.InDelta(t, 1, values[1], 1e-9)
	assert.InDelta(t, 1, values[2], 1e-9)
	assert.InDelta(t, 2, values[3], 1e-9)

	// Ascending order and unit-norm eigenvectors.
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(t, values[i-1], values[i])
	}
	for col := 0; col < 4; col++ {
		norm := 0.0
		for row := 0; row < 4; row++ {
			norm += vectors.At(row, col) * vectors.At(row, col)
		}
		assert.InDelta(t, 1, norm, 1e-9, "eigenvector %d not unit norm", col)
	}
}

func TestEncode(t *testing.T) {
	g := Encode(ringGraph(5), 2)
	require.NotNil(t, g.PositionalEncoding)
	require.Equal(t, []int{5, 2}, g.PositionalEncoding.Shape().Dimensions)

	// Columns of the encoding are unit-norm eigenvectors, whatever sign.
	tensors.MustConstFlatData(g.PositionalEncoding, func(flat []float32) {
		for col := 0; col < 2; col++ {
			norm := 0.0
			for row := 0; row < 5; row++ {
				v := float64(flat[row*2+col])
				norm += v * v
			}
			assert.InDelta(t, 1, norm, 1e-5)
		}
	})
}

func TestEncodeDegenerate(t *testing.T) {
	singleNode := graphs.FromDense(tensors.FromFlatDataAndDimensions([]float32{0}, 1, 1))
	err := graphs.TryShape(func() { Encode(singleNode, 1) })
	require.True(t, errors.Is(err, graphs.ErrNumerical))

	err = graphs.TryShape(func() { Encode(ringGraph(4), 4) })
	require.True(t, errors.Is(err, graphs.ErrNumerical))
	err = graphs.TryShape(func() { Encode(ringGraph(4), 0) })
	require.True(t, errors.Is(err, graphs.ErrNumerical))
}

func TestSignFlip(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	pe := Encode(ringGraph(6), 3).PositionalEncoding

	// Outside training SignFlip is the identity.
	ctx := context.New()
	got := context.MustExecOnce(backend, ctx, func(ctx *context.Context, pe *Node) *Node {
		return SignFlip(ctx, pe)
	}, pe)
	require.True(t, pe.InDelta(got, 1e-6))

	// In training each column keeps its magnitude.
	ctx = context.New()
	got = context.MustExecOnce(backend, ctx, func(ctx *context.Context, pe *Node) *Node {
		ctx.SetTraining(pe.Graph(), true)
		return SignFlip(ctx, pe)
	}, pe)
	tensors.MustConstFlatData(pe, func(want []float32) {
		tensors.MustConstFlatData(got, func(flipped []float32) {
			for i := range want {
				assert.InDelta(t, math.Abs(float64(want[i])), math.Abs(float64(flipped[i])), 1e-6)
			}
		})
	})
}
