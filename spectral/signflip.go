// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package spectral

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// SignFlip multiplies each positional encoding column by a random +-1
// during training, making consumers invariant to the arbitrary eigenvector
// signs. Outside training it is the identity. The random state lives in ctx,
// there are no package-level noise buffers.
//
// pe is [..., K], the flip is per column and shared across nodes.
func SignFlip(ctx *context.Context, pe *Node) *Node {
	g := pe.Graph()
	if !ctx.IsTraining(g) {
		return pe
	}
	dims := make([]int, pe.Rank())
	for i := range dims {
		dims[i] = 1
	}
	dims[len(dims)-1] = pe.Shape().Dimensions[pe.Rank()-1]
	u := ctx.RandomUniform(g, shapes.Make(pe.DType(), dims...))
	// u >= 0.5 maps to +1, u < 0.5 to -1.
	one := ConstAsDType(g, pe.DType(), 1.0)
	signs := Where(GreaterOrEqual(u, ConstAsDType(g, pe.DType(), 0.5)), one, Neg(one))
	return Mul(pe, signs)
}
