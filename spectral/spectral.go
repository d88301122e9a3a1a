// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package spectral computes spectral positional encodings: per-node
// coordinates taken from the low eigenvectors of the symmetric-normalized
// graph Laplacian.
//
// The eigenvector signs are arbitrary. Consumers that need sign invariance
// apply SignFlip at use time, or use a sign-invariant projection.
package spectral

import (
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/graphs"
	"gonum.org/v1/gonum/mat"
)

// Decompose builds the symmetric-normalized Laplacian
// L = I - D^{-1/2} A D^{-1/2} of the record's adjacency and returns its
// eigenvalues in ascending order with the matching eigenvectors as columns.
//
// Directed adjacencies are symmetrized as (A + Aᵀ)/2 first. Isolated nodes
// get a zero normalization factor instead of a division by zero.
//
// It throws an ErrNumerical panic if the factorization fails.
func Decompose(g *graphs.Graph) (eigenvalues []float64, eigenvectors *mat.Dense) {
	n := g.NumNodes
	laplacian := mat.NewSymDense(n, nil)
	tensors.MustConstFlatData(g.Dense(), func(adj []float32) {
		sym := make([]float64, n*n)
		degree := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := (float64(adj[i*n+j]) + float64(adj[j*n+i])) / 2
				sym[i*n+j] = v
				degree[i] += v
			}
		}
		invSqrt := make([]float64, n)
		for i, d := range degree {
			if d > 0 {
				invSqrt[i] = 1 / math.Sqrt(d)
			}
		}
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := -invSqrt[i] * sym[i*n+j] * invSqrt[j]
				if i == j {
					v += 1
				}
				laplacian.SetSym(i, j, v)
			}
		}
	})

	var es mat.EigenSym
	if !es.Factorize(laplacian, true) {
		graphs.PanicNumericalf("spectral.Decompose: eigendecomposition of the %dx%d Laplacian failed", n, n)
	}
	eigenvalues = es.Values(nil)
	eigenvectors = mat.NewDense(n, n, nil)
	es.VectorsTo(eigenvectors)
	return
}

// Encode attaches the spectral positional encoding of dimension k to the
// record and returns it: the eigenvectors of eigenvalue-ranks 1..k of the
// normalized Laplacian, as a [NumNodes, k] Float32 tensor. The rank-0
// eigenvector is constant and discarded.
//
// Requires 1 <= k < NumNodes, otherwise it throws an ErrNumerical panic:
// there are no k non-trivial eigenvectors to return.
func Encode(g *graphs.Graph, k int) *graphs.Graph {
	if k < 1 || k >= g.NumNodes {
		graphs.PanicNumericalf("spectral.Encode: need 1 <= k < numNodes, got k=%d with %d nodes",
			k, g.NumNodes)
	}
	_, vectors := Decompose(g)
	n := g.NumNodes
	flat := make([]float32, n*k)
	for i := 0; i < n; i++ {
		for col := 0; col < k; col++ {
			flat[i*k+col] = float32(vectors.At(i, col+1))
		}
	}
	return g.WithPositionalEncoding(tensors.FromFlatDataAndDimensions(flat, n, k))
}
