// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package walkpool extracts fixed-length link features from node embeddings
// with attention-weighted random walks.
//
// For each member graph of a batch there is one candidate link (i, j). The
// package scores every directed edge with a learned query/key attention,
// normalizes the scores into two transition structures -- the "plus" graph
// over all edges and the "minus" graph that excludes the candidate link --
// and power-iterates one-hot node indicators through both. The walk
// statistics read off at each step (self-return mass at i and j, transition
// mass between i and j, per-graph trace), together with the direct affinity
// omega of the candidate link, form one feature vector per graph.
//
// Excluding the candidate link from the minus graph keeps the feature free
// of the label being predicted.
//
// Hyperparameters are read from the context: ParamHiddenChannels,
// ParamHeads and ParamWalkLength, plus layers.ParamDropoutRate for the
// dropout inside the attention encoders.
package walkpool

import (
	"fmt"
	"math"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/nanlogger"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/graphs"
)

const (
	// ParamHiddenChannels is the context hyperparameter with the width of the
	// attention encoders. Defaults to 32.
	ParamHiddenChannels = "walkpool_hidden_channels"

	// ParamHeads is the context hyperparameter with the number of independent
	// attention heads. Defaults to 2.
	ParamHeads = "walkpool_heads"

	// ParamWalkLength is the context hyperparameter with the number of
	// recorded power-iteration steps. Defaults to 4.
	ParamWalkLength = "walkpool_walk_length"
)

// NanLogger is used if not nil: the plus and minus transition weights are
// traced, so the first NaN produced by the attention normalization is
// reported with its scope instead of silently flowing downstream.
var NanLogger *nanlogger.NanLogger

// FeatureDim returns the width of the feature vector Features produces:
// heads*(5*walkLen+1).
func FeatureDim(heads, walkLen int) int {
	return heads * (5*walkLen + 1)
}

// Features computes the walk pooling feature vector of every member graph
// of a batch.
//
// x is [numNodes, embeddingDim] with the node embeddings of the whole
// batch. edgeSource/edgeTarget are the directed COO edge list [numEdges],
// Int32; edgeMask is [numEdges], Bool, true for observed edges. The
// candidate edges of the numGraphs member graphs are the trailing
// 2*numGraphs entries, reciprocal pairs interleaved, exactly as
// graphs.CandidatePairs.JoinEdges lays them out. batchIDs is [numNodes],
// Int32, non-decreasing, assigning nodes to member graphs.
// maxNodesPerGraph bounds the indicator width of the power iteration.
//
// The result is [numGraphs, FeatureDim(heads, walkLen)], deterministic
// given fixed variables and inputs. Inconsistent static shapes throw an
// ErrShape panic at graph build time; node-id range and reciprocity are
// enforced on the CPU side by graphs.FromEdgeList and
// graphs.CandidatePairs.
func Features(ctx *context.Context, x, edgeSource, edgeTarget, edgeMask, batchIDs *Node, numGraphs, maxNodesPerGraph int) *Node {
	g := x.Graph()
	dtype := x.DType()
	heads := context.GetParamOr(ctx, ParamHeads, 2)
	walkLen := context.GetParamOr(ctx, ParamWalkLength, 4)

	numNodes := x.Shape().Dimensions[0]
	numEdges := edgeSource.Shape().Dimensions[0]
	numCandidates := 2 * numGraphs
	checkInputs(x, edgeSource, edgeTarget, edgeMask, batchIDs, numGraphs, maxNodesPerGraph)

	scores := AttentionScores(ctx, x, edgeSource, edgeTarget) // [numEdges, heads]
	weightsPlus, weightsMinus := TransitionWeights(scores, edgeTarget, edgeMask, numNodes)
	targetIdx := InsertAxes(edgeTarget, -1) // [numEdges, 1]

	if NanLogger != nil {
		NanLogger.TraceFirstNaN(weightsPlus, fmt.Sprintf("walkpool plus weights (%s)", ctx.Scope()))
		NanLogger.TraceFirstNaN(weightsMinus, fmt.Sprintf("walkpool minus weights (%s)", ctx.Scope()))
	}

	// Omega: direct affinity of each candidate pair, the sum of the two
	// directions' sigmoid scores. Summing makes it order-invariant.
	candidateScores := Reshape(Slice(scores, AxisRangeToEnd(numEdges-numCandidates)), numGraphs, 2, heads)
	omega := ReduceSum(Sigmoid(candidateScores), 1) // [numGraphs, heads]

	// Candidate endpoints: edge 2p is i->j, so the sources of the candidate
	// block, reshaped to [numGraphs, 2], are (i, j) per pair.
	candidateSources := Reshape(Slice(edgeSource, AxisRangeToEnd(numEdges-numCandidates)), numGraphs, 2)
	nodeI := Squeeze(Slice(candidateSources, AxisRange(), AxisRange(0, 1)), 1) // [numGraphs]
	nodeJ := Squeeze(Slice(candidateSources, AxisRange(), AxisRange(1, 2)), 1)

	// Intra-graph slot of each node: its offset from the first node of its
	// graph, one-hot encoded to width maxNodesPerGraph.
	nodeIota := Iota(g, shapes.Make(dtypes.Int32, numNodes), 0)
	batchIdx := InsertAxes(batchIDs, -1)
	firstOfGraph := ScatterMin(
		BroadcastToDims(ConstAsDType(g, dtypes.Int32, math.MaxInt32), numGraphs),
		batchIdx, nodeIota, false, false)
	positions := Sub(nodeIota, Gather(firstOfGraph, batchIdx))
	slots := OneHot(positions, maxNodesPerGraph, dtype) // [numNodes, slotCount]

	// One indicator per node per head, then one initial propagation so the
	// first recorded step is a two-hop statistic.
	indicators := BroadcastToDims(InsertAxes(slots, 1), numNodes, heads, maxNodesPerGraph)
	xPlus := propagate(indicators, edgeSource, targetIdx, weightsPlus)
	xMinus := propagate(indicators, edgeSource, targetIdx, weightsMinus)

	nodeIdxI, nodeIdxJ := InsertAxes(nodeI, -1), InsertAxes(nodeJ, -1)
	slotsAtI := Gather(slots, nodeIdxI) // [numGraphs, slotCount]
	slotsAtJ := Gather(slots, nodeIdxJ)

	nodePlus := make([]*Node, 0, walkLen)
	nodeMinus := make([]*Node, 0, walkLen)
	linkPlus := make([]*Node, 0, walkLen)
	linkMinus := make([]*Node, 0, walkLen)
	graphLevel := make([]*Node, 0, walkLen)
	for range walkLen {
		xPlus = propagate(xPlus, edgeSource, targetIdx, weightsPlus)
		xMinus = propagate(xMinus, edgeSource, targetIdx, weightsMinus)

		// Self-return mass of every node: the indicator entry at the node's
		// own slot.
		diagPlus := ReduceSum(Mul(xPlus, InsertAxes(slots, 1)), -1) // [numNodes, heads]
		diagMinus := ReduceSum(Mul(xMinus, InsertAxes(slots, 1)), -1)

		nodePlus = append(nodePlus, Add(Gather(diagPlus, nodeIdxI), Gather(diagPlus, nodeIdxJ)))
		nodeMinus = append(nodeMinus, Add(Gather(diagMinus, nodeIdxI), Gather(diagMinus, nodeIdxJ)))

		// Mass of i's walk landing on j plus the symmetric term.
		linkPlus = append(linkPlus, Add(
			readSlot(xPlus, nodeIdxJ, slotsAtI),
			readSlot(xPlus, nodeIdxI, slotsAtJ)))
		linkMinus = append(linkMinus, Add(
			readSlot(xMinus, nodeIdxJ, slotsAtI),
			readSlot(xMinus, nodeIdxI, slotsAtJ)))

		// Per-graph trace of the plus operator minus the minus operator.
		trace := Sub(
			ScatterSum(Zeros(g, shapes.Make(dtype, numGraphs, heads)), batchIdx, diagPlus, false, false),
			ScatterSum(Zeros(g, shapes.Make(dtype, numGraphs, heads)), batchIdx, diagMinus, false, false))
		graphLevel = append(graphLevel, trace)
	}

	return Concatenate([]*Node{
		flattenSteps(graphLevel),
		omega,
		flattenSteps(nodePlus),
		flattenSteps(nodeMinus),
		flattenSteps(linkPlus),
		flattenSteps(linkMinus),
	}, -1)
}

// AttentionScores projects x through independent query and key encoders and
// scores every directed edge with their per-head dot product, scaled by
// 1/sqrt(hiddenChannels). The result is [numEdges, heads].
func AttentionScores(ctx *context.Context, x, edgeSource, edgeTarget *Node) *Node {
	hidden := context.GetParamOr(ctx, ParamHiddenChannels, 32)
	heads := context.GetParamOr(ctx, ParamHeads, 2)
	query := encoder(ctx.In("query"), x, hidden, heads) // [numNodes, heads, hidden]
	key := encoder(ctx.In("key"), x, hidden, heads)
	q := Gather(query, InsertAxes(edgeSource, -1)) // [numEdges, heads, hidden]
	k := Gather(key, InsertAxes(edgeTarget, -1))
	return MulScalar(ReduceSum(Mul(q, k), -1), 1/math.Sqrt(float64(hidden)))
}

// TransitionWeights normalizes raw edge scores into the plus and minus
// transition weights.
//
// The plus weights are a softmax over incoming edges grouped by target
// node, over all edges, so they sum to 1 per target and head. The minus
// weights zero the candidate (mask false) edges and renormalize the
// surviving mass; the epsilon keeps targets whose only incoming edge is the
// candidate from dividing by zero. Both reuse the per-target maximum score
// for stabilization.
func TransitionWeights(scores, edgeTarget, edgeMask *Node, numNodes int) (weightsPlus, weightsMinus *Node) {
	g := scores.Graph()
	dtype := scores.DType()
	numEdges := scores.Shape().Dimensions[0]
	heads := scores.Shape().Dimensions[1]
	targetIdx := InsertAxes(edgeTarget, -1)

	maxPerTarget := ScatterMax(
		BroadcastToDims(Infinity(g, dtype, -1), numNodes, heads),
		targetIdx, scores, false, false)
	expScores := Exp(Sub(scores, Gather(maxPerTarget, targetIdx)))
	sumPlus := ScatterSum(Zeros(g, shapes.Make(dtype, numNodes, heads)), targetIdx, expScores, false, false)
	weightsPlus = Div(expScores, Gather(sumPlus, targetIdx))

	maskWide := BroadcastToDims(InsertAxes(edgeMask, -1), numEdges, heads)
	expMinus := Where(maskWide, expScores, ZerosLike(expScores))
	sumMinus := ScatterSum(Zeros(g, shapes.Make(dtype, numNodes, heads)), targetIdx, expMinus, false, false)
	weightsMinus = Div(expMinus, AddScalar(Gather(sumMinus, targetIdx), 1e-16))
	return
}

// encoder is the two-layer projection shared by query and key.
func encoder(ctx *context.Context, x *Node, hidden, heads int) *Node {
	h := layers.DenseWithBias(ctx.In("hidden"), x, hidden)
	h = activations.LeakyReluWithAlpha(h, 0.2)
	h = layers.DropoutFromContext(ctx, h)
	h = layers.DenseWithBias(ctx.In("output"), h, heads*hidden)
	return Reshape(h, x.Shape().Dimensions[0], heads, hidden)
}

// propagate moves indicator mass one step: each target node accumulates its
// incoming neighbors' mass weighted by the edge weight.
func propagate(indicators, edgeSource, targetIdx, weights *Node) *Node {
	messages := Mul(Gather(indicators, InsertAxes(edgeSource, -1)), InsertAxes(weights, -1))
	return ScatterSum(ZerosLike(indicators), targetIdx, messages, false, false)
}

// readSlot reads, per graph, the indicator mass of nodeIdx at the one-hot
// slot given by slotOneHot. Result is [numGraphs, heads].
func readSlot(indicators, nodeIdx, slotOneHot *Node) *Node {
	perNode := Gather(indicators, nodeIdx) // [numGraphs, heads, slotCount]
	return ReduceSum(Mul(perNode, InsertAxes(slotOneHot, 1)), -1)
}

// flattenSteps stacks per-step [numGraphs, heads] statistics into
// [numGraphs, walkLen*heads], step-major.
func flattenSteps(steps []*Node) *Node {
	numGraphs := steps[0].Shape().Dimensions[0]
	heads := steps[0].Shape().Dimensions[1]
	return Reshape(Stack(steps, 1), numGraphs, len(steps)*heads)
}

// checkInputs validates the static shapes at graph build time.
func checkInputs(x, edgeSource, edgeTarget, edgeMask, batchIDs *Node, numGraphs, maxNodesPerGraph int) {
	if x.Rank() != 2 {
		graphs.PanicShapef("walkpool: node embeddings must be [numNodes, dim], got %s", x.Shape())
	}
	numNodes := x.Shape().Dimensions[0]
	numEdges := edgeSource.Shape().Dimensions[0]
	if edgeTarget.Shape().Dimensions[0] != numEdges || edgeMask.Shape().Dimensions[0] != numEdges {
		graphs.PanicShapef("walkpool: edge list shapes differ: %s sources, %s targets, %s mask",
			edgeSource.Shape(), edgeTarget.Shape(), edgeMask.Shape())
	}
	if batchIDs.Shape().Dimensions[0] != numNodes {
		graphs.PanicShapef("walkpool: batchIDs is %s, want [%d]", batchIDs.Shape(), numNodes)
	}
	if numGraphs < 1 || 2*numGraphs > numEdges {
		graphs.PanicShapef("walkpool: %d candidate edges for %d graphs, but only %d edges",
			2*numGraphs, numGraphs, numEdges)
	}
	if maxNodesPerGraph < 1 {
		graphs.PanicShapef("walkpool: maxNodesPerGraph must be positive, got %d", maxNodesPerGraph)
	}
}
