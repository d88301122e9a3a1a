// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphs

// CandidatePairs is the list of undirected candidate links of a batch, one
// per member graph, in member order. It makes the reciprocal-pair layout
// consumed by the walk pooling extractor structural: each pair (i, j)
// contributes the two directed edges i->j, j->i, appended after all
// observed edges and marked false in the edge mask.
type CandidatePairs struct {
	pairs [][2]int32
}

// NewCandidatePairs creates the candidate list. The endpoint ids are in the
// combined (batched) node id space.
func NewCandidatePairs(pairs ...[2]int32) *CandidatePairs {
	return &CandidatePairs{pairs: pairs}
}

// Add appends one undirected candidate pair.
func (c *CandidatePairs) Add(i, j int32) {
	c.pairs = append(c.pairs, [2]int32{i, j})
}

// Len returns the number of undirected pairs.
func (c *CandidatePairs) Len() int { return len(c.pairs) }

// Pair returns the p-th undirected pair.
func (c *CandidatePairs) Pair(p int) (i, j int32) {
	return c.pairs[p][0], c.pairs[p][1]
}

// JoinEdges appends the candidate edges to an observed edge list and builds
// the edge mask: observed edges are true, the trailing interleaved
// candidate edges (i->j immediately followed by j->i, per pair) are false.
// The inputs are not modified.
//
// Out-of-range endpoints throw an ErrShape panic.
func (c *CandidatePairs) JoinEdges(source, target []int32, numNodes int) (joinedSource, joinedTarget []int32, mask []bool) {
	numEdges := len(source) + 2*len(c.pairs)
	joinedSource = make([]int32, 0, numEdges)
	joinedTarget = make([]int32, 0, numEdges)
	mask = make([]bool, 0, numEdges)
	joinedSource = append(joinedSource, source...)
	joinedTarget = append(joinedTarget, target...)
	for range source {
		mask = append(mask, true)
	}
	for p, pair := range c.pairs {
		i, j := pair[0], pair[1]
		if i < 0 || int(i) >= numNodes || j < 0 || int(j) >= numNodes {
			PanicShapef("CandidatePairs.JoinEdges: pair %d (%d, %d) out of range [0, %d)",
				p, i, j, numNodes)
		}
		joinedSource = append(joinedSource, i, j)
		joinedTarget = append(joinedTarget, j, i)
		mask = append(mask, false, false)
	}
	return
}

// CandidatesFromMask recovers the candidate pairs from a raw edge list plus
// mask, validating the layout JoinEdges produces: an even number of
// candidate (false) entries, all at the tail of the list, each adjacent
// pair of them reciprocal. Violations throw an ErrShape panic.
//
// It exists for callers that assemble the mask themselves instead of going
// through JoinEdges.
func CandidatesFromMask(source, target []int32, mask []bool) *CandidatePairs {
	if len(source) != len(target) || len(source) != len(mask) {
		PanicShapef("CandidatesFromMask: lengths differ: %d sources, %d targets, %d mask entries",
			len(source), len(target), len(mask))
	}
	tail := len(mask)
	for tail > 0 && !mask[tail-1] {
		tail--
	}
	for e := 0; e < tail; e++ {
		if !mask[e] {
			PanicShapef("CandidatesFromMask: candidate edge %d precedes observed edge %d, candidates must be at the tail", e, tail-1)
		}
	}
	numCandidates := len(mask) - tail
	if numCandidates%2 != 0 {
		PanicShapef("CandidatesFromMask: %d candidate edges, want an even number of reciprocal pairs", numCandidates)
	}
	c := &CandidatePairs{pairs: make([][2]int32, 0, numCandidates/2)}
	for e := tail; e < len(mask); e += 2 {
		if source[e] != target[e+1] || target[e] != source[e+1] {
			PanicShapef("CandidatesFromMask: edges %d (%d->%d) and %d (%d->%d) are not reciprocal",
				e, source[e], target[e], e+1, source[e+1], target[e+1])
		}
		c.pairs = append(c.pairs, [2]int32{source[e], target[e]})
	}
	return c
}
