// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasets adapts collections of graph records to the train.Dataset
// interface: batching through the union batcher, candidate-edge assembly
// for link prediction, spectral preprocessing and a synthetic sample
// generator for tests and examples.
package datasets

import (
	"io"
	"math/rand/v2"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/graphs"
)

// InMemory is a train.Dataset over graph records held in memory. Each
// record carries one candidate pair (in intra-graph node ids) and a Float32
// label; Yield assembles union batches with the candidate edges appended
// the way the walk pooling extractor expects them.
//
// A batch yields five inputs, in order: node features
// [totalNodes, featureDim], edge sources, edge targets (Int32, candidate
// edges at the tail), edge mask (Bool) and batch assignment ids (Int32).
// If every record has a positional encoding of the same width, a sixth
// input [totalNodes, K] is appended. Labels are one [batchSize, 1] Float32
// tensor.
//
// It is safe for concurrent Yield calls, in the train.Dataset contract.
type InMemory struct {
	name      string
	records   []*graphs.Graph
	pairs     [][2]int32
	batchSize int
	maxNodes  int
	withPE    bool

	muSample   sync.Mutex
	next       int
	perm       []int
	rng        *rand.Rand
	infinite   bool
	numEpochs  int
	epochsDone int
}

// NewInMemory creates the dataset. Every record must have node features of
// the same width and a scalar-vector Float32 label ([1]); pairs[i] is the
// candidate link of records[i]. Partial trailing batches are dropped so the
// yielded shapes stay uniform per node-count profile.
//
// Inconsistent inputs throw an ErrShape panic.
func NewInMemory(name string, records []*graphs.Graph, pairs [][2]int32, batchSize int) *InMemory {
	if len(records) == 0 || len(records) != len(pairs) {
		graphs.PanicShapef("NewInMemory: %d records but %d candidate pairs", len(records), len(pairs))
	}
	if batchSize < 1 || batchSize > len(records) {
		graphs.PanicShapef("NewInMemory: batch size %d out of range for %d records", batchSize, len(records))
	}
	maxNodes := 0
	withPE := true
	peWidth := -1
	for i, r := range records {
		if r.NodeFeatures == nil || r.FeatureDim() != records[0].FeatureDim() {
			graphs.PanicShapef("NewInMemory: records[%d] is missing node features of width %d",
				i, records[0].FeatureDim())
		}
		if r.Label == nil {
			graphs.PanicShapef("NewInMemory: records[%d] has no label", i)
		}
		if p := pairs[i]; p[0] < 0 || int(p[0]) >= r.NumNodes || p[1] < 0 || int(p[1]) >= r.NumNodes {
			graphs.PanicShapef("NewInMemory: pairs[%d]=(%d, %d) out of range [0, %d)",
				i, p[0], p[1], r.NumNodes)
		}
		if r.NumNodes > maxNodes {
			maxNodes = r.NumNodes
		}
		if r.PositionalEncoding == nil {
			withPE = false
		} else if peWidth < 0 {
			peWidth = r.PositionalEncoding.Shape().Dimensions[1]
		} else if r.PositionalEncoding.Shape().Dimensions[1] != peWidth {
			withPE = false
		}
	}
	return &InMemory{
		name:      name,
		records:   records,
		pairs:     pairs,
		batchSize: batchSize,
		maxNodes:  maxNodes,
		withPE:    withPE,
		numEpochs: 1,
	}
}

// Shuffle sets a sampling order reshuffled with rng at every epoch and
// returns the dataset for chaining.
func (d *InMemory) Shuffle(rng *rand.Rand) *InMemory {
	d.muSample.Lock()
	defer d.muSample.Unlock()
	d.rng = rng
	d.perm = nil
	return d
}

// Epochs sets how many passes over the records Yield serves before io.EOF.
func (d *InMemory) Epochs(n int) *InMemory {
	d.muSample.Lock()
	defer d.muSample.Unlock()
	d.numEpochs = n
	return d
}

// Infinite makes the dataset loop forever, for use with Loop.RunSteps.
func (d *InMemory) Infinite() *InMemory {
	d.muSample.Lock()
	defer d.muSample.Unlock()
	d.infinite = true
	return d
}

// Name implements train.Dataset.
func (d *InMemory) Name() string { return d.name }

// MaxNodesPerGraph returns the largest node count over all records, the
// static indicator width to pass to the walk pooling extractor.
func (d *InMemory) MaxNodesPerGraph() int { return d.maxNodes }

// BatchSize returns the number of graphs per yielded batch.
func (d *InMemory) BatchSize() int { return d.batchSize }

// Reset implements train.Dataset: the next Yield starts a fresh pass.
func (d *InMemory) Reset() {
	d.muSample.Lock()
	defer d.muSample.Unlock()
	d.next = 0
	d.epochsDone = 0
	d.perm = nil
}

// Yield implements train.Dataset.
func (d *InMemory) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	d.muSample.Lock()
	defer d.muSample.Unlock()

	if d.next+d.batchSize > len(d.records) {
		// Pass finished, partial remainder dropped.
		d.epochsDone++
		if !d.infinite && d.epochsDone >= d.numEpochs {
			return nil, nil, nil, io.EOF
		}
		d.next = 0
		d.perm = nil
	}
	if d.perm == nil && d.rng != nil {
		d.perm = d.rng.Perm(len(d.records))
	}

	batchRecords := make([]*graphs.Graph, d.batchSize)
	batchPairs := make([][2]int32, d.batchSize)
	for i := range d.batchSize {
		idx := d.next + i
		if d.perm != nil {
			idx = d.perm[idx]
		}
		batchRecords[i] = d.records[idx]
		batchPairs[i] = d.pairs[idx]
	}
	d.next += d.batchSize

	inputs, labels = Collate(batchRecords, batchPairs, d.withPE)
	return d, inputs, labels, nil
}

// Collate assembles one union batch with its candidate edges into input and
// label tensors, in the layout documented on InMemory.
func Collate(records []*graphs.Graph, pairs [][2]int32, withPE bool) (inputs, labels []*tensors.Tensor) {
	union := graphs.UnionBatch(records)

	// Candidate endpoints shifted into the union id space.
	candidates := graphs.NewCandidatePairs()
	offset := int32(0)
	for i, r := range records {
		candidates.Add(pairs[i][0]+offset, pairs[i][1]+offset)
		offset += int32(r.NumNodes)
	}
	unionSrc, unionTgt := union.EdgeList()
	src, tgt, mask := candidates.JoinEdges(unionSrc, unionTgt, union.NumNodes)

	inputs = []*tensors.Tensor{
		union.NodeFeatures,
		tensors.FromValue(src),
		tensors.FromValue(tgt),
		tensors.FromValue(mask),
		tensors.FromValue(union.BatchIDs),
	}
	if withPE {
		inputs = append(inputs, union.PositionalEncoding)
	}
	labelFlat := make([]float32, 0, len(records))
	for _, r := range records {
		tensors.MustConstFlatData(r.Label, func(flat []float32) {
			labelFlat = append(labelFlat, flat[0])
		})
	}
	labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(labelFlat, len(records), 1)}
	return
}
