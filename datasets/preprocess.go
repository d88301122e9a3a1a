// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/graphs"
	"github.com/gomlx/graphs/spectral"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// AddPositionalEncodings runs the spectral encoder over every record,
// attaching a k-dimensional positional encoding. Records with fewer than
// k+1 nodes are skipped with a warning: they have no k non-trivial
// eigenvectors, and batches mixing encoded and skipped records simply drop
// the field at collation.
//
// It is a preprocessing pass over the whole collection, so it displays a
// progress bar and logs the memory added by the encodings.
func AddPositionalEncodings(records []*graphs.Graph, k int) {
	bar := progressbar.Default(int64(len(records)), "spectral encoding")
	var encodedBytes uint64
	skipped := 0
	for i, r := range records {
		_ = bar.Add(1)
		if k >= r.NumNodes {
			skipped++
			klog.Warningf("AddPositionalEncodings: records[%d] has %d nodes, too few for k=%d, skipped",
				i, r.NumNodes, k)
			continue
		}
		spectral.Encode(r, k)
		encodedBytes += uint64(r.PositionalEncoding.Shape().Memory())
	}
	_ = bar.Finish()
	klog.V(1).Infof("AddPositionalEncodings: encoded %d graphs (%d skipped), %s of positional encodings",
		len(records)-skipped, skipped, humanize.Bytes(encodedBytes))
}
