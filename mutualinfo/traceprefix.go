// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutualinfo

// PrefixPoint is the mutual information at one trace-prefix depth.
type PrefixPoint struct {
	Depth   int
	Bits    float64
	Warning UndersamplingWarning
}

// TracePrefix computes I(X;Y_k) for Y_k = the chained hash of each
// testcase's first k post-prefix entries, for every depth k up to the
// longest trace. Testcases shorter than k contribute a 0 hash at that
// depth in place of a missing entry (the Open Question resolution: a
// short trace is itself observable information, not something to
// exclude). Only depths where I changes from the previous depth are
// returned, since a flat run of identical I values adds no information
// to a report.
func TracePrefix(pool *HashPool, traces []TestcaseTrace, replication int) []PrefixPoint {
	if replication < 1 {
		replication = 1
	}
	maxLen := 0
	for _, tr := range traces {
		if len(tr.Entries) > maxLen {
			maxLen = len(tr.Entries)
		}
	}
	hashes := make([][]uint64, len(traces))
	for i, tr := range traces {
		hashes[i] = ChainHashPrefixes(pool, tr.Entries)
	}

	var out []PrefixPoint
	lastBits := -1.0
	for k := 1; k <= maxLen; k++ {
		buckets := make(map[uint64]int)
		for _, hs := range hashes {
			var y uint64
			if k <= len(hs) {
				y = hs[k-1]
			}
			buckets[y]++
		}
		sizes := make([]int, 0, len(buckets))
		for _, c := range buckets {
			sizes = append(sizes, c)
		}
		bits := entropyFromBucketSizes(sizes, len(traces))
		if bits != lastBits {
			out = append(out, PrefixPoint{
				Depth:   k,
				Bits:    bits,
				Warning: checkUndersampling(bits, len(traces), replication),
			})
			lastBits = bits
		}
	}
	return out
}
