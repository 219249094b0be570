// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutualinfo

import "encoding/binary"

// TestcaseTrace is one testcase's encoded entry sequence, restricted to
// the post-prefix portion, as produced by traceenc.Encode.
type TestcaseTrace struct {
	TestcaseID uint64
	Entries    []uint64
}

// ChainHash folds entries into a single 64-bit value via MD5-chained
// hashing, using a pooled hasher.
func ChainHash(pool *HashPool, entries []uint64) uint64 {
	h := pool.Acquire()
	defer pool.Release(h)
	var buf [8]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint64(buf[:], e)
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// ChainHashPrefixes returns h_1..h_L, the MD5-chained hash after every
// entry in order. h.Sum clones the hasher's internal block state to
// finalize without disturbing the running hash, so each of the L calls
// costs only the finalization of a single (mostly empty) block: overall
// this is amortized proportional to len(entries), not quadratic.
func ChainHashPrefixes(pool *HashPool, entries []uint64) []uint64 {
	h := pool.Acquire()
	defer pool.Release(h)
	out := make([]uint64, len(entries))
	var buf [8]byte
	for i, e := range entries {
		binary.LittleEndian.PutUint64(buf[:], e)
		h.Write(buf[:])
		sum := h.Sum(nil)
		out[i] = binary.LittleEndian.Uint64(sum[:8])
	}
	return out
}

// WholeTraceResult is the outcome of the whole-trace analyzer.
type WholeTraceResult struct {
	Bits    float64
	Warning UndersamplingWarning
}

// WholeTrace computes I(X;Y) where Y is the whole-trace chained hash of
// each testcase's post-prefix entries (§4.9). Testcases are assumed
// drawn uniformly and uniquely: replication count r should be folded
// into len(traces) by the caller if applicable (each replicate appears
// as its own TestcaseTrace).
func WholeTrace(pool *HashPool, traces []TestcaseTrace, replication int) WholeTraceResult {
	if replication < 1 {
		replication = 1
	}
	buckets := make(map[uint64]int)
	for _, tr := range traces {
		buckets[ChainHash(pool, tr.Entries)]++
	}
	sizes := make([]int, 0, len(buckets))
	for _, c := range buckets {
		sizes = append(sizes, c)
	}
	bits := entropyFromBucketSizes(sizes, len(traces))
	return WholeTraceResult{
		Bits:    bits,
		Warning: checkUndersampling(bits, len(traces), replication),
	}
}
