// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutualinfo

import "math"

// InstructionRun is one observed run (a testcase, possibly one of r
// randomization replicates of the same underlying testcase) as seen at
// a single instr_relative_addr: the ordered sequence of relative memory
// offsets that instruction touched during that run.
type InstructionRun struct {
	TestcaseID uint64 // identifies the underlying testcase across replicates
	Offsets    []uint64
}

// InstructionResult is the mutual information leaked through a single
// instruction, sorted by the caller into descending Bits order for
// reporting (§6: "largest leaks first").
type InstructionResult struct {
	InstrRelativeAddr uint64
	Bits              float64
	Warning           UndersamplingWarning
}

// PerInstruction computes, for every instruction address present in
// runsByInstr, the mutual information between underlying testcase
// identity and the hash of that instruction's observed offset sequence,
// using the replication-aware formula from §4.9:
//
//	p(x,y) = c(x,y)/N, p(y) = sum_x c(x,y)/N, p(x) = r/N
//	I = sum_{x,y} p(x,y) * log2( p(x,y) / (p(x)*p(y)) )
//
// where r is the configured randomization multiplier (1 when
// randomization replication is not in use).
func PerInstruction(pool *HashPool, runsByInstr map[uint64][]InstructionRun, replication int) []InstructionResult {
	if replication < 1 {
		replication = 1
	}
	out := make([]InstructionResult, 0, len(runsByInstr))
	for instr, runs := range runsByInstr {
		out = append(out, InstructionResult{
			InstrRelativeAddr: instr,
			Bits:              perInstructionBits(pool, runs, replication),
		})
	}
	for i := range out {
		out[i].Warning = checkUndersampling(out[i].Bits, len(runsByInstr[out[i].InstrRelativeAddr]), replication)
	}
	return out
}

func perInstructionBits(pool *HashPool, runs []InstructionRun, replication int) float64 {
	n := len(runs)
	if n == 0 {
		return 0
	}
	// c[x][y] = number of runs of underlying testcase x whose offset
	// sequence hashed to y.
	type key struct {
		x, y uint64
	}
	c := make(map[key]int)
	yTotals := make(map[uint64]int)
	for _, run := range runs {
		y := ChainHash(pool, run.Offsets)
		c[key{run.TestcaseID, y}]++
		yTotals[y]++
	}
	px := float64(replication) / float64(n)
	var bits float64
	for k, cxy := range c {
		pxy := float64(cxy) / float64(n)
		py := float64(yTotals[k.y]) / float64(n)
		if pxy == 0 || px == 0 || py == 0 {
			continue
		}
		bits += pxy * math.Log2(pxy/(px*py))
	}
	return bits
}
