// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"sync"

	"github.com/tracewalker/sidescan/mutualinfo"
	"github.com/tracewalker/sidescan/sidescan"
	"github.com/tracewalker/sidescan/traceenc"
	"github.com/tracewalker/sidescan/tracefmt"
)

// sinkCompress implements the Compress sink (§4.10, parallelism 4): it
// encodes each trace's entries and feeds the concurrent MI
// accumulators named in §4.10 — hashes_by_testcase for the whole-trace
// and trace-prefix variants, instruction_traces for the per-instruction
// variant. Each testcase id and each instruction address is owned by
// exactly one writer at a time via sync.Map.LoadOrStore, matching the
// spec's "atomic get-or-insert of the inner map, then sole-owner
// access keyed by testcase id."
func (p *Pipeline) sinkCompress(job sinkJob) {
	switch p.cfg.AnalysisMode {
	case sidescan.MIWholeTrace, sidescan.MITracePrefix:
		encoded := make([]uint64, len(job.trace.Entries))
		for i, e := range job.trace.Entries {
			encoded[i] = traceenc.Encode(e, uint64(p.cfg.Granularity))
		}
		p.wholeTraces.Store(job.testcaseID, encoded)

	case sidescan.MISingleInstruction:
		p.recordInstructionRuns(job)
	}
}

// recordInstructionRuns groups this testcase's memory-access entries
// by instr_relative_addr and stores each instruction's ordered offset
// sequence under instrRuns[instr][testcaseID]. The outer map is keyed
// by instruction and shared across every testcase that touches it; the
// inner map is keyed by testcase id, and each testcase id is written
// by exactly one goroutine (this one), so a sync.Map needs no further
// locking for either level.
func (p *Pipeline) recordInstructionRuns(job sinkJob) {
	granularity := uint64(p.cfg.Granularity)
	offsetsByInstr := make(map[uint64][]uint64)
	for _, e := range job.trace.Entries {
		instr, offset, ok := instructionOffset(e)
		if !ok {
			continue
		}
		offsetsByInstr[instr] = append(offsetsByInstr[instr], maskOffset(offset, granularity))
	}
	for instr, offsets := range offsetsByInstr {
		inner, _ := p.instrRuns.LoadOrStore(instr, &sync.Map{})
		inner.(*sync.Map).Store(job.testcaseID, offsets)
	}
}

// instructionOffset extracts the (instr_relative_addr, relative_addr)
// pair a per-instruction MI analysis keys on, for the three entry
// kinds that represent a memory access.
func instructionOffset(e tracefmt.Entry) (instr, offset uint64, ok bool) {
	switch v := e.(type) {
	case tracefmt.ImageMemoryAccess:
		return v.InstrRelativeAddr, v.MemRelativeAddr, true
	case tracefmt.HeapMemoryAccess:
		return v.InstrRelativeAddr, v.RelativeAddr, true
	case tracefmt.StackMemoryAccess:
		return v.InstrRelativeAddr, v.RelativeAddr, true
	default:
		return 0, 0, false
	}
}

// maskOffset aligns a memory access offset down to granularity, the
// same alignment traceenc.Encode and compare.Compare apply, so every
// analysis mode agrees on what Granularity means (§6).
func maskOffset(offset, granularity uint64) uint64 {
	if granularity <= 1 {
		return offset
	}
	return offset &^ (granularity - 1)
}

// finalizeAnalysis runs the configured MI analyzer over everything
// accumulated during the run and writes the §6 result files. Called
// once, from Wait, after every stage goroutine has exited.
func (p *Pipeline) finalizeAnalysis() error {
	switch p.cfg.AnalysisMode {
	case sidescan.MIWholeTrace:
		traces := p.collectWholeTraces()
		result := mutualinfo.WholeTrace(p.hashPool, traces, int(p.cfg.RandomizationMultiplier))
		return mutualinfo.WriteWholeTraceReport(p.cfg.OutputDirectory, maxTraceLen(traces), result)

	case sidescan.MITracePrefix:
		traces := p.collectWholeTraces()
		points := mutualinfo.TracePrefix(p.hashPool, traces, int(p.cfg.RandomizationMultiplier))
		return mutualinfo.WriteTraceReport(p.cfg.OutputDirectory, points)

	case sidescan.MISingleInstruction:
		runs := p.collectInstructionRuns()
		results := mutualinfo.PerInstruction(p.hashPool, runs, int(p.cfg.RandomizationMultiplier))
		return mutualinfo.WriteInstructionReport(p.cfg.OutputDirectory, results)
	}
	return nil
}

func (p *Pipeline) collectWholeTraces() []mutualinfo.TestcaseTrace {
	var out []mutualinfo.TestcaseTrace
	p.wholeTraces.Range(func(k, v interface{}) bool {
		out = append(out, mutualinfo.TestcaseTrace{TestcaseID: k.(uint64), Entries: v.([]uint64)})
		return true
	})
	return out
}

func maxTraceLen(traces []mutualinfo.TestcaseTrace) int {
	max := 0
	for _, t := range traces {
		if len(t.Entries) > max {
			max = len(t.Entries)
		}
	}
	return max
}

func (p *Pipeline) collectInstructionRuns() map[uint64][]mutualinfo.InstructionRun {
	out := make(map[uint64][]mutualinfo.InstructionRun)
	p.instrRuns.Range(func(k, v interface{}) bool {
		instr := k.(uint64)
		inner := v.(*sync.Map)
		var runs []mutualinfo.InstructionRun
		inner.Range(func(tk, tv interface{}) bool {
			runs = append(runs, mutualinfo.InstructionRun{TestcaseID: tk.(uint64), Offsets: tv.([]uint64)})
			return true
		})
		out[instr] = runs
		return true
	})
	return out
}
