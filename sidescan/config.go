// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sidescan holds the root configuration shared by the pipeline
// runtime and its CLI entrypoint (§6).
package sidescan

import "fmt"

// AnalysisMode selects what the pipeline does with each preprocessed
// trace once it reaches the sink stage (§6).
type AnalysisMode int

const (
	// None runs only preprocessing; no comparison or MI analysis.
	None AnalysisMode = iota
	// Compare runs pairwise comparison against the prefix-adjacent
	// reference trace.
	Compare
	// MIWholeTrace runs the whole-trace mutual information analyzer.
	MIWholeTrace
	// MITracePrefix runs the trace-prefix-length mutual information
	// analyzer.
	MITracePrefix
	// MISingleInstruction runs the per-instruction mutual information
	// analyzer.
	MISingleInstruction
)

func (m AnalysisMode) String() string {
	switch m {
	case None:
		return "None"
	case Compare:
		return "Compare"
	case MIWholeTrace:
		return "MI_WholeTrace"
	case MITracePrefix:
		return "MI_TracePrefix"
	case MISingleInstruction:
		return "MI_SingleInstruction"
	default:
		return fmt.Sprintf("AnalysisMode(%d)", int(m))
	}
}

// Config holds every pipeline-wide configuration option named in §6, all
// with documented defaults.
type Config struct {
	AnalysisMode AnalysisMode

	// Granularity must be a power of two; memory-access addresses are
	// masked to this alignment before comparison or hashing.
	Granularity uint32

	KeepRawTraces          bool
	KeepPreprocessedTraces bool

	// RandomizationMultiplier is the duplicate count per testcase used
	// by the per-instruction MI analyzer's replication formula. Must be
	// at least 1.
	RandomizationMultiplier uint32

	OutputDirectory            string
	PreprocessedTraceDirectory string
}

// DefaultConfig returns the configuration a bare pipeline runs with: no
// analysis beyond preprocessing, byte-granular comparison, no
// replication, and raw/intermediate traces discarded as soon as they're
// consumed.
func DefaultConfig() Config {
	return Config{
		AnalysisMode:               None,
		Granularity:                1,
		KeepRawTraces:              false,
		KeepPreprocessedTraces:     false,
		RandomizationMultiplier:    1,
		OutputDirectory:            "./sidescan-output",
		PreprocessedTraceDirectory: "./sidescan-output/preprocessed",
	}
}

// Validate checks the malformed-input conditions §7 calls fatal: a
// non-power-of-two granularity, or a randomization multiplier of 0.
func (c Config) Validate() error {
	if c.Granularity == 0 || c.Granularity&(c.Granularity-1) != 0 {
		return fmt.Errorf("sidescan: granularity %d is not a power of two", c.Granularity)
	}
	if c.RandomizationMultiplier == 0 {
		return fmt.Errorf("sidescan: randomization multiplier must be at least 1")
	}
	return nil
}
