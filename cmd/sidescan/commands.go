// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracewalker/sidescan/sidescan"
)

func newPreprocessCommand(opts *commonOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess <dummy-trace> <trace>...",
		Short: "Run preprocessing only, with no comparison or MI analysis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, sidescan.None, args)
		},
	}
}

func newCompareCommand(opts *commonOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <dummy-trace> <reference-trace> <trace>...",
		Short: "Compare every trace after the reference against it, writing mismatch files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, sidescan.Compare, args)
		},
	}
}

func newAnalyzeCommand(opts *commonOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "analyze <dummy-trace> <trace>...",
		Short: "Estimate mutual information between secret data and execution",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysisMode, err := parseAnalysisMode(mode)
			if err != nil {
				return err
			}
			return runPipeline(opts, analysisMode, args)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "whole-trace", "analysis mode: whole-trace, trace-prefix, or per-instruction")
	cmd.Flags().Uint32Var(&opts.randomization, "randomization", 1, "number of replicate submissions per underlying testcase (per-instruction mode only)")

	return cmd
}

func parseAnalysisMode(s string) (sidescan.AnalysisMode, error) {
	switch s {
	case "whole-trace":
		return sidescan.MIWholeTrace, nil
	case "trace-prefix":
		return sidescan.MITracePrefix, nil
	case "per-instruction":
		return sidescan.MISingleInstruction, nil
	default:
		return sidescan.None, fmt.Errorf("sidescan: unknown --mode %q (want whole-trace, trace-prefix, or per-instruction)", s)
	}
}
