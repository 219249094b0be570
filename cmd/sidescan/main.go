// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The sidescan tool drives the trace analysis core from the command
// line. It wires the real pipeline against stub out-of-scope
// collaborators (the tracing frontend is treated as already having run
// before invocation; see internal/collaborators.IdentityTracer) the way
// cmd/viewcore is a thin cobra shell around the real gocore package.
//
// Run "sidescan help" for the subcommand table.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &commonOptions{}

	root := &cobra.Command{
		Use:   "sidescan",
		Short: "Analyze raw execution traces for information leakage",
		Long: `sidescan preprocesses raw execution traces, compares them pairwise for
divergence, and estimates mutual information between secret data and
control/data flow.

The first testcase file on the command line is always treated as the
dummy testcase: it builds the shared image/heap/stack prefix and is
excluded from comparison and mutual information analysis, per §4 of
the trace analysis core.`,
	}

	root.PersistentFlags().StringVar(&opts.imagesFile, "images", "", "path to the prefix image map file (required)")
	root.PersistentFlags().StringVar(&opts.outputDir, "output", "./sidescan-output", "directory for result files")
	root.PersistentFlags().Uint32Var(&opts.granularity, "granularity", 1, "memory-access comparison/hashing granularity in bytes (must be a power of two)")
	root.PersistentFlags().BoolVar(&opts.keepRawTraces, "keep-raw-traces", true, "do not delete input trace files after preprocessing")
	root.PersistentFlags().BoolVar(&opts.keepPreprocessed, "keep-preprocessed-traces", false, "create --preprocessed-dir (preprocessed traces are kept in memory only and are not written to it)")
	root.PersistentFlags().StringVar(&opts.preprocessedDir, "preprocessed-dir", "./sidescan-output/preprocessed", "directory created when --keep-preprocessed-traces is set")
	root.MarkPersistentFlagRequired("images")

	root.AddCommand(newPreprocessCommand(opts))
	root.AddCommand(newCompareCommand(opts))
	root.AddCommand(newAnalyzeCommand(opts))

	return root
}

// commonOptions holds the persistent flags every subcommand shares;
// each subcommand additionally sets its own sidescan.Config.AnalysisMode.
type commonOptions struct {
	imagesFile       string
	outputDir        string
	granularity      uint32
	keepRawTraces    bool
	keepPreprocessed bool
	preprocessedDir  string

	randomization uint32
}
