// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutualinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WriteTraceReport writes mutual_information.txt (§6): one line per
// reporting point, in the whole-trace or trace-prefix format
// "Mutual information after L entries: X.XXX bits".
func WriteTraceReport(dir string, points []PrefixPoint) error {
	f, err := os.Create(filepath.Join(dir, "mutual_information.txt"))
	if err != nil {
		return fmt.Errorf("mutualinfo: creating mutual_information.txt: %w", err)
	}
	defer f.Close()
	for _, p := range points {
		if _, err := fmt.Fprintf(f, "Mutual information after %d entries: %.3f bits\n", p.Depth, p.Bits); err != nil {
			return err
		}
	}
	return nil
}

// WriteWholeTraceReport writes mutual_information.txt for the
// whole-trace analyzer, which has exactly one reporting point covering
// the entire post-prefix entry sequence.
func WriteWholeTraceReport(dir string, depth int, result WholeTraceResult) error {
	return WriteTraceReport(dir, []PrefixPoint{{Depth: depth, Bits: result.Bits, Warning: result.Warning}})
}

// WriteInstructionReport writes mutual_information_instructions.txt
// (§6): one line per instruction, sorted descending by bits (largest
// leak first).
func WriteInstructionReport(dir string, results []InstructionResult) error {
	sorted := append([]InstructionResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Bits > sorted[j].Bits })

	f, err := os.Create(filepath.Join(dir, "mutual_information_instructions.txt"))
	if err != nil {
		return fmt.Errorf("mutualinfo: creating mutual_information_instructions.txt: %w", err)
	}
	defer f.Close()
	for _, r := range sorted {
		if _, err := fmt.Fprintf(f, "%#x: %.3f bits\n", r.InstrRelativeAddr, r.Bits); err != nil {
			return err
		}
	}
	return nil
}
