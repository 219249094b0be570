// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutualinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTraceReportFormat(t *testing.T) {
	dir := t.TempDir()
	points := []PrefixPoint{
		{Depth: 1, Bits: 0},
		{Depth: 5, Bits: 1.5849625007211562},
	}
	if err := WriteTraceReport(dir, points); err != nil {
		t.Fatalf("WriteTraceReport: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "mutual_information.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := []string{
		"Mutual information after 1 entries: 0.000 bits",
		"Mutual information after 5 entries: 1.585 bits",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteInstructionReportSortsDescending(t *testing.T) {
	dir := t.TempDir()
	results := []InstructionResult{
		{InstrRelativeAddr: 0x10, Bits: 0.5},
		{InstrRelativeAddr: 0x20, Bits: 2.0},
		{InstrRelativeAddr: 0x30, Bits: 1.0},
	}
	if err := WriteInstructionReport(dir, results); err != nil {
		t.Fatalf("WriteInstructionReport: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "mutual_information_instructions.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "0x20:") || !strings.HasPrefix(lines[1], "0x30:") || !strings.HasPrefix(lines[2], "0x10:") {
		t.Errorf("lines not sorted descending by bits: %v", lines)
	}
}
