// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compare

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tracewalker/sidescan/tracefmt"
)

func TestMismatchWriterAppendsAndNames(t *testing.T) {
	dir := t.TempDir()
	w := NewMismatchWriter(dir)
	defer w.Close()

	r := Result{
		Class:  DifferentAllocationSize,
		Line:   3,
		Entry1: tracefmt.HeapAlloc{ID: 1, Size: 8, Address: 0x1000},
		Entry2: tracefmt.HeapAlloc{ID: 1, Size: 16, Address: 0x1000},
	}
	if err := w.Append(10, 11, r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	w.Close()

	name := filepath.Join(dir, "mismatch_DifferentAllocationSize_3.txt")
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	line := strings.TrimSpace(string(data))
	fields := strings.Fields(line)
	if len(fields) != 4 {
		t.Fatalf("line %q: want 4 fields, got %d", line, len(fields))
	}
	if fields[0] != "10" || fields[1] != "11" {
		t.Errorf("testcase ids = %s,%s, want 10,11", fields[0], fields[1])
	}
}

func TestMismatchWriterSkipsMatch(t *testing.T) {
	dir := t.TempDir()
	w := NewMismatchWriter(dir)
	defer w.Close()

	if err := w.Append(1, 2, Result{Class: Match}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files written for a Match result, got %v", entries)
	}
}
