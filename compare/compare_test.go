// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compare

import (
	"testing"

	"github.com/tracewalker/sidescan/tracefmt"
)

func sampleTrace(taken bool) []tracefmt.Entry {
	entries := make([]tracefmt.Entry, 0, 8)
	for i := 0; i < 6; i++ {
		entries = append(entries, tracefmt.ImageMemoryAccess{
			IsWrite: false, Size: 4, InstrImageID: 0, InstrRelativeAddr: uint64(i), MemImageID: 0, MemRelativeAddr: uint64(i * 4),
		})
	}
	entries = append(entries, tracefmt.Branch{
		SourceImageID: 0, SourceRelativeAddr: 0x10, DestImageID: 0, DestRelativeAddr: 0x20, Taken: taken, Kind: tracefmt.Call,
	})
	return entries
}

// TestDivergentBranchTaken reproduces spec.md scenario 4.
func TestDivergentBranchTaken(t *testing.T) {
	t1 := sampleTrace(true)
	t2 := sampleTrace(false)

	r := Compare(t1, t2, 1)
	if r.Class != BranchTakenIn1 {
		t.Fatalf("Class = %v, want BranchTakenIn1", r.Class)
	}
	if r.Line != 7 {
		t.Fatalf("Line = %d, want 7", r.Line)
	}
}

// TestIdempotence checks Compare(A, A) == Match for several entry kinds.
func TestIdempotence(t *testing.T) {
	a := sampleTrace(true)
	r := Compare(a, a, 1)
	if r.Class != Match {
		t.Fatalf("Compare(A, A) = %v, want Match", r.Class)
	}
}

func TestDifferentAllocationSize(t *testing.T) {
	a := []tracefmt.Entry{tracefmt.HeapAlloc{ID: 1, Size: 16, Address: 0x1000}}
	b := []tracefmt.Entry{tracefmt.HeapAlloc{ID: 1, Size: 32, Address: 0x1000}}
	r := Compare(a, b, 1)
	if r.Class != DifferentAllocationSize {
		t.Fatalf("Class = %v, want DifferentAllocationSize", r.Class)
	}
}

func TestFreedBlockNotMatching(t *testing.T) {
	a := []tracefmt.Entry{
		tracefmt.HeapAlloc{ID: 1, Size: 16, Address: 0x1000},
		tracefmt.HeapFree{ID: 1},
	}
	b := []tracefmt.Entry{
		tracefmt.HeapAlloc{ID: 1, Size: 16, Address: 0x2000},
		tracefmt.HeapFree{ID: 1},
	}
	r := Compare(a, b, 1)
	if r.Class != FreedBlockNotMatching {
		t.Fatalf("Class = %v, want FreedBlockNotMatching", r.Class)
	}
}

func TestGranularityMasking(t *testing.T) {
	a := []tracefmt.Entry{tracefmt.HeapMemoryAccess{IsWrite: false, Size: 1, HeapID: 1, RelativeAddr: 0x10}}
	b := []tracefmt.Entry{tracefmt.HeapMemoryAccess{IsWrite: false, Size: 1, HeapID: 1, RelativeAddr: 0x13}}

	if r := Compare(a, b, 16); r.Class != Match {
		t.Fatalf("Compare with granularity 16 = %v, want Match (same aligned block)", r.Class)
	}
	// Granularity 1 must equal unmasked behavior.
	if r := Compare(a, b, 1); r.Class != DifferentHeapMemoryReadOffset {
		t.Fatalf("Compare with granularity 1 = %v, want DifferentHeapMemoryReadOffset", r.Class)
	}
}
