// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heaptrack

import "testing"

func TestFindContaining(t *testing.T) {
	tr := New()
	tr.Insert(Allocation{ID: 1, Base: 0x1000, Size: 0x10})
	tr.Insert(Allocation{ID: 2, Base: 0x2000, Size: 0x20})

	a, ok := tr.FindContaining(0x1005)
	if !ok || a.ID != 1 {
		t.Fatalf("FindContaining(0x1005) = %+v, %v", a, ok)
	}

	if _, ok := tr.FindContaining(0x1900); ok {
		t.Fatalf("FindContaining(0x1900) unexpectedly found an allocation")
	}

	// Exact upper bound is inclusive.
	if a, ok := tr.FindContaining(0x1010); !ok || a.ID != 1 {
		t.Fatalf("FindContaining(0x1010) = %+v, %v, want id 1", a, ok)
	}
}

func TestZeroSizedAllocationOnlyMatchesBase(t *testing.T) {
	tr := New()
	tr.Insert(Allocation{ID: 1, Base: 0x1000, Size: 0})

	if a, ok := tr.FindContaining(0x1000); !ok || a.ID != 1 {
		t.Fatalf("FindContaining(0x1000) = %+v, %v", a, ok)
	}
	if _, ok := tr.FindContaining(0x1001); ok {
		t.Fatal("FindContaining(0x1001) unexpectedly matched a zero-sized allocation")
	}
}

func TestRemove(t *testing.T) {
	tr := New()
	tr.Insert(Allocation{ID: 1, Base: 0x1000, Size: 0x10})
	tr.Remove(0x1000)
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d after Remove, want 0", tr.Len())
	}
	if _, ok := tr.FindContaining(0x1005); ok {
		t.Fatal("FindContaining found a removed allocation")
	}
}
