// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stacktrack

import "testing"

// TestApplyAndAccess reproduces spec.md scenario 3: stack allocation via
// push, then access.
func TestApplyAndAccess(t *testing.T) {
	tr := New(0x7fff1000) // spMax

	alloc, pushed := tr.Apply(0x7fff0ff0)
	if !pushed {
		t.Fatal("Apply did not push a frame")
	}
	if alloc.Size != 0x10 {
		t.Errorf("Alloc.Size = %#x, want 0x10", alloc.Size)
	}
	if alloc.Base != 0x7fff0ff0 {
		t.Errorf("Alloc.Base = %#x, want 0x7fff0ff0", alloc.Base)
	}

	f, ok := tr.FindContaining(0x7fff0ff4)
	if !ok || f.ID != alloc.ID {
		t.Fatalf("FindContaining(0x7fff0ff4) = %+v, %v, want frame %d", f, ok, alloc.ID)
	}
}

func TestNestedFrames(t *testing.T) {
	tr := New(0x400)
	a0, _ := tr.Apply(0x300) // oldest frame: [0x300, 0x400)
	a1, _ := tr.Apply(0x200) // [0x200, 0x300)
	a2, _ := tr.Apply(0x100) // top: [0x100, 0x200)

	cases := []struct {
		addr uint64
		want int
	}{
		{0x350, a0.ID},
		{0x250, a1.ID},
		{0x150, a2.ID},
		{0x100, a2.ID},
	}
	for _, c := range cases {
		f, ok := tr.FindContaining(c.addr)
		if !ok || f.ID != c.want {
			t.Errorf("FindContaining(%#x) = %+v, %v, want frame %d", c.addr, f, ok, c.want)
		}
	}

	if _, ok := tr.FindContaining(0x50); ok {
		t.Error("FindContaining below the live stack unexpectedly succeeded")
	}
}

func TestPopOnRisingStackPointer(t *testing.T) {
	tr := New(0x400)
	tr.Apply(0x200)
	tr.Apply(0x100)
	// Returning: sp rises back above the inner frame's base.
	if _, pushed := tr.Apply(0x200); pushed {
		t.Error("Apply unexpectedly pushed a new frame on a rising stack pointer")
	}
	if len(tr.Frames()) != 1 {
		t.Errorf("len(Frames()) = %d, want 1 after popping the inner frame", len(tr.Frames()))
	}
}
