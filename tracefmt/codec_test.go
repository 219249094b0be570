// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"bytes"
	"reflect"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	entries := []Entry{
		HeapAlloc{ID: 3, Size: 64, Address: 0x800000},
		HeapFree{ID: 3},
		StackAlloc{ID: 1, InstrImageID: 0, InstrRelativeAddr: 0x300, Size: 0x10, Address: 0x7fff0ff0},
		Branch{SourceImageID: 0, SourceRelativeAddr: 0x10, DestImageID: 0, DestRelativeAddr: 0x40, Taken: true, Kind: Call},
		ImageMemoryAccess{IsWrite: false, Size: 4, InstrImageID: 0, InstrRelativeAddr: 0x100, MemImageID: 0, MemRelativeAddr: 0x500},
		HeapMemoryAccess{IsWrite: true, Size: 1, InstrImageID: 0, InstrRelativeAddr: 0x200, HeapID: 3, RelativeAddr: 0x10},
		StackMemoryAccess{IsWrite: false, Size: 8, InstrImageID: 0, InstrRelativeAddr: 0x304, StackID: 1, RelativeAddr: 0x4},
	}

	var buf bytes.Buffer
	var codec Codec
	for _, e := range entries {
		if err := codec.Encode(&buf, e); err != nil {
			t.Fatalf("Encode(%T): %v", e, err)
		}
	}

	for i, want := range entries {
		got, err := codec.Decode(&buf)
		if err != nil {
			t.Fatalf("Decode entry %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("entry %d: Decode() = %#v, want %#v", i, got, want)
		}
		if got.Tag() != want.Tag() {
			t.Errorf("entry %d: tag mismatch %v != %v", i, got.Tag(), want.Tag())
		}
	}
}
