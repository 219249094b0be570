// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package traceenc compresses preprocessed trace entries into 64-bit
// integers for fast hashing and diffing (§4.8). The encoding is
// intentionally lossy: upper bits can collide, but it is sufficient for
// collision-resistant equality over realistic per-trace sequences.
package traceenc

import "github.com/tracewalker/sidescan/tracefmt"

// Encode maps one entry to a 64-bit value whose low 4 bits are the
// entry's tag. granularity masks off its low log2(granularity) bits
// from a memory access entry's accessed address before packing, the
// same alignment compare.Compare applies before comparing (§6): a
// granularity of 1 leaves addresses untouched.
func Encode(e tracefmt.Entry, granularity uint64) uint64 {
	tag := uint64(e.Tag())
	switch v := e.(type) {
	case tracefmt.HeapAlloc:
		return tag | v.Size<<4
	case tracefmt.HeapFree:
		return tag
	case tracefmt.StackAlloc:
		return tag | v.InstrRelativeAddr<<4 | v.Size<<32
	case tracefmt.Branch:
		taken := uint64(0)
		if v.Taken {
			taken = 1
		}
		return tag | v.SourceRelativeAddr<<4 | v.DestRelativeAddr<<32 | taken<<63
	case tracefmt.ImageMemoryAccess:
		return tag | v.InstrRelativeAddr<<4 | mask(v.MemRelativeAddr, granularity)<<32
	case tracefmt.HeapMemoryAccess:
		return tag | v.InstrRelativeAddr<<4 | mask(v.RelativeAddr, granularity)<<32
	case tracefmt.StackMemoryAccess:
		return tag | v.InstrRelativeAddr<<4 | mask(v.RelativeAddr, granularity)<<32
	default:
		return tag
	}
}

// mask aligns addr down to granularity, matching compare.Compare's
// masking so the compare and hash paths agree on granularity (§6).
func mask(addr, granularity uint64) uint64 {
	if granularity <= 1 {
		return addr
	}
	return addr &^ (granularity - 1)
}

// Tag recovers the low 4 bits of an encoded value, matching the tag of
// the entry it was derived from.
func Tag(encoded uint64) tracefmt.Tag {
	return tracefmt.Tag(encoded & 0xF)
}
