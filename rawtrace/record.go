// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rawtrace reads the fixed-width binary record stream produced
// by the (out-of-scope) tracing frontend.
package rawtrace

import "fmt"

// RecordSize is the on-disk size of a single Record, in bytes.
const RecordSize = 24

// Type identifies the kind of event a Record carries.
type Type uint32

const (
	MemoryRead               Type = 1
	MemoryWrite              Type = 2
	HeapAllocSizeParameter   Type = 3
	HeapAllocAddressReturn   Type = 4
	HeapFreeAddressParameter Type = 5
	Branch                   Type = 6
	StackPointerInfo         Type = 7
	StackPointerModification Type = 8
)

func (t Type) String() string {
	switch t {
	case MemoryRead:
		return "MemoryRead"
	case MemoryWrite:
		return "MemoryWrite"
	case HeapAllocSizeParameter:
		return "HeapAllocSizeParameter"
	case HeapAllocAddressReturn:
		return "HeapAllocAddressReturn"
	case HeapFreeAddressParameter:
		return "HeapFreeAddressParameter"
	case Branch:
		return "Branch"
	case StackPointerInfo:
		return "StackPointerInfo"
	case StackPointerModification:
		return "StackPointerModification"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// BranchKind distinguishes the three kinds of control-flow transfer a
// Branch record can carry, taken from bits 1-2 of its flag byte.
type BranchKind uint8

const (
	BranchKindNone BranchKind = iota
	Jump
	Call
	Return
)

func (k BranchKind) String() string {
	switch k {
	case Jump:
		return "Jump"
	case Call:
		return "Call"
	case Return:
		return "Return"
	default:
		return "None"
	}
}

// StackOpKind distinguishes the reason a StackPointerModification record
// was emitted, taken from bits 0-1 of its flag byte.
type StackOpKind uint8

const (
	StackOpNone StackOpKind = iota
	StackOpCall
	StackOpReturn
	StackOpOther
)

// Record is the 24-byte little-endian struct emitted by the tracing
// frontend for every traced event. Field layout matches the wire format
// exactly: type:u32, flag:u8, pad:u8, size0:u16, p1:u64, p2:u64.
type Record struct {
	RecordType Type
	Flag       uint8
	pad        uint8
	Size0      uint16
	P1         uint64
	P2         uint64
}

// Taken reports the taken bit (bit 0) of a Branch record's flag.
func (r Record) Taken() bool {
	return r.Flag&1 != 0
}

// BranchKind extracts bits 1-2 of a Branch record's flag.
func (r Record) BranchKind() BranchKind {
	return BranchKind((r.Flag >> 1) & 3)
}

// StackOpKind extracts bits 0-1 of a StackPointerModification record's flag.
func (r Record) StackOpKind() StackOpKind {
	return StackOpKind(r.Flag & 3)
}
