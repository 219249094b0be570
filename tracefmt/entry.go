// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracefmt defines the preprocessed trace entry stream: a
// tagged sum-of-variants model with a stable binary encoding. It is the
// output format of the preprocessor (§4.5) and the input format of the
// comparator (§4.7) and encoder (§4.8).
package tracefmt

import "fmt"

// Tag identifies the concrete type of an Entry, and doubles as the
// first byte of its binary encoding.
type Tag uint8

const (
	TagHeapAlloc Tag = iota + 1
	TagHeapFree
	TagStackAlloc
	TagBranch
	TagImageMemoryAccess
	TagHeapMemoryAccess
	TagStackMemoryAccess
)

func (t Tag) String() string {
	switch t {
	case TagHeapAlloc:
		return "HeapAlloc"
	case TagHeapFree:
		return "HeapFree"
	case TagStackAlloc:
		return "StackAlloc"
	case TagBranch:
		return "Branch"
	case TagImageMemoryAccess:
		return "ImageMemoryAccess"
	case TagHeapMemoryAccess:
		return "HeapMemoryAccess"
	case TagStackMemoryAccess:
		return "StackMemoryAccess"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// BranchKind mirrors rawtrace.BranchKind without importing it, so that
// tracefmt has no dependency on the raw wire format.
type BranchKind uint8

const (
	Jump BranchKind = iota + 1
	Call
	Return
)

// Entry is implemented by every preprocessed trace entry variant.
type Entry interface {
	Tag() Tag
}

type HeapAlloc struct {
	ID      int
	Size    uint64
	Address uint64
}

func (HeapAlloc) Tag() Tag { return TagHeapAlloc }

type HeapFree struct {
	ID int
}

func (HeapFree) Tag() Tag { return TagHeapFree }

type StackAlloc struct {
	ID                int
	InstrImageID      int
	InstrRelativeAddr uint64
	Size              uint64
	Address           uint64
}

func (StackAlloc) Tag() Tag { return TagStackAlloc }

type Branch struct {
	SourceImageID      int
	SourceRelativeAddr uint64
	DestImageID        int
	DestRelativeAddr   uint64
	Taken              bool
	Kind               BranchKind
}

func (Branch) Tag() Tag { return TagBranch }

type ImageMemoryAccess struct {
	IsWrite           bool
	Size              uint32
	InstrImageID      int
	InstrRelativeAddr uint64
	MemImageID        int
	MemRelativeAddr   uint64
}

func (ImageMemoryAccess) Tag() Tag { return TagImageMemoryAccess }

type HeapMemoryAccess struct {
	IsWrite           bool
	Size              uint32
	InstrImageID      int
	InstrRelativeAddr uint64
	HeapID            int
	RelativeAddr      uint64
}

func (HeapMemoryAccess) Tag() Tag { return TagHeapMemoryAccess }

type StackMemoryAccess struct {
	IsWrite           bool
	Size              uint32
	InstrImageID      int
	InstrRelativeAddr uint64
	StackID           int
	RelativeAddr      uint64
}

func (StackMemoryAccess) Tag() Tag { return TagStackMemoryAccess }
