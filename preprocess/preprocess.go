// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package preprocess converts raw trace records (rawtrace) into the
// address-normalized preprocessed entry stream (tracefmt), resolving
// every memory access to an image, heap allocation, or stack frame.
//
// Processing is fail-soft per §7: an unresolvable or malformed record
// is logged and dropped, never aborting the rest of the trace.
package preprocess

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tracewalker/sidescan/heaptrack"
	"github.com/tracewalker/sidescan/imagemap"
	"github.com/tracewalker/sidescan/rawtrace"
	"github.com/tracewalker/sidescan/stacktrack"
	"github.com/tracewalker/sidescan/tracefmt"
)

// DroppedCounts tallies records skipped for each reason, surfaced to
// callers as the "final per-file count of dropped records" that §7
// requires.
type DroppedCounts struct {
	UnresolvedInstruction int
	UnresolvedMemory      int
	UnresolvedStackFrame  int
	AllocationAnomaly     int
	BadBranchKind         int
}

func (d DroppedCounts) Total() int {
	return d.UnresolvedInstruction + d.UnresolvedMemory + d.UnresolvedStackFrame + d.AllocationAnomaly + d.BadBranchKind
}

// Result is the outcome of processing one raw trace file.
type Result struct {
	Heap    *heaptrack.Tracker // this trace's own live-allocation table
	Dropped DroppedCounts
}

// Processor runs the rules in §4.5 over one raw trace file's records.
type Processor struct {
	images *imagemap.Map
	prefix *tracefmt.Prefix // nil while building the prefix itself
	log    logrus.FieldLogger

	// live stack-pointer bounds, taken from the prefix or from
	// StackPointerInfo records.
	spMin, spMax uint64

	// mutable prefix-construction state; only used when prefix == nil.
	nextHeapID  int
	nextStackID int

	initialFrames []stacktrack.Frame
}

// New returns a processor for a non-prefix trace that extends prefix.
func New(images *imagemap.Map, prefix *tracefmt.Prefix, log logrus.FieldLogger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{images: images, prefix: prefix, log: log}
}

// NewPrefixBuilder returns a processor that builds the shared prefix
// from the first ("dummy") testcase's raw trace.
func NewPrefixBuilder(images *imagemap.Map, log logrus.FieldLogger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{images: images, log: log}
}

// Process walks records in order, emitting preprocessed entries to
// emit. isPrefix must match how the Processor was constructed.
func (p *Processor) Process(f *rawtrace.File, isPrefix bool, emit func(tracefmt.Entry) error) (Result, error) {
	isBuildingPrefix := p.prefix == nil
	if isPrefix != isBuildingPrefix {
		return Result{}, fmt.Errorf("preprocess: isPrefix=%v does not match processor construction", isPrefix)
	}

	heap := heaptrack.New()
	stack := p.newStackTracker()
	if p.prefix != nil {
		p.spMin, p.spMax = p.prefix.SPMin, p.prefix.SPMax
	}

	var sizeStack []uint64
	var lastAllocReturnAddr uint64
	var sawSizeSinceLastAlloc bool
	var dropped DroppedCounts

	traceHeapAllocs := 0
	nextHeapID := func() int {
		if p.prefix != nil {
			id := p.prefix.LastHeapID + 1 + traceHeapAllocs
			traceHeapAllocs++
			return id
		}
		id := p.nextHeapID
		p.nextHeapID++
		return id
	}

	for i := 0; i < f.Len(); i++ {
		rec := f.Record(i)
		switch rec.RecordType {
		case rawtrace.HeapAllocSizeParameter:
			sizeStack = append(sizeStack, rec.P1)
			sawSizeSinceLastAlloc = true

		case rawtrace.HeapAllocAddressReturn:
			if rec.P2 == lastAllocReturnAddr && !sawSizeSinceLastAlloc {
				continue // double-return of the same allocator frame
			}
			if len(sizeStack) == 0 {
				p.log.WithField("address", fmtHex(rec.P2)).Warn("preprocess: heap-alloc return with no pending size")
				dropped.AllocationAnomaly++
				continue
			}
			size := sizeStack[len(sizeStack)-1]
			sizeStack = sizeStack[:len(sizeStack)-1]
			id := nextHeapID()
			alloc := heaptrack.Allocation{ID: id, Base: rec.P2, Size: size}
			heap.Insert(alloc)
			if err := emit(tracefmt.HeapAlloc{ID: id, Size: size, Address: rec.P2}); err != nil {
				return Result{}, err
			}
			lastAllocReturnAddr = rec.P2
			sawSizeSinceLastAlloc = false

		case rawtrace.HeapFreeAddressParameter:
			if rec.P2 == 0 {
				continue
			}
			alloc, ok := heap.ByBase(rec.P2)
			if !ok {
				p.log.WithField("address", fmtHex(rec.P2)).Warn("preprocess: free of unknown allocation")
				dropped.AllocationAnomaly++
				continue
			}
			heap.Remove(rec.P2)
			if err := emit(tracefmt.HeapFree{ID: alloc.ID}); err != nil {
				return Result{}, err
			}

		case rawtrace.StackPointerInfo:
			p.spMin, p.spMax = rec.P1, rec.P2
			// Rebuild the tracker so a first frame is sized against the
			// new upper bound, keeping its live frames and id sequence.
			rebuilt := stacktrack.New(p.spMax)
			rebuilt.SeedNextID(stack.NextID())
			rebuilt.SeedFrames(stack.Frames())
			stack = rebuilt

		case rawtrace.StackPointerModification:
			sp := rec.P2
			alloc, pushed := stack.Apply(sp)
			if !pushed {
				continue
			}
			instrImgID, _, ok := p.images.Find(rec.P1)
			if !ok {
				p.log.WithField("instr", fmtHex(rec.P1)).Warn("preprocess: stack alloc instruction not in any image")
				dropped.UnresolvedInstruction++
				continue
			}
			if err := emit(tracefmt.StackAlloc{
				ID:                alloc.ID,
				InstrImageID:      instrImgID,
				InstrRelativeAddr: rec.P1 - mustImageStart(p.images, instrImgID),
				Size:              alloc.Size,
				Address:           alloc.Base,
			}); err != nil {
				return Result{}, err
			}

		case rawtrace.Branch:
			if isBuildingPrefix {
				continue
			}
			srcID, srcImg, srcOK := p.images.Find(rec.P1)
			dstID, dstImg, dstOK := p.images.Find(rec.P2)
			if !srcOK || !dstOK {
				p.log.Warn("preprocess: branch endpoint not in any image")
				dropped.UnresolvedInstruction++
				continue
			}
			if !srcImg.Interesting && !dstImg.Interesting {
				continue
			}
			kind := toTraceKind(rec.BranchKind())
			if kind == 0 {
				p.log.WithField("flag", rec.Flag).Warn("preprocess: branch with unrecognized kind")
				dropped.BadBranchKind++
				continue
			}
			if err := emit(tracefmt.Branch{
				SourceImageID:      srcID,
				SourceRelativeAddr: rec.P1 - srcImg.Start,
				DestImageID:        dstID,
				DestRelativeAddr:   rec.P2 - dstImg.Start,
				Taken:              rec.Taken(),
				Kind:               kind,
			}); err != nil {
				return Result{}, err
			}

		case rawtrace.MemoryRead, rawtrace.MemoryWrite:
			if isBuildingPrefix {
				continue
			}
			instrID, instrImg, ok := p.images.Find(rec.P1)
			if !ok || !instrImg.Interesting {
				if !ok {
					p.log.WithField("instr", fmtHex(rec.P1)).Warn("preprocess: memory access instruction not in any image")
					dropped.UnresolvedInstruction++
				}
				continue
			}
			isWrite := rec.RecordType == rawtrace.MemoryWrite
			size := uint32(rec.Size0)
			target := rec.P2

			entry, err := p.classifyAccess(isWrite, size, instrID, rec.P1-instrImg.Start, target, stack, heap, &dropped)
			if err != nil {
				return Result{}, err
			}
			if entry == nil {
				continue
			}
			if err := emit(entry); err != nil {
				return Result{}, err
			}
		}
	}

	if isBuildingPrefix {
		p.initialFrames = stack.Frames()
		p.nextStackID = stack.NextID()
	}

	return Result{Heap: heap, Dropped: dropped}, nil
}

func (p *Processor) newStackTracker() *stacktrack.Tracker {
	if p.prefix != nil {
		return p.prefix.NewStackTracker()
	}
	return stacktrack.New(p.spMax)
}

// classifyAccess implements §4.5's three-way memory-target
// classification: stack, image, or heap (trace-local then prefix).
func (p *Processor) classifyAccess(isWrite bool, size uint32, instrImgID int, instrRel uint64, target uint64, stack *stacktrack.Tracker, heap *heaptrack.Tracker, dropped *DroppedCounts) (tracefmt.Entry, error) {
	if target >= p.spMin && target <= p.spMax {
		f, ok := stack.FindContaining(target)
		if !ok {
			p.log.WithField("address", fmtHex(target)).Warn("preprocess: stack access maps to no live frame")
			dropped.UnresolvedStackFrame++
			return nil, nil
		}
		return tracefmt.StackMemoryAccess{
			IsWrite: isWrite, Size: size, InstrImageID: instrImgID, InstrRelativeAddr: instrRel,
			StackID: f.ID, RelativeAddr: target - f.Base,
		}, nil
	}

	if memID, memImg, ok := p.images.Find(target); ok {
		return tracefmt.ImageMemoryAccess{
			IsWrite: isWrite, Size: size, InstrImageID: instrImgID, InstrRelativeAddr: instrRel,
			MemImageID: memID, MemRelativeAddr: target - memImg.Start,
		}, nil
	}

	if alloc, ok := heap.FindContaining(target); ok {
		return tracefmt.HeapMemoryAccess{
			IsWrite: isWrite, Size: size, InstrImageID: instrImgID, InstrRelativeAddr: instrRel,
			HeapID: alloc.ID, RelativeAddr: target - alloc.Base,
		}, nil
	}
	if p.prefix != nil {
		if alloc, ok := p.prefix.InitialHeap.FindContaining(target); ok {
			return tracefmt.HeapMemoryAccess{
				IsWrite: isWrite, Size: size, InstrImageID: instrImgID, InstrRelativeAddr: instrRel,
				HeapID: alloc.ID, RelativeAddr: target - alloc.Base,
			}, nil
		}
	}

	p.log.WithField("address", fmtHex(target)).Warn("preprocess: memory access resolves to no image, heap, or stack")
	dropped.UnresolvedMemory++
	return nil, nil
}

func toTraceKind(k rawtrace.BranchKind) tracefmt.BranchKind {
	switch k {
	case rawtrace.Jump:
		return tracefmt.Jump
	case rawtrace.Call:
		return tracefmt.Call
	case rawtrace.Return:
		return tracefmt.Return
	default:
		return 0
	}
}

func mustImageStart(m *imagemap.Map, id int) uint64 {
	img, _ := m.ByID(id)
	return img.Start
}

func fmtHex(v uint64) string {
	return fmt.Sprintf("%#x", v)
}

// BuiltPrefix assembles the shared Prefix state after Process has run
// over the dummy testcase's raw trace. Call only on a prefix-builder
// Processor, after Process returns.
func (p *Processor) BuiltPrefix(heap *heaptrack.Tracker) *tracefmt.Prefix {
	return &tracefmt.Prefix{
		Images:        p.images,
		InitialHeap:   heap,
		InitialFrames: p.initialFrames,
		LastHeapID:    p.nextHeapID - 1,
		LastStackID:   p.nextStackID - 1,
		SPMin:         p.spMin,
		SPMax:         p.spMax,
	}
}
