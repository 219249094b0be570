// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Codec encodes and decodes Entry values to the on-disk format described
// in §4.6: a 1-byte tag followed by fixed-width little-endian fields,
// grounded in the tag-dispatch binary record readers used throughout
// the pack (e.g. the HPROF heap-dump parsers) rather than a reflection-
// or gob-based codec.
type Codec struct{}

// Encode writes one entry to w.
func (Codec) Encode(w io.Writer, e Entry) error {
	if err := writeU8(w, uint8(e.Tag())); err != nil {
		return err
	}
	switch v := e.(type) {
	case HeapAlloc:
		return writeFields(w, u32(v.ID), v.Size, v.Address)
	case HeapFree:
		return writeFields(w, u32(v.ID))
	case StackAlloc:
		return writeFields(w, u32(v.ID), u32(v.InstrImageID), v.InstrRelativeAddr, v.Size, v.Address)
	case Branch:
		if err := writeFields(w, u32(v.SourceImageID), v.SourceRelativeAddr, u32(v.DestImageID), v.DestRelativeAddr); err != nil {
			return err
		}
		return writeFields(w, boolByte(v.Taken), uint8(v.Kind))
	case ImageMemoryAccess:
		if err := writeFields(w, boolByte(v.IsWrite), v.Size, u32(v.InstrImageID)); err != nil {
			return err
		}
		return writeFields(w, v.InstrRelativeAddr, u32(v.MemImageID), v.MemRelativeAddr)
	case HeapMemoryAccess:
		if err := writeFields(w, boolByte(v.IsWrite), v.Size, u32(v.InstrImageID)); err != nil {
			return err
		}
		return writeFields(w, v.InstrRelativeAddr, u32(v.HeapID), v.RelativeAddr)
	case StackMemoryAccess:
		if err := writeFields(w, boolByte(v.IsWrite), v.Size, u32(v.InstrImageID)); err != nil {
			return err
		}
		return writeFields(w, v.InstrRelativeAddr, u32(v.StackID), v.RelativeAddr)
	default:
		return fmt.Errorf("tracefmt: unknown entry type %T", e)
	}
}

// Decode reads one entry from r. io.EOF is returned (unwrapped) when r
// is exhausted before a tag byte is read.
func (Codec) Decode(r io.Reader) (Entry, error) {
	tagByte, err := readU8(r)
	if err != nil {
		return nil, err // may be io.EOF; caller checks with errors.Is
	}
	tag := Tag(tagByte)
	switch tag {
	case TagHeapAlloc:
		var id uint32
		var size, addr uint64
		if err := readFields(r, &id, &size, &addr); err != nil {
			return nil, err
		}
		return HeapAlloc{ID: int(id), Size: size, Address: addr}, nil
	case TagHeapFree:
		var id uint32
		if err := readFields(r, &id); err != nil {
			return nil, err
		}
		return HeapFree{ID: int(id)}, nil
	case TagStackAlloc:
		var id, instrImg uint32
		var instrRel, size, addr uint64
		if err := readFields(r, &id, &instrImg, &instrRel, &size, &addr); err != nil {
			return nil, err
		}
		return StackAlloc{ID: int(id), InstrImageID: int(instrImg), InstrRelativeAddr: instrRel, Size: size, Address: addr}, nil
	case TagBranch:
		var srcImg, dstImg uint32
		var srcRel, dstRel uint64
		if err := readFields(r, &srcImg, &srcRel, &dstImg, &dstRel); err != nil {
			return nil, err
		}
		var taken, kind uint8
		if err := readFields(r, &taken, &kind); err != nil {
			return nil, err
		}
		return Branch{
			SourceImageID:      int(srcImg),
			SourceRelativeAddr: srcRel,
			DestImageID:        int(dstImg),
			DestRelativeAddr:   dstRel,
			Taken:              taken != 0,
			Kind:               BranchKind(kind),
		}, nil
	case TagImageMemoryAccess:
		a, err := decodeAccess(r)
		if err != nil {
			return nil, err
		}
		return ImageMemoryAccess{IsWrite: a.isWrite, Size: a.size, InstrImageID: a.instrImageID, InstrRelativeAddr: a.instrRel, MemImageID: a.id, MemRelativeAddr: a.rel}, nil
	case TagHeapMemoryAccess:
		a, err := decodeAccess(r)
		if err != nil {
			return nil, err
		}
		return HeapMemoryAccess{IsWrite: a.isWrite, Size: a.size, InstrImageID: a.instrImageID, InstrRelativeAddr: a.instrRel, HeapID: a.id, RelativeAddr: a.rel}, nil
	case TagStackMemoryAccess:
		a, err := decodeAccess(r)
		if err != nil {
			return nil, err
		}
		return StackMemoryAccess{IsWrite: a.isWrite, Size: a.size, InstrImageID: a.instrImageID, InstrRelativeAddr: a.instrRel, StackID: a.id, RelativeAddr: a.rel}, nil
	default:
		return nil, fmt.Errorf("tracefmt: unknown tag %d", tagByte)
	}
}

type accessFields struct {
	isWrite      bool
	size         uint32
	instrImageID int
	instrRel     uint64
	id           int
	rel          uint64
}

func decodeAccess(r io.Reader) (accessFields, error) {
	var isWrite uint8
	var size, instrImg uint32
	if err := readFields(r, &isWrite, &size, &instrImg); err != nil {
		return accessFields{}, err
	}
	var instrRel uint64
	var id uint32
	var rel uint64
	if err := readFields(r, &instrRel, &id, &rel); err != nil {
		return accessFields{}, err
	}
	return accessFields{
		isWrite:      isWrite != 0,
		size:         size,
		instrImageID: int(instrImg),
		instrRel:     instrRel,
		id:           int(id),
		rel:          rel,
	}, nil
}

func u32(v int) uint32 { return uint32(v) }

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// writeFields writes each argument in little-endian order. Every field
// is a fixed-width unsigned integer or bool-as-byte, so binary.Write
// never has to reflect over anything but scalars.
func writeFields(w io.Writer, fields ...interface{}) error {
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func readFields(r io.Reader, fields ...interface{}) error {
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}
