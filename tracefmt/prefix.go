// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tracewalker/sidescan/heaptrack"
	"github.com/tracewalker/sidescan/imagemap"
	"github.com/tracewalker/sidescan/stacktrack"
)

// ImageRecord is the on-disk shape of one row of a prefix file's image
// table header: name_len:u32, name:utf8, interesting:u8.
type ImageRecord struct {
	Name        string
	Interesting bool
}

// WriteImageTable writes the §4.6 prefix-file header: image_count:u32
// followed by each image's {name_len, name, interesting} triple.
func WriteImageTable(w io.Writer, images []imagemap.Image) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(images))); err != nil {
		return err
	}
	for _, img := range images {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(img.Name))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, img.Name); err != nil {
			return err
		}
		interesting := uint8(0)
		if img.Interesting {
			interesting = 1
		}
		if err := binary.Write(w, binary.LittleEndian, interesting); err != nil {
			return err
		}
	}
	return nil
}

// ReadImageTable is the inverse of WriteImageTable. Image ids are
// assigned in header order, matching imagemap.Load's own id assignment.
func ReadImageTable(r io.Reader) ([]ImageRecord, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("tracefmt: reading image count: %w", err)
	}
	out := make([]ImageRecord, count)
	for i := range out {
		var nameLen uint32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("tracefmt: reading image %d name length: %w", i, err)
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("tracefmt: reading image %d name: %w", i, err)
		}
		var interesting uint8
		if err := binary.Read(r, binary.LittleEndian, &interesting); err != nil {
			return nil, fmt.Errorf("tracefmt: reading image %d interesting flag: %w", i, err)
		}
		out[i] = ImageRecord{Name: string(nameBuf), Interesting: interesting != 0}
	}
	return out, nil
}

// Prefix is the shared state derived from the first ("dummy") testcase,
// per §3's TracePrefix. It is immutable once the prefix run completes
// and is conceptually shared, read-only, by every subsequent trace.
type Prefix struct {
	Images        *imagemap.Map
	InitialHeap   *heaptrack.Tracker
	InitialFrames []stacktrack.Frame
	LastHeapID    int
	LastStackID   int
	SPMin, SPMax  uint64
}

// Trace is one testcase's preprocessed entries plus a reference to the
// shared Prefix they extend.
type Trace struct {
	Prefix  *Prefix
	Entries []Entry
	Heap    *heaptrack.Tracker
}

// NewStackTracker returns a stack-frame tracker seeded from the prefix's
// id sequence and stack-pointer bounds, ready to process a testcase's
// own StackPointerModification records.
func (p *Prefix) NewStackTracker() *stacktrack.Tracker {
	t := stacktrack.New(p.SPMax)
	t.SeedNextID(p.LastStackID + 1)
	t.SeedFrames(p.InitialFrames)
	return t
}
