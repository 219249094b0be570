// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imagemap resolves absolute addresses to the loaded image
// (executable or shared library) that contains them.
package imagemap

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Image is a loaded binary occupying a contiguous, inclusive virtual
// address range.
type Image struct {
	ID          int
	Name        string
	Start, End  uint64 // inclusive
	Interesting bool
}

func (im Image) contains(addr uint64) bool {
	return addr >= im.Start && addr <= im.End
}

// Map is an ordered set of loaded image ranges, immutable once loaded.
// Interesting images are ordered first (§4.2's hit-rate optimization);
// load order is preserved within each of the two groups.
type Map struct {
	images []Image
}

// Load parses a prefix data file: one image per line, tab-separated
// "i\tinteresting\tstart_hex\tend_hex\tpath" (§6).
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imagemap: opening %s: %w", path, err)
	}
	defer f.Close()

	var interesting, boring []Image
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := scan.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		img, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("imagemap: %s:%d: %w", path, lineNo, err)
		}
		if img.Interesting {
			interesting = append(interesting, img)
		} else {
			boring = append(boring, img)
		}
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("imagemap: reading %s: %w", path, err)
	}

	m := &Map{images: make([]Image, 0, len(interesting)+len(boring))}
	for _, img := range interesting {
		img.ID = len(m.images)
		m.images = append(m.images, img)
	}
	for _, img := range boring {
		img.ID = len(m.images)
		m.images = append(m.images, img)
	}
	if err := m.checkDisjoint(); err != nil {
		return nil, err
	}
	return m, nil
}

// parseLine parses one prefix-data line in the wire format named in
// §6: a leading literal "i" line-type column, followed by the
// interesting flag, start/end addresses, and path.
func parseLine(line string) (Image, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return Image{}, fmt.Errorf("expected 5 tab-separated fields, got %d", len(fields))
	}
	if lineType := strings.TrimSpace(fields[0]); lineType != "i" {
		return Image{}, fmt.Errorf("expected line-type column %q, got %q", "i", lineType)
	}
	interesting, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 1)
	if err != nil {
		return Image{}, fmt.Errorf("bad interesting flag %q: %w", fields[1], err)
	}
	start, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 16, 64)
	if err != nil {
		return Image{}, fmt.Errorf("bad start address %q: %w", fields[2], err)
	}
	end, err := strconv.ParseUint(strings.TrimSpace(fields[3]), 16, 64)
	if err != nil {
		return Image{}, fmt.Errorf("bad end address %q: %w", fields[3], err)
	}
	return Image{
		Name:        fields[4],
		Start:       start,
		End:         end,
		Interesting: interesting != 0,
	}, nil
}

func (m *Map) checkDisjoint() error {
	for i, a := range m.images {
		for _, b := range m.images[i+1:] {
			if a.Start <= b.End && b.Start <= a.End {
				return fmt.Errorf("imagemap: overlapping image ranges %q [%x,%x] and %q [%x,%x]",
					a.Name, a.Start, a.End, b.Name, b.Start, b.End)
			}
		}
	}
	return nil
}

// Find resolves an absolute address to its containing image, via a
// linear scan. The image count is expected to be small (at most a few
// hundred), so this beats the bookkeeping of a sorted-interval index.
func (m *Map) Find(addr uint64) (id int, img Image, ok bool) {
	for _, im := range m.images {
		if im.contains(addr) {
			return im.ID, im, true
		}
	}
	return 0, Image{}, false
}

// Images returns the images in internal (interesting-first) order.
func (m *Map) Images() []Image {
	return m.images
}

// ByID returns the image with the given id.
func (m *Map) ByID(id int) (Image, bool) {
	if id < 0 || id >= len(m.images) {
		return Image{}, false
	}
	return m.images[id], true
}
