// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawtrace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedRecord is returned when a raw trace file's length is not a
// multiple of RecordSize.
var ErrMalformedRecord = errors.New("rawtrace: file length is not a multiple of the record size")

// File is a loaded raw trace file, exposed as a sequence of fixed-size
// records.
type File struct {
	data []byte
}

// Load reads the raw trace file at path in one shot and validates its
// length. The tracing frontend that produces these files is out of
// scope; Load only has to trust the wire format, not the frontend.
func Load(path string) (*File, error) {
	data, err := readAll(path)
	if err != nil {
		return nil, fmt.Errorf("rawtrace: loading %s: %w", path, err)
	}
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("rawtrace: %s: %w (%d bytes)", path, ErrMalformedRecord, len(data))
	}
	return &File{data: data}, nil
}

func readAll(path string) ([]byte, error) {
	if data, ok := tryMmap(path); ok {
		return data, nil
	}
	return os.ReadFile(path)
}

// Len reports the number of records in the file.
func (f *File) Len() int {
	return len(f.data) / RecordSize
}

// Record decodes and returns the i'th record.
func (f *File) Record(i int) Record {
	b := f.data[i*RecordSize : (i+1)*RecordSize]
	return Record{
		RecordType: Type(binary.LittleEndian.Uint32(b[0:4])),
		Flag:       b[4],
		pad:        b[5],
		Size0:      binary.LittleEndian.Uint16(b[6:8]),
		P1:         binary.LittleEndian.Uint64(b[8:16]),
		P2:         binary.LittleEndian.Uint64(b[16:24]),
	}
}

// All decodes the full record sequence in order.
func (f *File) All() []Record {
	n := f.Len()
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = f.Record(i)
	}
	return out
}

// Close releases any backing mapping held by the file.
func (f *File) Close() error {
	return releaseMmap(f.data)
}
