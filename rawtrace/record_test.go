// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rawtrace

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeRecord(buf []byte, typ Type, flag byte, p1, p2 uint64) []byte {
	rec := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(rec[0:4], uint32(typ))
	rec[4] = flag
	binary.LittleEndian.PutUint64(rec[8:16], p1)
	binary.LittleEndian.PutUint64(rec[16:24], p2)
	return append(buf, rec...)
}

func TestLoadAndDecode(t *testing.T) {
	var buf []byte
	buf = writeRecord(buf, MemoryRead, 0, 0x400100, 0x400500)
	buf = writeRecord(buf, Branch, 1|(uint8(Call)<<1), 0x400200, 0x400300)

	dir := t.TempDir()
	path := filepath.Join(dir, "trace.raw")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f.Close()

	if got, want := f.Len(), 2; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}

	r0 := f.Record(0)
	if r0.RecordType != MemoryRead || r0.P1 != 0x400100 || r0.P2 != 0x400500 {
		t.Errorf("Record(0) = %+v", r0)
	}

	r1 := f.Record(1)
	if !r1.Taken() {
		t.Errorf("Record(1).Taken() = false, want true")
	}
	if r1.BranchKind() != Call {
		t.Errorf("Record(1).BranchKind() = %v, want Call", r1.BranchKind())
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.raw")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load of truncated file succeeded, want ErrMalformedRecord")
	}
}
