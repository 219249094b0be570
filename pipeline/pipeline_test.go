// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tracewalker/sidescan/imagemap"
	"github.com/tracewalker/sidescan/internal/collaborators"
	"github.com/tracewalker/sidescan/rawtrace"
	"github.com/tracewalker/sidescan/sidescan"
)

func discardLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func rawRecord(typ rawtrace.Type, size uint16, p1, p2 uint64) []byte {
	b := make([]byte, rawtrace.RecordSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(typ))
	binary.LittleEndian.PutUint16(b[6:8], size)
	binary.LittleEndian.PutUint64(b[8:16], p1)
	binary.LittleEndian.PutUint64(b[16:24], p2)
	return b
}

func writeRawFile(t *testing.T, dir, name string, records ...[]byte) string {
	t.Helper()
	var buf []byte
	for _, r := range records {
		buf = append(buf, r...)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeImageFile(t *testing.T, dir string) *imagemap.Map {
	t.Helper()
	path := filepath.Join(dir, "images.txt")
	content := "i\t1\t0000000000400000\t0000000000410000\ttarget\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := imagemap.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// TestPipelineCompareWritesMismatchOnDivergence runs the full pipeline
// in Compare mode over a dummy testcase plus a reference, a matching,
// and a divergent testcase, and checks that the run produces a
// mismatch_*.txt file.
func TestPipelineCompareWritesMismatchOnDivergence(t *testing.T) {
	dir := t.TempDir()
	images := writeImageFile(t, dir)

	dummyFile := writeRawFile(t, dir, "dummy.raw")
	refFile := writeRawFile(t, dir, "ref.raw", rawRecord(rawtrace.MemoryRead, 4, 0x400100, 0x400500))
	matchFile := writeRawFile(t, dir, "match.raw", rawRecord(rawtrace.MemoryRead, 4, 0x400100, 0x400500))
	divergeFile := writeRawFile(t, dir, "diverge.raw", rawRecord(rawtrace.MemoryRead, 4, 0x400100, 0x400600))

	tracer := collaborators.NewFakeTracer()
	tracer.Set(0, dummyFile)
	tracer.Set(1, refFile)
	tracer.Set(2, matchFile)
	tracer.Set(3, divergeFile)

	cfg := sidescan.DefaultConfig()
	cfg.AnalysisMode = sidescan.Compare
	cfg.OutputDirectory = dir

	p, err := New(cfg, tracer, images, discardLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for id := uint64(0); id <= 3; id++ {
		if err := p.Submit(id, "irrelevant", false); err != nil {
			t.Fatalf("Submit(%d): %v", id, err)
		}
	}
	p.Complete()
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "mismatch_") {
			found = true
		}
	}
	if !found {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected a mismatch_*.txt file in %s, found files: %v", dir, names)
	}
}

// TestPipelineCancelStopsAcceptingWork checks that a pipeline cancelled
// before any work is submitted still drains and returns from Wait.
func TestPipelineCancelStopsAcceptingWork(t *testing.T) {
	dir := t.TempDir()
	images := writeImageFile(t, dir)
	tracer := collaborators.NewFakeTracer()
	cfg := sidescan.DefaultConfig()
	cfg.OutputDirectory = dir

	p, err := New(cfg, tracer, images, discardLog())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Cancel()
	p.Complete()
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait after Cancel: %v", err)
	}
}
