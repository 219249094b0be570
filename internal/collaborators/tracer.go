// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collaborators models the external systems the pipeline
// depends on but does not implement: the tracing frontend that turns a
// testcase file into a raw trace file (§1, §6). Everything in this
// package is a boundary, not analysis logic.
package collaborators

import (
	"context"
	"fmt"
)

// Tracer runs a testcase through the out-of-scope tracing frontend and
// returns the path to the raw trace file it produced.
type Tracer interface {
	Trace(ctx context.Context, testcaseID uint64, testcaseFile string) (rawTraceFile string, err error)
}

// FakeTracer is an in-process Tracer for tests: it maps testcase ids to
// pre-made raw trace file paths, so pipeline tests can run without a
// real tracing frontend.
type FakeTracer struct {
	Files map[uint64]string
}

// NewFakeTracer returns a FakeTracer with an empty file map; populate
// Files directly or via Set.
func NewFakeTracer() *FakeTracer {
	return &FakeTracer{Files: map[uint64]string{}}
}

// Set registers the raw trace file to return for a given testcase id.
func (f *FakeTracer) Set(testcaseID uint64, rawTraceFile string) {
	f.Files[testcaseID] = rawTraceFile
}

func (f *FakeTracer) Trace(ctx context.Context, testcaseID uint64, testcaseFile string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, ok := f.Files[testcaseID]
	if !ok {
		return "", fmt.Errorf("collaborators: no fake raw trace registered for testcase %d", testcaseID)
	}
	return path, nil
}
