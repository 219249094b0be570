// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collaborators

import (
	"context"
	"testing"
)

func TestFakeTracerReturnsRegisteredFile(t *testing.T) {
	f := NewFakeTracer()
	f.Set(7, "/tmp/testcase-7.trace")

	path, err := f.Trace(context.Background(), 7, "/tmp/testcase-7.bin")
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if path != "/tmp/testcase-7.trace" {
		t.Errorf("path = %q, want /tmp/testcase-7.trace", path)
	}
}

func TestFakeTracerUnknownTestcase(t *testing.T) {
	f := NewFakeTracer()
	if _, err := f.Trace(context.Background(), 1, "x"); err == nil {
		t.Fatal("expected error for unregistered testcase")
	}
}

func TestFakeTracerRespectsCancellation(t *testing.T) {
	f := NewFakeTracer()
	f.Set(1, "/tmp/a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Trace(ctx, 1, "x"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
