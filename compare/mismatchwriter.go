// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compare

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tracewalker/sidescan/tracefmt"
)

// MismatchWriter appends Compare results to per-class, per-line files
// named mismatch_{class}_{line}.txt (§6), one open *os.File per name,
// reused across Append calls for the lifetime of the writer.
type MismatchWriter struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewMismatchWriter returns a writer that creates files under dir,
// which must already exist.
func NewMismatchWriter(dir string) *MismatchWriter {
	return &MismatchWriter{dir: dir, files: map[string]*os.File{}}
}

// Append writes one mismatch line for a divergent Result, identifying
// the two testcases and rendering both divergent entries as hex. A
// Match result is a no-op: only actual divergences are reported.
func (w *MismatchWriter) Append(testcase1, testcase2 uint64, r Result) error {
	if r.Class == Match {
		return nil
	}
	f, err := w.fileFor(r.Class, r.Line)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintf(f, "%d %d %s %s\n",
		testcase1, testcase2, hexdump(r.Entry1), hexdump(r.Entry2))
	return err
}

func (w *MismatchWriter) fileFor(class Class, line int) (*os.File, error) {
	name := fmt.Sprintf("mismatch_%s_%d.txt", class, line)

	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.files[name]; ok {
		return f, nil
	}
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("compare: opening %s: %w", name, err)
	}
	w.files[name] = f
	return f, nil
}

// Close closes every file opened by this writer.
func (w *MismatchWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for _, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// hexdump renders an Entry as hex, reusing the §4.6 wire codec so the
// rendered bytes are exactly the entry's on-disk representation.
func hexdump(e tracefmt.Entry) string {
	if e == nil {
		return "-"
	}
	var buf bytes.Buffer
	if err := (tracefmt.Codec{}).Encode(&buf, e); err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return hex.EncodeToString(buf.Bytes())
}
