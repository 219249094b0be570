// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import "github.com/tracewalker/sidescan/compare"

// sinkCompare implements the Compare sink (§4.7): the first non-dummy
// trace becomes the reference; every later trace is compared against
// it, and any divergence is appended via MismatchWriter.
func (p *Pipeline) sinkCompare(job sinkJob) {
	p.sinkMu.Lock()
	if p.referenceTrace == nil {
		t := job.trace
		p.referenceTrace = &t
		p.referenceTestcaseID = job.testcaseID
		p.sinkMu.Unlock()
		return
	}
	ref := p.referenceTrace
	refID := p.referenceTestcaseID
	p.sinkMu.Unlock()

	result := compare.Compare(ref.Entries, job.trace.Entries, uint64(p.cfg.Granularity))
	if p.mismatchWriter != nil {
		if err := p.mismatchWriter.Append(refID, job.testcaseID, result); err != nil {
			p.log.WithError(err).Warn("pipeline: writing mismatch result failed")
		}
	}
}
