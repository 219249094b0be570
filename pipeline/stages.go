// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"os"

	"github.com/tracewalker/sidescan/preprocess"
	"github.com/tracewalker/sidescan/rawtrace"
	"github.com/tracewalker/sidescan/sidescan"
	"github.com/tracewalker/sidescan/tracefmt"
)

// runGenerateTrace is the GenerateTrace stage (capacity 3, parallelism
// 1): it calls into the external tracer and forwards to PreprocessTrace.
func (p *Pipeline) runGenerateTrace() {
	defer p.wg.Done()
	defer close(p.preCh)

	for job := range p.genCh {
		p.metrics.setDepth("generate_trace", len(p.genCh))
		if p.ctx.Err() != nil {
			continue // draining: let remaining queued jobs fall through without new tracer calls
		}
		rawFile, err := p.tracer.Trace(p.ctx, job.testcaseID, job.testcaseFile)
		if err != nil {
			p.log.WithError(err).WithField("testcase", job.testcaseID).Warn("pipeline: trace generation failed, dropping testcase")
			p.recordFailed(job.testcaseID)
			continue
		}
		select {
		case p.preCh <- preJob{testcaseID: job.testcaseID, isDummy: job.isDummy, isDuplicate: job.isDuplicate, rawTraceFile: rawFile}:
			p.metrics.setDepth("preprocess_trace", len(p.preCh))
		case <-p.ctx.Done():
		}
	}
}

// runPreprocessTrace is the PreprocessTrace stage (capacity 1,
// parallelism 1): sequential, so it owns the shared prefix and heap-id
// counters without locking.
func (p *Pipeline) runPreprocessTrace() {
	defer p.wg.Done()
	defer close(p.sinkCh)

	for job := range p.preCh {
		p.metrics.setDepth("preprocess_trace", len(p.preCh))
		if p.ctx.Err() != nil {
			continue
		}
		trace, dropped, err := p.preprocessOne(job)
		if err != nil {
			p.log.WithError(err).WithField("testcase", job.testcaseID).Warn("pipeline: preprocessing failed, dropping testcase")
			p.recordFailed(job.testcaseID)
			continue
		}
		p.recordDropped(job.testcaseID, dropped)
		if job.isDummy {
			if !p.cfg.KeepRawTraces {
				os.Remove(job.rawTraceFile)
			}
			continue // the dummy never reaches the sink stage
		}
		select {
		case p.sinkCh <- sinkJob{testcaseID: job.testcaseID, isDuplicate: job.isDuplicate, trace: trace}:
			p.metrics.setDepth("sink", len(p.sinkCh))
		case <-p.ctx.Done():
		}
		if !p.cfg.KeepRawTraces {
			os.Remove(job.rawTraceFile)
		}
	}
}

func (p *Pipeline) preprocessOne(job preJob) (tracefmt.Trace, preprocess.DroppedCounts, error) {
	f, err := rawtrace.Load(job.rawTraceFile)
	if err != nil {
		return tracefmt.Trace{}, preprocess.DroppedCounts{}, err
	}
	defer f.Close()

	if job.isDummy {
		builder := preprocess.NewPrefixBuilder(p.images, p.log)
		result, err := builder.Process(f, true, func(tracefmt.Entry) error { return nil })
		if err != nil {
			return tracefmt.Trace{}, preprocess.DroppedCounts{}, err
		}
		p.prefix = builder.BuiltPrefix(result.Heap)
		return tracefmt.Trace{}, result.Dropped, nil
	}

	var entries []tracefmt.Entry
	proc := preprocess.New(p.images, p.prefix, p.log)
	result, err := proc.Process(f, false, func(e tracefmt.Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return tracefmt.Trace{}, preprocess.DroppedCounts{}, err
	}
	return tracefmt.Trace{Prefix: p.prefix, Entries: entries, Heap: result.Heap}, result.Dropped, nil
}

// runSink is either the Compare stage (parallelism 1) or the Compress
// stage (parallelism 4), selected by AnalysisMode; New starts the right
// number of copies of this goroutine.
func (p *Pipeline) runSink() {
	defer p.wg.Done()

	for job := range p.sinkCh {
		p.metrics.setDepth("sink", len(p.sinkCh))
		if p.ctx.Err() != nil {
			continue
		}
		switch p.cfg.AnalysisMode {
		case sidescan.Compare:
			p.sinkCompare(job)
		case sidescan.MIWholeTrace, sidescan.MITracePrefix, sidescan.MISingleInstruction:
			p.sinkCompress(job)
		case sidescan.None:
			// Preprocessing only; nothing further to do with the trace.
		}
	}
}
