// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline wires rawtrace, preprocess, compare, traceenc, and
// mutualinfo into the four-stage runtime described in §4.10: schedule
// → generate trace → preprocess → analyze (compare or compress).
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tracewalker/sidescan/compare"
	"github.com/tracewalker/sidescan/imagemap"
	"github.com/tracewalker/sidescan/internal/collaborators"
	"github.com/tracewalker/sidescan/mutualinfo"
	"github.com/tracewalker/sidescan/preprocess"
	"github.com/tracewalker/sidescan/sidescan"
	"github.com/tracewalker/sidescan/tracefmt"
)

const (
	generateTraceCapacity   = 3
	preprocessTraceCapacity = 1
	sinkCapacity            = 8
	compressParallelism     = 4
)

type genJob struct {
	testcaseID   uint64
	testcaseFile string
	isDummy      bool
	isDuplicate  bool
}

type preJob struct {
	testcaseID   uint64
	isDummy      bool
	isDuplicate  bool
	rawTraceFile string
}

type sinkJob struct {
	testcaseID  uint64
	isDuplicate bool
	trace       tracefmt.Trace
}

// Pipeline runs the bounded, concurrent trace-analysis pipeline over a
// stream of submitted testcases.
type Pipeline struct {
	cfg    sidescan.Config
	tracer collaborators.Tracer
	images *imagemap.Map
	log    logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelCauseFunc

	genCh  chan genJob
	preCh  chan preJob
	sinkCh chan sinkJob

	wg sync.WaitGroup

	submitMu       sync.Mutex
	dummySubmitted bool
	closed         bool

	// prefix is written exactly once, by the single preprocess-stage
	// goroutine, before any non-dummy job reaches it: parallelism 1 on
	// that stage gives single-writer discipline with no lock (§4.10).
	prefix *tracefmt.Prefix

	metrics *metrics

	mismatchWriter       *compare.MismatchWriter
	referenceTrace       *tracefmt.Trace // first non-dummy trace, set under sinkMu
	referenceTestcaseID  uint64
	sinkMu               sync.Mutex

	hashPool *mutualinfo.HashPool

	wholeTraces sync.Map // testcaseID(uint64) -> []uint64 encoded post-prefix entries
	instrRuns   sync.Map // instrRelativeAddr(uint64) -> *sync.Map(testcaseID(uint64) -> []uint64 offsets)

	dropped       map[uint64]preprocess.DroppedCounts
	droppedMu     sync.Mutex
	failedTestcases []uint64
}

// New constructs a Pipeline. images is the already-loaded prefix data
// file (§4.2); cfg must have passed Validate.
func New(cfg sidescan.Config, tracer collaborators.Tracer, images *imagemap.Map, log logrus.FieldLogger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancelCause(context.Background())

	p := &Pipeline{
		cfg:     cfg,
		tracer:  tracer,
		images:  images,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		genCh:   make(chan genJob, generateTraceCapacity),
		preCh:   make(chan preJob, preprocessTraceCapacity),
		sinkCh:  make(chan sinkJob, sinkCapacity),
		metrics: newMetrics(),
		dropped: make(map[uint64]preprocess.DroppedCounts),
	}
	if cfg.AnalysisMode == sidescan.Compare {
		p.mismatchWriter = compare.NewMismatchWriter(cfg.OutputDirectory)
	}
	switch cfg.AnalysisMode {
	case sidescan.MIWholeTrace, sidescan.MITracePrefix, sidescan.MISingleInstruction:
		p.hashPool = mutualinfo.NewHashPool(compressParallelism)
	default:
		p.hashPool = mutualinfo.NewHashPool(1)
	}

	p.wg.Add(1)
	go p.runGenerateTrace()
	p.wg.Add(1)
	go p.runPreprocessTrace()

	sinkParallelism := 1
	if p.cfg.AnalysisMode != sidescan.Compare && p.cfg.AnalysisMode != sidescan.None {
		sinkParallelism = compressParallelism
	}
	for i := 0; i < sinkParallelism; i++ {
		p.wg.Add(1)
		go p.runSink()
	}

	return p, nil
}

// Submit schedules one testcase (§6's "Pipeline.submit"). The very
// first call is treated as the dummy testcase that builds the shared
// prefix; it is excluded from comparison and MI analysis. Submit
// blocks while the generate-trace stage's bounded queue is full
// (backpressure).
//
// isDuplicate is informational only: the per-instruction MI
// replication formula (§4.9) groups observations by testcaseID alone,
// so callers implementing randomization replication submit the same
// testcaseID RandomizationMultiplier times rather than relying on this
// flag to change pipeline behavior.
func (p *Pipeline) Submit(testcaseID uint64, testcaseFile string, isDuplicate bool) error {
	p.submitMu.Lock()
	if p.closed {
		p.submitMu.Unlock()
		return fmt.Errorf("pipeline: Submit called after Complete")
	}
	isDummy := !p.dummySubmitted
	p.dummySubmitted = true
	p.submitMu.Unlock()

	job := genJob{testcaseID: testcaseID, testcaseFile: testcaseFile, isDummy: isDummy, isDuplicate: isDuplicate}
	select {
	case p.genCh <- job:
		p.metrics.setDepth("generate_trace", len(p.genCh))
		return nil
	case <-p.ctx.Done():
		return context.Cause(p.ctx)
	}
}

// Complete signals end of input: no further Submit calls are valid,
// and every stage exits once its queue drains.
func (p *Pipeline) Complete() {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.genCh)
}

// Wait blocks until every stage has drained and finalizes any
// accumulated MI analysis, writing the §6 result files.
func (p *Pipeline) Wait() error {
	p.wg.Wait()
	if p.mismatchWriter != nil {
		if err := p.mismatchWriter.Close(); err != nil {
			return err
		}
	}
	return p.finalizeAnalysis()
}

// Cancel cooperatively stops the pipeline: stages drain their current
// item and exit, but no new work starts.
func (p *Pipeline) Cancel() {
	p.cancel(fmt.Errorf("pipeline: cancelled"))
}

// DroppedRecordCounts returns the per-testcase dropped-record counts
// preprocessing accumulated, keyed by testcase id (§7's "final per-file
// count of dropped records").
func (p *Pipeline) DroppedRecordCounts() map[uint64]preprocess.DroppedCounts {
	p.droppedMu.Lock()
	defer p.droppedMu.Unlock()
	out := make(map[uint64]preprocess.DroppedCounts, len(p.dropped))
	for k, v := range p.dropped {
		out[k] = v
	}
	return out
}

// FailedTestcases returns the ids of testcases dropped entirely because
// the tracer call failed or their raw trace could not be loaded or
// preprocessed (§7: fatal for that testcase, pipeline continues).
func (p *Pipeline) FailedTestcases() []uint64 {
	p.droppedMu.Lock()
	defer p.droppedMu.Unlock()
	return append([]uint64(nil), p.failedTestcases...)
}

func (p *Pipeline) recordDropped(testcaseID uint64, d preprocess.DroppedCounts) {
	p.droppedMu.Lock()
	defer p.droppedMu.Unlock()
	p.dropped[testcaseID] = d
}

func (p *Pipeline) recordFailed(testcaseID uint64) {
	p.droppedMu.Lock()
	defer p.droppedMu.Unlock()
	p.failedTestcases = append(p.failedTestcases, testcaseID)
}
