// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/tracewalker/sidescan/imagemap"
	"github.com/tracewalker/sidescan/internal/collaborators"
	"github.com/tracewalker/sidescan/pipeline"
	"github.com/tracewalker/sidescan/sidescan"
)

// buildConfig turns the shared flags plus a subcommand's chosen
// AnalysisMode into a validated sidescan.Config.
func (o *commonOptions) buildConfig(mode sidescan.AnalysisMode) (sidescan.Config, error) {
	cfg := sidescan.DefaultConfig()
	cfg.AnalysisMode = mode
	cfg.Granularity = o.granularity
	cfg.KeepRawTraces = o.keepRawTraces
	cfg.KeepPreprocessedTraces = o.keepPreprocessed
	cfg.OutputDirectory = o.outputDir
	cfg.PreprocessedTraceDirectory = o.preprocessedDir
	if o.randomization > 0 {
		cfg.RandomizationMultiplier = o.randomization
	}
	if err := cfg.Validate(); err != nil {
		return sidescan.Config{}, err
	}
	return cfg, nil
}

// runPipeline loads the image map, builds a pipeline in the given mode,
// submits testcaseFiles in order (the first is the dummy testcase),
// and waits for it to finish. log reports per-testcase warnings the
// pipeline surfaces through DroppedRecordCounts/FailedTestcases.
func runPipeline(o *commonOptions, mode sidescan.AnalysisMode, testcaseFiles []string) error {
	if len(testcaseFiles) < 1 {
		return fmt.Errorf("sidescan: at least one testcase file is required (the dummy testcase)")
	}

	images, err := imagemap.Load(o.imagesFile)
	if err != nil {
		return err
	}

	cfg, err := o.buildConfig(mode)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDirectory, 0o755); err != nil {
		return fmt.Errorf("sidescan: creating output directory: %w", err)
	}
	if cfg.KeepPreprocessedTraces {
		if err := os.MkdirAll(cfg.PreprocessedTraceDirectory, 0o755); err != nil {
			return fmt.Errorf("sidescan: creating preprocessed trace directory: %w", err)
		}
	}

	log := logrus.StandardLogger()
	p, err := pipeline.New(cfg, collaborators.IdentityTracer{}, images, log)
	if err != nil {
		return err
	}

	for id, file := range testcaseFiles {
		if err := p.Submit(uint64(id), file, false); err != nil {
			p.Complete()
			p.Wait()
			return fmt.Errorf("sidescan: submitting testcase %d (%s): %w", id, file, err)
		}
	}
	p.Complete()
	if err := p.Wait(); err != nil {
		return err
	}

	for id, counts := range p.DroppedRecordCounts() {
		if counts.Total() > 0 {
			log.WithField("testcase", id).WithField("dropped", counts.Total()).Warn("sidescan: dropped malformed records during preprocessing")
		}
	}
	for _, id := range p.FailedTestcases() {
		log.WithField("testcase", id).Warn("sidescan: testcase failed entirely and was excluded from analysis")
	}
	return nil
}
