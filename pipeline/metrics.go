// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics exposes the per-stage queue depth gauges named in §4.10 and
// §5, so an operator can watch backpressure build up on any stage
// without instrumenting the call sites themselves. The gauge vector is
// a package-level singleton, registered once, so that constructing more
// than one Pipeline in the same process (as the test suite does)
// doesn't attempt to register the same metric name twice.
type metrics struct {
	stageDepth *prometheus.GaugeVec
}

var (
	stageDepthOnce sync.Once
	stageDepthVec  *prometheus.GaugeVec
)

func newMetrics() *metrics {
	stageDepthOnce.Do(func() {
		stageDepthVec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sidescan",
			Subsystem: "pipeline",
			Name:      "stage_queue_depth",
			Help:      "Current number of queued jobs in a pipeline stage's bounded channel.",
		}, []string{"stage"})
		prometheus.MustRegister(stageDepthVec)
	})
	return &metrics{stageDepth: stageDepthVec}
}

func (m *metrics) setDepth(stage string, depth int) {
	m.stageDepth.WithLabelValues(stage).Set(float64(depth))
}
