// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package exec

import (
	metricsutil "github.com/ebay/chunkflow/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type execMetrics struct {
	chunksTotal       *prometheus.CounterVec
	unitsTotal        *prometheus.CounterVec
	taskFailuresTotal *prometheus.CounterVec
}

var metrics execMetrics

func init() {
	mr := metricsutil.Registry{R: prometheus.DefaultRegisterer}
	metrics = execMetrics{
		chunksTotal: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkflow",
			Subsystem: "exec",
			Name:      "chunks_total",
			Help: `The number of chunks moved through operators.

The direction label is "in" for chunks read from an input, "out" for chunks
written to the primary output, and "alt" for chunks written to the alternate
output of a routing operator.
`,
		}, "operator", "direction"),
		unitsTotal: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkflow",
			Subsystem: "exec",
			Name:      "units_total",
			Help: `The number of binding sets moved through operators.

The labels are the same as for chunkflow_exec_chunks_total.
`,
		}, "operator", "direction"),
		taskFailuresTotal: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkflow",
			Subsystem: "exec",
			Name:      "task_failures_total",
			Help: `The number of operator invocations that failed.

The kind label is one of "configuration", "evaluation", "cancellation",
"resource", or "other".
`,
		}, "operator", "kind"),
	}
}

// observe adds the stream counts from a completed invocation to the
// Prometheus counters.
func (m *execMetrics) observe(event *OpCompletedEvent) {
	op := operatorKind(event.Operator)
	for _, s := range []struct {
		direction string
		stats     StreamStats
	}{
		{"in", event.Input},
		{"out", event.Output},
		{"alt", event.AltOutput},
	} {
		if s.stats.NumChunks == 0 {
			continue
		}
		m.chunksTotal.WithLabelValues(op, s.direction).Add(float64(s.stats.NumChunks))
		m.unitsTotal.WithLabelValues(op, s.direction).Add(float64(s.stats.NumBindingSets))
	}
	if event.Err != nil {
		m.taskFailuresTotal.WithLabelValues(op, ErrorKind(event.Err)).Inc()
	}
}
