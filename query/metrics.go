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

package query

import (
	metricsutil "github.com/ebay/chunkflow/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type queryMetrics struct {
	prepareDurationSeconds prometheus.Summary
	executeDurationSeconds prometheus.Summary
	executionsTotal        *prometheus.CounterVec
}

var metrics queryMetrics

func init() {
	mr := metricsutil.Registry{R: prometheus.DefaultRegisterer}
	metrics = queryMetrics{
		prepareDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace:  "chunkflow",
			Subsystem:  "query",
			Name:       "prepare_duration_seconds",
			Help:       `The time it takes to check a plan and build its operators.`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		executeDurationSeconds: mr.NewSummary(prometheus.SummaryOpts{
			Namespace: "chunkflow",
			Subsystem: "query",
			Name:      "execute_duration_seconds",
			Help: `The time it takes to execute a plan.

This happens after the plan is prepared, and it includes the time spent
waiting for the caller to consume the results.
`,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		}),
		executionsTotal: mr.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkflow",
			Subsystem: "query",
			Name:      "executions_total",
			Help: `The number of plans run, by outcome.

The outcome is "ok", or the kind of error that failed the execution:
configuration, evaluation, cancellation, resource, or other.
`,
		}, "outcome"),
	}
}
