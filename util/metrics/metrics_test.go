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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_Registry(t *testing.T) {
	assert := assert.New(t)
	reg := prometheus.NewRegistry()
	mr := Registry{R: reg}
	c := mr.NewCounter(prometheus.CounterOpts{Name: "things_total", Help: "things"})
	c.Add(3)
	v := mr.NewCounterVec(prometheus.CounterOpts{Name: "rows_total", Help: "rows"}, "operator")
	v.WithLabelValues("route").Add(5)
	v.WithLabelValues("group").Inc()
	g := mr.NewGauge(prometheus.GaugeOpts{Name: "running", Help: "running"})
	g.Set(2)
	s := mr.NewSummary(prometheus.SummaryOpts{Name: "took_seconds", Help: "took", Objectives: DefaultObjectives})
	s.Observe(0.5)

	assert.Equal(3.0, testutil.ToFloat64(c))
	assert.Equal(5.0, testutil.ToFloat64(v.WithLabelValues("route")))
	assert.Equal(1.0, testutil.ToFloat64(v.WithLabelValues("group")))
	assert.Equal(2.0, testutil.ToFloat64(g))
	count, err := testutil.GatherAndCount(reg, "took_seconds")
	assert.NoError(err)
	assert.Equal(1, count)

	assert.Panics(func() {
		mr.NewCounter(prometheus.CounterOpts{Name: "things_total", Help: "things"})
	})
}
