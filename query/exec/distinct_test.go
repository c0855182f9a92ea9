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
	"errors"
	"testing"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DistinctOp(t *testing.T) {
	def := &plandef.Distinct{}
	op := newDistinct(def)
	w := newTestWiring(&plandef.Plan{Operator: def}, 1, false)
	w.oc.Shared = op.(stateful).newShared()
	w.feed(t, 0,
		Chunk{Rows: []BindingSet{bs(varX, 1), bs(varX, 2), bs(varX, 1, varY, 1)}},
		Chunk{Rows: []BindingSet{bs(varX, 2), bs(varX, 3), bs(varX, 1)}},
		Chunk{Rows: []BindingSet{bs(varX, 1.0), bs(varX, "1")}},
	)
	require.NoError(t, w.run(t, op))
	rows, err := drain(t, w.primary)
	assert.NoError(t, err)
	// The first of each duplicate is kept, in input order. Values of
	// different types are never duplicates.
	assertRowsEqual(t, []BindingSet{
		bs(varX, 1), bs(varX, 2), bs(varX, 1, varY, 1), bs(varX, 3), bs(varX, 1.0), bs(varX, "1"),
	}, rows)
}

func Test_DistinctParallel(t *testing.T) {
	var rows [][]interface{}
	var exp []BindingSet
	for i := 0; i < 300; i++ {
		rows = append(rows, []interface{}{i % 50})
		if i < 50 {
			exp = append(exp, bs(varX, i))
		}
	}
	plan := &plandef.Plan{
		Operator:    &plandef.Distinct{},
		Inputs:      []plandef.Input{{From: valuesPlan([]*plandef.Variable{varX}, rows...)}},
		Annotations: plandef.Annotations{MaxParallel: 4, SharedState: true},
	}
	res, err := executePlan(t, plan, Options{ChunkCapacity: 7}, nil)
	require.NoError(t, err)
	assertSameRows(t, exp, flatten(res))
}

func Test_DistinctNeedsSharedState(t *testing.T) {
	def := &plandef.Distinct{}
	w := newTestWiring(&plandef.Plan{Operator: def}, 1, false)
	_, err := newDistinct(def).evaluate(w.oc)
	var configErr *ConfigurationError
	assert.True(t, errors.As(err, &configErr))
}
