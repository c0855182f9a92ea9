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
	"github.com/ebay/chunkflow/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Union(t *testing.T) {
	vars := []*plandef.Variable{varX}
	plan := &plandef.Plan{
		Operator: &plandef.Union{},
		Inputs: []plandef.Input{
			{From: valuesPlan(vars, []interface{}{1}, []interface{}{2})},
			{From: valuesPlan(vars, []interface{}{3})},
			{From: valuesPlan(vars)},
		},
		Annotations: plandef.Annotations{MaxParallel: 2},
	}
	res, err := executePlan(t, plan, Options{ChunkCapacity: 1}, nil)
	require.NoError(t, err)
	assertSameRows(t, xRows(1, 2, 3), flatten(res))
}

func Test_Values(t *testing.T) {
	def := &plandef.Values{
		Variables: []*plandef.Variable{varX, varY},
		Rows: [][]rpc.KGObject{
			{obj(1), obj("a")},
			{obj(nil), obj(2.5)},
			{obj(nil), obj(nil)},
		},
	}
	op, err := newValues(def)
	require.NoError(t, err)
	w := newTestWiring(&plandef.Plan{Operator: def}, 0, false)
	require.NoError(t, w.run(t, op))
	rows, err := drain(t, w.primary)
	assert.NoError(t, err)
	// A nil value leaves the variable unbound.
	assertRowsEqual(t, []BindingSet{bs(varX, 1, varY, "a"), bs(varY, 2.5), bs()}, rows)
}

func Test_ValuesConfigError(t *testing.T) {
	_, err := newValues(&plandef.Values{
		Variables: []*plandef.Variable{varX, varY},
		Rows:      [][]rpc.KGObject{{obj(1)}},
	})
	var configErr *ConfigurationError
	assert.True(t, errors.As(err, &configErr))
	assert.Contains(t, err.Error(), "row 0 has 1 values, expecting 2")
}

func Test_Scan(t *testing.T) {
	def := &plandef.Scan{Name: "spo"}
	op, err := newScan(def)
	require.NoError(t, err)

	producer := newChunkProducer(rowChunks(2, xRows(1, 2, 3))...)
	w := newTestWiring(&plandef.Plan{Operator: def}, 0, false)
	w.oc.Options.Producers = map[string]ChunkProducer{"spo": producer}
	require.NoError(t, w.run(t, op))
	rows, err := drain(t, w.primary)
	assert.NoError(t, err)
	assertRowsEqual(t, xRows(1, 2, 3), rows)
	assert.Equal(t, 1, producer.closeCount())
	// Chunks are passed on as they are.
	assert.Equal(t, StreamStats{NumChunks: 2, NumBindingSets: 3}, w.oc.Sink.Sent())
}

func Test_ScanProducerFails(t *testing.T) {
	def := &plandef.Scan{Name: "spo"}
	op, err := newScan(def)
	require.NoError(t, err)
	producer := newChunkProducer(Chunk{Rows: xRows(1)})
	producer.err = errors.New("index unavailable")
	w := newTestWiring(&plandef.Plan{Operator: def}, 0, false)
	w.oc.Options.Producers = map[string]ChunkProducer{"spo": producer}
	err = w.run(t, op)
	var resErr *ResourceError
	require.True(t, errors.As(err, &resErr), "got %v", err)
	assert.False(t, resErr.Derived)
	assert.Equal(t, "chunk read failed: index unavailable", err.Error())
	assert.Equal(t, 1, producer.closeCount())
	rows, err := drain(t, w.primary)
	assertRowsEqual(t, xRows(1), rows)
	assert.True(t, errors.Is(err, producer.err))
}

func Test_ScanStopsWhenConsumerGone(t *testing.T) {
	def := &plandef.Scan{Name: "spo"}
	op, err := newScan(def)
	require.NoError(t, err)
	producer := newChunkProducer(rowChunks(1, xRows(1, 2, 3))...)
	w := newTestWiring(&plandef.Plan{Operator: def}, 0, false)
	w.oc.Options.Producers = map[string]ChunkProducer{"spo": producer}
	w.primary.Close()
	assert.NoError(t, w.run(t, op))
	assert.Equal(t, 1, producer.closeCount())
	assert.Equal(t, 0, w.oc.Sink.Sent().NumChunks)
}

func Test_ScanConfigErrors(t *testing.T) {
	_, err := newScan(&plandef.Scan{})
	var configErr *ConfigurationError
	assert.True(t, errors.As(err, &configErr))

	def := &plandef.Scan{Name: "osp"}
	op, err := newScan(def)
	require.NoError(t, err)
	w := newTestWiring(&plandef.Plan{Operator: def}, 0, false)
	_, err = op.evaluate(w.oc)
	assert.True(t, errors.As(err, &configErr))
}
