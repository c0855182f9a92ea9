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
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
	"github.com/ebay/chunkflow/util/clocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	varG   = &plandef.Variable{Name: "g"}
	varV   = &plandef.Variable{Name: "v"}
	varX   = &plandef.Variable{Name: "x"}
	varY   = &plandef.Variable{Name: "y"}
	varSum = &plandef.Variable{Name: "sum"}
	ctx    = context.Background()
)

// bs returns a binding set from variable/value pairs. Values may be rpc
// KGObjects, ints, floats, strings, or bools.
func bs(pairs ...interface{}) BindingSet {
	if len(pairs)%2 != 0 {
		panic("bs needs pairs")
	}
	bindings := make([]Binding, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		bindings = append(bindings, Binding{
			Var:   pairs[i].(*plandef.Variable),
			Value: obj(pairs[i+1]),
		})
	}
	return NewBindingSet(bindings...)
}

// obj converts a Go value to a KGObject.
func obj(val interface{}) rpc.KGObject {
	switch val := val.(type) {
	case rpc.KGObject:
		return val
	case int:
		return rpc.AInt64(int64(val))
	case int64:
		return rpc.AInt64(val)
	case float64:
		return rpc.AFloat64(val)
	case string:
		return rpc.AString(val)
	case bool:
		return rpc.ABool(val)
	case nil:
		return rpc.KGObject{}
	}
	panic(fmt.Sprintf("obj: unexpected type %T", val))
}

// xRows returns binding sets binding ?x to each value.
func xRows(vals ...int) []BindingSet {
	rows := make([]BindingSet, len(vals))
	for i, v := range vals {
		rows[i] = bs(varX, v)
	}
	return rows
}

// valuesPlan returns a Values plan node emitting the given rows.
func valuesPlan(vars []*plandef.Variable, rows ...[]interface{}) *plandef.Plan {
	def := &plandef.Values{Variables: vars}
	for _, row := range rows {
		objs := make([]rpc.KGObject, len(row))
		for i, v := range row {
			objs[i] = obj(v)
		}
		def.Rows = append(def.Rows, objs)
	}
	return &plandef.Plan{Operator: def}
}

// chunkProducer is a ChunkProducer over a fixed list of chunks, then err (or
// io.EOF if err is nil).
type chunkProducer struct {
	lock   sync.Mutex
	chunks []Chunk
	err    error
	closed int
}

func newChunkProducer(chunks ...Chunk) *chunkProducer {
	return &chunkProducer{chunks: chunks}
}

func (p *chunkProducer) Next(ctx context.Context) (Chunk, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.chunks) > 0 {
		c := p.chunks[0]
		p.chunks = p.chunks[1:]
		return c, nil
	}
	if p.err != nil {
		return Chunk{}, p.err
	}
	return Chunk{}, io.EOF
}

func (p *chunkProducer) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed++
	return nil
}

func (p *chunkProducer) closeCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

// rowChunks splits rows into chunks of the given size.
func rowChunks(size int, rows []BindingSet) []Chunk {
	var chunks []Chunk
	for len(rows) > 0 {
		n := min(size, len(rows))
		chunks = append(chunks, Chunk{Rows: rows[:n]})
		rows = rows[n:]
	}
	return chunks
}

// executePlan runs the plan and returns the chunks written to the results
// channel.
func executePlan(t *testing.T, plan *plandef.Plan, opts Options, events Events) ([]Chunk, error) {
	t.Helper()
	resCh := make(chan Chunk, 4)
	var chunks []Chunk
	done := make(chan struct{})
	go func() {
		for c := range resCh {
			chunks = append(chunks, c)
		}
		close(done)
	}()
	err := Execute(ctx, events, plan, opts, resCh)
	<-done
	return chunks, err
}

// flatten returns the rows of all the chunks.
func flatten(chunks []Chunk) []BindingSet {
	var rows []BindingSet
	for _, c := range chunks {
		rows = append(rows, c.Rows...)
	}
	return rows
}

// sortedKeys returns the key strings of the rows, sorted, for comparing
// outputs whose order isn't defined.
func sortedKeys(rows []BindingSet) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = row.String()
	}
	sort.Strings(keys)
	return keys
}

func assertRowsEqual(t *testing.T, exp, act []BindingSet) {
	t.Helper()
	assert.Equal(t, stringsOf(exp), stringsOf(act))
}

func assertSameRows(t *testing.T, exp, act []BindingSet) {
	t.Helper()
	assert.Equal(t, sortedKeys(exp), sortedKeys(act))
}

func stringsOf(rows []BindingSet) []string {
	res := make([]string, len(rows))
	for i, row := range rows {
		res[i] = row.String()
	}
	return res
}

// drain reads every chunk from src until it ends, returning the rows and the
// final error (nil at end of stream).
func drain(t *testing.T, src *Source) ([]BindingSet, error) {
	t.Helper()
	var rows []BindingSet
	for {
		c, err := src.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, c.Rows...)
	}
}

// testWiring is an OpContext for a single invocation, with Sinks that feed its
// inputs and Sources that read its outputs. The streams are large enough that
// tests can feed all the input before running the task.
type testWiring struct {
	oc      *OpContext
	inputs  []*Sink
	primary *Source
	alt     *Source
}

func newTestWiring(plan *plandef.Plan, ports int, withAlt bool) *testWiring {
	w := &testWiring{
		oc: &OpContext{
			Plan:    plan,
			Inputs:  make([]*Source, ports),
			Stats:   new(OpStats),
			Options: Options{}.withDefaults(),
		},
	}
	for i := 0; i < ports; i++ {
		b := newBuffer(1000)
		w.inputs = append(w.inputs, b.newSink(DefaultChunkCapacity, nil, false))
		w.oc.Inputs[i] = b.newSource(w.oc.Stats)
	}
	out := newBuffer(1000)
	w.oc.Sink = out.newSink(DefaultChunkCapacity, w.oc.Stats, false)
	w.primary = out.newSource(nil)
	if withAlt {
		alt := newBuffer(1000)
		w.oc.AltSink = alt.newSink(DefaultChunkCapacity, w.oc.Stats, true)
		w.alt = alt.newSource(nil)
	}
	return w
}

// feed writes the chunks to the input port and closes it.
func (w *testWiring) feed(t *testing.T, port int, chunks ...Chunk) {
	for _, c := range chunks {
		require.NoError(t, w.inputs[port].Add(ctx, c))
	}
	w.inputs[port].Close()
}

// captureEvents implements Events and captures the calls.
type captureEvents struct {
	lock   sync.Mutex
	clock  clocks.Source
	events []OpCompletedEvent
}

func (c *captureEvents) OpCompleted(event OpCompletedEvent) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.events = append(c.events, event)
}

func (c *captureEvents) Clock() clocks.Source {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.clock == nil {
		return clocks.Wall
	}
	return c.clock
}

func (c *captureEvents) forOperator(op plandef.Operator) []OpCompletedEvent {
	c.lock.Lock()
	defer c.lock.Unlock()
	var res []OpCompletedEvent
	for _, e := range c.events {
		if e.Operator == op {
			res = append(res, e)
		}
	}
	return res
}

// ignoreEvents should impl the Events interface
var _ Events = ignoreEvents{}

// isClosed returns true if ch has been closed or false if it's still open.
// In the event that the channel is still open and a value is ready, this will
// read and discard the value.
func isClosed(ch <-chan Chunk) bool {
	select {
	case v, open := <-ch:
		if open {
			logrus.WithFields(logrus.Fields{
				"value": v,
			}).Warn("isClosed discarded value")
			return false
		}
		return true
	default:
		return false
	}
}

// run evaluates op against the wiring and runs the resulting task.
func (w *testWiring) run(t *testing.T, op operator) error {
	t.Helper()
	task, err := op.evaluate(w.oc)
	require.NoError(t, err)
	return runInvocation(ctx, w.oc, task, ignoreEvents{})
}
