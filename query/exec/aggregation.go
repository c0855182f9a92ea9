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
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
	"github.com/google/btree"
)

// newPipelinedAggregation returns an operator that computes a GROUP BY
// incrementally. The running invocations fold every binding set they read into
// the group state shared by all invocations of the plan node. Only the
// last-pass invocation, which starts after every running invocation has
// consumed all its input, emits results: one binding set per group that
// satisfies the HAVING constraints, in ascending order of the group key.
//
// The emitted groups and their values don't depend on chunk boundaries or on
// the number of invocations.
func newPipelinedAggregation(def *plandef.PipelinedAggregation, ann plandef.Annotations, parallel int) (operator, error) {
	if !ann.LastPass {
		return nil, configErrorf(def, "aggregation requires the LastPass annotation")
	}
	if parallel > 1 && !ann.SharedState {
		return nil, configErrorf(def, "aggregation with %d invocations requires the SharedState annotation", parallel)
	}
	if len(def.Select) == 0 {
		return nil, configErrorf(def, "aggregation must select at least one expression")
	}
	op := &pipelinedAggregation{
		def:      def,
		aggs:     make([]*plandef.AggregateExpr, len(def.Select)),
		groupIdx: make([]int, len(def.Select)),
	}
	outputs := make(map[string]bool, len(def.Select))
	for i, item := range def.Select {
		if item.Out == nil {
			return nil, configErrorf(def, "select expression %v has no output variable", item.Expr)
		}
		if outputs[item.Out.Name] {
			return nil, configErrorf(def, "%v is selected more than once", item.Out)
		}
		outputs[item.Out.Name] = true
		op.groupIdx[i] = -1
		switch expr := item.Expr.(type) {
		case *plandef.Variable:
			op.groupIdx[i] = indexOfVar(def.GroupBy, expr)
			if op.groupIdx[i] < 0 {
				return nil, configErrorf(def, "%v is selected but is not in the GROUP BY", expr)
			}
		case *plandef.AggregateExpr:
			if err := checkAggregate(def, expr); err != nil {
				return nil, err
			}
			op.aggs[i] = expr
		default:
			return nil, configErrorf(def, "unsupported select expression %v", item.Expr)
		}
	}
	return op, nil
}

func checkAggregate(def *plandef.PipelinedAggregation, expr *plandef.AggregateExpr) error {
	switch expr.Func {
	case plandef.AggCount, plandef.AggSum, plandef.AggMin, plandef.AggMax, plandef.AggAvg, plandef.AggSample:
	default:
		return configErrorf(def, "unsupported aggregate function %v", expr.Func)
	}
	switch expr.OnUndefined {
	case plandef.UndefinedDefault, plandef.UndefinedSkip, plandef.UndefinedUnbind, plandef.UndefinedFail:
	default:
		return configErrorf(def, "unsupported undefined policy %v in %v", expr.OnUndefined, expr)
	}
	switch expr.Of.(type) {
	case *plandef.Variable:
		return nil
	case *plandef.WildcardExpr:
		if expr.Func == plandef.AggCount {
			return nil
		}
	}
	return configErrorf(def, "unsupported aggregate argument in %v", expr)
}

func indexOfVar(vars []*plandef.Variable, v *plandef.Variable) int {
	for i := range vars {
		if vars[i].Name == v.Name {
			return i
		}
	}
	return -1
}

type pipelinedAggregation struct {
	def *plandef.PipelinedAggregation
	// For each Select item, the aggregate expression, or nil if the item is a
	// GROUP BY variable.
	aggs []*plandef.AggregateExpr
	// For each Select item, its index in def.GroupBy, or -1 if the item is an
	// aggregate.
	groupIdx []int
}

func (op *pipelinedAggregation) newShared() interface{} {
	return newAggState()
}

func (op *pipelinedAggregation) evaluate(oc *OpContext) (Task, error) {
	state, ok := oc.Shared.(*aggState)
	if !ok {
		return nil, configErrorf(op.def, "aggregation invocation has no shared state")
	}
	if oc.LastPass {
		return func(ctx context.Context) error {
			return op.emit(ctx, oc, state)
		}, nil
	}
	return func(ctx context.Context) error {
		return op.consume(ctx, oc, state)
	}, nil
}

// consume is the running phase: it folds every input binding set into the
// shared group state.
func (op *pipelinedAggregation) consume(ctx context.Context, oc *OpContext, state *aggState) error {
	if err := state.start(); err != nil {
		return err
	}
	src := oc.Source()
	cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if phase := state.current(); phase != aggRunning {
			return fmt.Errorf("aggregation received input in phase %v", phase)
		}
		for _, row := range chunk.Rows {
			if err := cancel.check(); err != nil {
				return err
			}
			if err := op.accumulate(state, row); err != nil {
				return &EvaluationError{Operator: op.def, Row: row, Err: err}
			}
		}
	}
}

func (op *pipelinedAggregation) accumulate(state *aggState, row BindingSet) error {
	key, vals := op.groupKey(row)
	g := state.group(key, func() *aggGroup {
		g := &aggGroup{key: vals, aggs: make([]*aggregator, len(op.aggs))}
		for i, expr := range op.aggs {
			if expr != nil {
				g.aggs[i] = newAggregator(expr)
			}
		}
		return g
	})
	g.lock.Lock()
	defer g.lock.Unlock()
	for _, agg := range g.aggs {
		if agg == nil {
			continue
		}
		if err := agg.add(row); err != nil {
			return err
		}
	}
	return nil
}

// groupKey returns the encoded group key of the binding set and the values
// that make it up. Each value is encoded as a uvarint length followed by the
// value's bytes, so an unbound value is a single 0 byte.
func (op *pipelinedAggregation) groupKey(row BindingSet) (string, []rpc.KGObject) {
	vals := make([]rpc.KGObject, len(op.def.GroupBy))
	var key []byte
	var lenBuf [binary.MaxVarintLen64]byte
	for i, v := range op.def.GroupBy {
		vals[i] = row.Get(v)
		enc := vals[i].AsString()
		n := binary.PutUvarint(lenBuf[:], uint64(len(enc)))
		key = append(key, lenBuf[:n]...)
		key = append(key, enc...)
	}
	return string(key), vals
}

// emit is the last pass: it writes out one binding set per group.
func (op *pipelinedAggregation) emit(ctx context.Context, oc *OpContext, state *aggState) error {
	if err := state.finishInput(); err != nil {
		return err
	}
	groups := state.sorted()
	if groups.Len() == 0 && len(op.def.GroupBy) == 0 {
		// Without a GROUP BY, there's always exactly one group, even when
		// there's no input.
		implicit := &aggGroup{aggs: make([]*aggregator, len(op.aggs))}
		for i, expr := range op.aggs {
			if expr != nil {
				implicit.aggs[i] = newAggregator(expr)
			}
		}
		groups.ReplaceOrInsert(groupItem{implicit})
	}
	cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
	var err error
	groups.Ascend(func(i btree.Item) bool {
		if err = cancel.check(); err != nil {
			return false
		}
		row := op.project(i.(groupItem).group)
		if !op.having(row) {
			return true
		}
		err = oc.Sink.AddRow(ctx, row)
		return err == nil
	})
	if err != nil {
		return err
	}
	state.set(aggDone)
	return nil
}

// project returns the output binding set for the group.
func (op *pipelinedAggregation) project(g *aggGroup) BindingSet {
	out := make([]Binding, 0, len(op.def.Select))
	for i, item := range op.def.Select {
		var val rpc.KGObject
		if op.groupIdx[i] >= 0 {
			val = g.key[op.groupIdx[i]]
		} else {
			val = g.aggs[i].result()
		}
		out = append(out, Binding{Var: item.Out, Value: val})
	}
	return NewBindingSet(out...)
}

// having returns true if the output binding set satisfies every HAVING
// constraint. A constraint that fails to evaluate is not satisfied.
func (op *pipelinedAggregation) having(row BindingSet) bool {
	for _, c := range op.def.Having {
		if ok, err := evalConstraint(c, row); !ok || err != nil {
			return false
		}
	}
	return true
}

// aggPhase is the state of an aggregation's shared state.
type aggPhase int32

const (
	aggCreated aggPhase = iota
	aggRunning
	aggLastPass
	aggEmitting
	aggDone
)

func (p aggPhase) String() string {
	switch p {
	case aggCreated:
		return "CREATED"
	case aggRunning:
		return "RUNNING"
	case aggLastPass:
		return "LAST_PASS"
	case aggEmitting:
		return "EMITTING"
	case aggDone:
		return "DONE"
	}
	return fmt.Sprintf("aggPhase(%d)", int32(p))
}

const numAggShards = 16

// aggState is the group state shared by every invocation of an aggregation
// plan node. Groups are spread over shards by a hash of their key; a shard's
// lock only protects its map, and each group has its own lock for updating its
// aggregates.
type aggState struct {
	phase  int32
	shards [numAggShards]aggShard
}

type aggShard struct {
	lock   sync.Mutex
	groups map[string]*aggGroup
}

type aggGroup struct {
	// The values of the GROUP BY variables.
	key  []rpc.KGObject
	lock sync.Mutex
	// Parallel to the Select list, nil for GROUP BY variables.
	aggs []*aggregator
}

func newAggState() *aggState {
	s := new(aggState)
	for i := range s.shards {
		s.shards[i].groups = make(map[string]*aggGroup)
	}
	return s
}

func (s *aggState) current() aggPhase {
	return aggPhase(atomic.LoadInt32(&s.phase))
}

func (s *aggState) advance(from, to aggPhase) bool {
	return atomic.CompareAndSwapInt32(&s.phase, int32(from), int32(to))
}

func (s *aggState) set(to aggPhase) {
	atomic.StoreInt32(&s.phase, int32(to))
}

// start is called by each running invocation.
func (s *aggState) start() error {
	if s.advance(aggCreated, aggRunning) {
		return nil
	}
	if phase := s.current(); phase != aggRunning {
		return fmt.Errorf("aggregation invocation started in phase %v", phase)
	}
	return nil
}

// finishInput is called by the last-pass invocation. It moves through
// LAST_PASS to EMITTING.
func (s *aggState) finishInput() error {
	if !s.advance(aggRunning, aggLastPass) && !s.advance(aggCreated, aggLastPass) {
		return fmt.Errorf("aggregation last pass started in phase %v", s.current())
	}
	s.set(aggEmitting)
	return nil
}

// group returns the group with the given key, creating it with create if
// needed.
func (s *aggState) group(key string, create func() *aggGroup) *aggGroup {
	shard := &s.shards[xxhash.Sum64String(key)%numAggShards]
	shard.lock.Lock()
	defer shard.lock.Unlock()
	g, exists := shard.groups[key]
	if !exists {
		g = create()
		shard.groups[key] = g
	}
	return g
}

// sorted returns every group in a btree ordered by group key.
func (s *aggState) sorted() *btree.BTree {
	tree := btree.New(16)
	for i := range s.shards {
		shard := &s.shards[i]
		shard.lock.Lock()
		for _, g := range shard.groups {
			tree.ReplaceOrInsert(groupItem{g})
		}
		shard.lock.Unlock()
	}
	return tree
}

// groupItem orders groups by their key values, compared one by one, with
// unbound values first.
type groupItem struct {
	group *aggGroup
}

func (a groupItem) Less(than btree.Item) bool {
	b := than.(groupItem)
	for i := range a.group.key {
		if a.group.key[i].Equal(b.group.key[i]) {
			continue
		}
		return a.group.key[i].Less(b.group.key[i])
	}
	return false
}
