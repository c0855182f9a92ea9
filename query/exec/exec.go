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
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ebay/chunkflow/config"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/parallel"
)

// Defaults for the Options fields.
const (
	DefaultChunkCapacity       = 100
	DefaultSinkCapacity        = 4
	DefaultCancelCheckInterval = 20
	DefaultMaxParallel         = 1
)

// Options control how a plan is executed. Zero values are replaced with the
// defaults.
type Options struct {
	// The number of binding sets an operator stages before writing a chunk.
	ChunkCapacity int
	// The number of chunks a stream buffers before its producers block.
	SinkCapacity int
	// Operators check for cancellation after this many binding sets.
	CancelCheckInterval int
	// The number of invocations for plan nodes that don't set MaxParallel.
	DefaultMaxParallel int
	// The external chunk streams that Scan nodes read from, by name. Run
	// closes the producers that Scan nodes read, and Execute closes all of
	// them if the plan can't be prepared.
	Producers map[string]ChunkProducer
}

// NewOptions returns the Options described by the configuration. cfg may be
// nil.
func NewOptions(cfg *config.Pipeline) Options {
	var opts Options
	if cfg != nil {
		opts = Options{
			ChunkCapacity:       cfg.ChunkCapacity,
			SinkCapacity:        cfg.SinkCapacity,
			CancelCheckInterval: cfg.CancelCheckInterval,
			DefaultMaxParallel:  cfg.DefaultMaxParallel,
		}
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.ChunkCapacity <= 0 {
		o.ChunkCapacity = DefaultChunkCapacity
	}
	if o.SinkCapacity <= 0 {
		o.SinkCapacity = DefaultSinkCapacity
	}
	if o.CancelCheckInterval <= 0 {
		o.CancelCheckInterval = DefaultCancelCheckInterval
	}
	if o.DefaultMaxParallel <= 0 {
		o.DefaultMaxParallel = DefaultMaxParallel
	}
	return o
}

func (o Options) closeProducers() {
	for _, p := range o.Producers {
		p.Close()
	}
}

// Execute runs the plan, writing the root node's output to resCh. It blocks
// until the query has completed and all results have been passed to resCh, or
// an error occurs. In all cases resCh is closed before Execute returns. events
// may be nil.
func Execute(ctx context.Context, events Events, plan *plandef.Plan, opts Options, resCh chan<- Chunk) error {
	execution, err := Prepare(plan, opts)
	if err != nil {
		opts.closeProducers()
		close(resCh)
		return err
	}
	return execution.Run(ctx, events, resCh)
}

// node is a plan node prepared for execution.
type node struct {
	plan  *plandef.Plan
	op    operator
	shape opShape
	// The number of running invocations, not counting the last pass.
	parallel int
	stats    *OpStats
}

// outputKey identifies an output of a plan node.
type outputKey struct {
	plan *plandef.Plan
	alt  bool
}

// portKey identifies an input port of a plan node. There's one stream for
// each port in use.
type portKey struct {
	plan *plandef.Plan
	port int
}

// Execution is a plan that has been checked and is ready to run. An Execution
// can be run only once.
type Execution struct {
	plan *plandef.Plan
	opts Options
	// Children before parents. The root is last.
	nodes  []*node
	byPlan map[*plandef.Plan]*node
	// Where each consumed output goes.
	consumers map[outputKey]portKey
	started   int32
}

// Prepare checks the plan and builds the operators for it. It returns a
// ConfigurationError if any plan node is misconfigured, or if the plan isn't
// a valid DAG: each node output may be consumed at most once, and input ports
// must exist on the consuming operator.
func Prepare(plan *plandef.Plan, opts Options) (*Execution, error) {
	if plan == nil {
		return nil, &ConfigurationError{Reason: "no plan"}
	}
	if err := checkAcyclic(plan); err != nil {
		return nil, err
	}
	e := &Execution{
		plan:      plan,
		opts:      opts.withDefaults(),
		byPlan:    make(map[*plandef.Plan]*node),
		consumers: make(map[outputKey]portKey),
	}
	var err error
	plan.Walk(func(p *plandef.Plan) {
		if err != nil {
			return
		}
		var n *node
		n, err = e.prepareNode(p)
		if err == nil {
			e.nodes = append(e.nodes, n)
			e.byPlan[p] = n
		}
	})
	if err != nil {
		return nil, err
	}
	scans := make(map[string]bool)
	for _, n := range e.nodes {
		for _, in := range n.plan.Inputs {
			if in.Port < 0 || in.Port >= n.shape.ports {
				return nil, configErrorf(n.plan.Operator, "invalid input port %d", in.Port)
			}
			if _, isRouting := in.From.Operator.(*plandef.ConditionalRouting); in.Alt && !isRouting {
				return nil, configErrorf(n.plan.Operator,
					"input from %v: only routing has an alternate output", in.From.Operator)
			}
			out := outputKey{plan: in.From, alt: in.Alt}
			if _, dup := e.consumers[out]; dup {
				return nil, configErrorf(in.From.Operator, "output (alt=%v) is consumed more than once", in.Alt)
			}
			e.consumers[out] = portKey{plan: n.plan, port: in.Port}
		}
		if def, ok := n.plan.Operator.(*plandef.Scan); ok {
			if scans[def.Name] {
				return nil, configErrorf(def, "producer %q is read by more than one scan", def.Name)
			}
			scans[def.Name] = true
			if e.opts.Producers[def.Name] == nil {
				return nil, configErrorf(def, "no chunk producer named %q", def.Name)
			}
		}
	}
	return e, nil
}

func (e *Execution) prepareNode(p *plandef.Plan) (*node, error) {
	if p.Operator == nil {
		return nil, &ConfigurationError{Reason: "plan node has no operator"}
	}
	shape := shapeOf(p.Operator)
	parallel := p.Annotations.MaxParallel
	switch {
	case parallel < 0:
		return nil, configErrorf(p.Operator, "invalid MaxParallel %d", parallel)
	case shape.serial && parallel > 1:
		return nil, configErrorf(p.Operator, "operator runs a single invocation, MaxParallel is %d", parallel)
	case shape.serial || parallel == 1:
		parallel = 1
	case parallel == 0:
		parallel = e.opts.DefaultMaxParallel
	}
	if shape.ports == 0 && len(p.Inputs) > 0 {
		return nil, configErrorf(p.Operator, "operator takes no inputs, got %d", len(p.Inputs))
	}
	if shape.ports > 0 && len(p.Inputs) == 0 {
		return nil, configErrorf(p.Operator, "operator needs at least one input")
	}
	op, err := buildOperator(p, parallel)
	if err != nil {
		return nil, err
	}
	return &node{
		plan:     p,
		op:       op,
		shape:    shape,
		parallel: parallel,
		stats:    new(OpStats),
	}, nil
}

// checkAcyclic returns a ConfigurationError if a plan node is its own
// descendant.
func checkAcyclic(root *plandef.Plan) error {
	const (
		visiting = 1
		visited  = 2
	)
	state := make(map[*plandef.Plan]int)
	var visit func(p *plandef.Plan) error
	visit = func(p *plandef.Plan) error {
		switch state[p] {
		case visiting:
			return configErrorf(p.Operator, "plan has a cycle")
		case visited:
			return nil
		}
		state[p] = visiting
		for _, in := range p.Inputs {
			if in.From == nil {
				return configErrorf(p.Operator, "input has no plan node")
			}
			if err := visit(in.From); err != nil {
				return err
			}
		}
		state[p] = visited
		return nil
	}
	return visit(root)
}

// nodeRun holds the invocations of one plan node during Run.
type nodeRun struct {
	node     *node
	running  []*OpContext
	tasks    []Task
	lastPass *OpContext
	lastTask Task
}

func (r *nodeRun) contexts() []*OpContext {
	if r.lastPass == nil {
		return r.running
	}
	return append(append([]*OpContext(nil), r.running...), r.lastPass)
}

// Run executes the plan, writing the root node's output to resCh, and blocks
// until every operator invocation has completed. resCh is always closed
// before Run returns. events may be nil.
//
// Every invocation of every plan node runs concurrently, except that the
// last-pass invocation of a LastPass node starts only once all the node's
// other invocations have completed successfully. The first invocation to
// fail cancels the others. Run returns the error that caused the failure,
// rather than the errors that other invocations saw as a result.
func (e *Execution) Run(ctx context.Context, events Events, resCh chan<- Chunk) error {
	defer close(resCh)
	if !atomic.CompareAndSwapInt32(&e.started, 0, 1) {
		return errors.New("exec: an Execution can only be run once")
	}
	if events == nil {
		events = ignoreEvents{}
	}
	streams := make(map[portKey]*buffer)
	stream := func(k portKey) *buffer {
		b, exists := streams[k]
		if !exists {
			b = newBuffer(e.opts.SinkCapacity)
			streams[k] = b
		}
		return b
	}
	rootStream := newBuffer(e.opts.SinkCapacity)
	rootSource := rootStream.newSource(nil)

	runs := make([]*nodeRun, len(e.nodes))
	for i, n := range e.nodes {
		run := &nodeRun{node: n}
		var shared interface{}
		if s, ok := n.op.(stateful); ok {
			shared = s.newShared()
		}
		usedPorts := make(map[int]bool)
		for _, in := range n.plan.Inputs {
			usedPorts[in.Port] = true
		}
		count := n.parallel
		if n.plan.Annotations.LastPass {
			count++
		}
		for inv := 0; inv < count; inv++ {
			oc := &OpContext{
				Plan:       n.plan,
				Inputs:     make([]*Source, n.shape.ports),
				Stats:      n.stats,
				Shared:     shared,
				Invocation: inv,
				LastPass:   inv == n.parallel,
				Options:    e.opts,
			}
			for port := range oc.Inputs {
				if oc.LastPass || !usedPorts[port] {
					oc.Inputs[port] = emptySource()
				} else {
					oc.Inputs[port] = stream(portKey{n.plan, port}).newSource(n.stats)
				}
			}
			if n.plan == e.plan {
				oc.Sink = rootStream.newSink(e.opts.ChunkCapacity, n.stats, false)
			} else if target, ok := e.consumers[outputKey{n.plan, false}]; ok {
				oc.Sink = stream(target).newSink(e.opts.ChunkCapacity, n.stats, false)
			} else {
				oc.Sink = discardSink(e.opts.ChunkCapacity, n.stats, false)
			}
			if target, ok := e.consumers[outputKey{n.plan, true}]; ok {
				oc.AltSink = stream(target).newSink(e.opts.ChunkCapacity, n.stats, true)
			}
			if oc.LastPass {
				run.lastPass = oc
			} else {
				run.running = append(run.running, oc)
			}
		}
		runs[i] = run
	}

	// Evaluate every invocation before starting any, so that configuration
	// errors are found before any data moves.
	var evalErr error
	for _, run := range runs {
		for _, oc := range run.contexts() {
			task, err := run.node.op.evaluate(oc)
			if err != nil {
				evalErr = err
				break
			}
			if oc.LastPass {
				run.lastTask = task
			} else {
				run.tasks = append(run.tasks, task)
			}
		}
		if evalErr != nil {
			break
		}
	}
	if evalErr != nil {
		for _, run := range runs {
			for _, oc := range run.contexts() {
				abandonInvocation(oc, evalErr)
			}
		}
		rootSource.Close()
		e.opts.closeProducers()
		return evalErr
	}

	return parallel.InvokeRootCause(ctx, len(runs)+1,
		func(ctx context.Context, i int) error {
			if i == len(runs) {
				return forward(ctx, rootSource, resCh)
			}
			return runNode(ctx, runs[i], events)
		},
		isDerived)
}

// runNode runs the invocations of a single plan node.
func runNode(ctx context.Context, run *nodeRun, events Events) error {
	err := parallel.InvokeRootCause(ctx, len(run.running),
		func(ctx context.Context, i int) error {
			return runInvocation(ctx, run.running[i], run.tasks[i], events)
		},
		isDerived)
	if run.lastPass == nil {
		return err
	}
	if err != nil {
		abandonInvocation(run.lastPass, err)
		return err
	}
	return runInvocation(ctx, run.lastPass, run.lastTask, events)
}

// forward copies the root node's output to resCh.
func forward(ctx context.Context, src *Source, resCh chan<- Chunk) error {
	defer src.Close()
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case resCh <- chunk:
		case <-ctx.Done():
			return &CancellationError{Err: ctx.Err()}
		}
	}
}

// NodeStats are the counters for a single plan node.
type NodeStats struct {
	Plan  *plandef.Plan
	Stats StatsSnapshot
}

func (s NodeStats) String() string {
	return fmt.Sprintf("%v: %v", s.Plan.Operator, s.Stats)
}

// Stats returns the current counters for every plan node, children before
// parents. It may be called while the execution is running.
func (e *Execution) Stats() []NodeStats {
	res := make([]NodeStats, len(e.nodes))
	for i, n := range e.nodes {
		res[i] = NodeStats{Plan: n.plan, Stats: n.stats.Snapshot()}
	}
	return res
}

// Plan returns the plan being executed.
func (e *Execution) Plan() *plandef.Plan {
	return e.plan
}
