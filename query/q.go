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

// Package query provides a high level entry point for executing plans. It
// wraps the executor with tracing, metrics, the optional debug report, and a
// registry of recent executions for the admin API.
package query

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ebay/chunkflow/config"
	"github.com/ebay/chunkflow/query/exec"
	"github.com/ebay/chunkflow/query/internal/debug"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/clocks"
	"github.com/ebay/chunkflow/util/table"
	"github.com/ebay/chunkflow/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
)

// Chunk contains a part of the results of an execution.
type Chunk = exec.Chunk

// DefaultHistory is the number of completed executions an Engine remembers
// when New is given zero.
const DefaultHistory = 64

// Options contains various settings that affect a single execution.
type Options struct {
	// A short human readable description of the execution, shown in the
	// registry and the debug report.
	Label string
	// The external chunk producers that the plan's Scan nodes read, by name.
	// Every producer is closed by the time Run returns.
	Producers map[string]exec.ChunkProducer
	// If set diagnostic information about the execution will be collected into a report.
	Debug bool
	// By default the report is written to a file in $TMPDIR. If DebugOut is set, the report
	// will be written to that instead.
	DebugOut io.Writer
	// If set the Debug tracker and the registry will use this clock for generating timing
	// information, if not set it'll use clocks.Wall.
	Clock clocks.Source
}

// Engine provides a high level interface for running plans.
type Engine struct {
	execOpts exec.Options
	history  int
	lock     sync.Mutex
	// The following are protected by lock.
	nextID uint64
	// Running executions and the last 'history' completed ones, by ID.
	executions map[uint64]*Execution
	// IDs of completed executions, oldest first.
	completed []uint64
}

// New creates a new Engine, the resulting Engine can be used concurrently to
// run plans. cfg may be nil, in which case the engine defaults are used.
// history is the number of completed executions to remember; zero means
// DefaultHistory.
func New(cfg *config.Pipeline, history int) *Engine {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Engine{
		execOpts:   exec.NewOptions(cfg),
		history:    history,
		executions: make(map[uint64]*Execution),
	}
}

// Execution describes a plan run by the Engine, while it's running and for a
// while after it completes.
type Execution struct {
	ID      uint64
	Label   string
	Plan    *plandef.Plan
	Started time.Time
	lock    sync.Mutex
	// The following are protected by lock.
	ended    time.Time
	err      error
	prepared *exec.Execution
}

// Summary is a snapshot of an Execution suitable for listing.
type Summary struct {
	ID       uint64        `json:"id"`
	Label    string        `json:"label"`
	Started  time.Time     `json:"started"`
	Running  bool          `json:"running"`
	Duration time.Duration `json:"durationNanos"`
	Error    string        `json:"error,omitempty"`
}

// Summary returns a snapshot of the execution. now is used for the duration
// of a running execution.
func (e *Execution) Summary(now time.Time) Summary {
	e.lock.Lock()
	defer e.lock.Unlock()
	s := Summary{
		ID:      e.ID,
		Label:   e.Label,
		Started: e.Started,
		Running: e.ended.IsZero(),
	}
	if s.Running {
		s.Duration = now.Sub(e.Started)
	} else {
		s.Duration = e.ended.Sub(e.Started)
	}
	if e.err != nil {
		s.Error = e.err.Error()
	}
	return s
}

// Stats returns the per-node counters of the execution, children before
// parents. It's empty if the plan failed to prepare.
func (e *Execution) Stats() []exec.NodeStats {
	e.lock.Lock()
	prepared := e.prepared
	e.lock.Unlock()
	if prepared == nil {
		return nil
	}
	return prepared.Stats()
}

// WriteStats writes the per-node counters as a text table.
func (e *Execution) WriteStats(w io.Writer) {
	rows := [][]string{{"Operator", "Invocations", "Chunks In", "Rows In", "Chunks Out", "Rows Out", "Alt Chunks", "Alt Rows"}}
	for _, s := range e.Stats() {
		rows = append(rows, []string{
			s.Plan.Operator.String(),
			fmt.Sprint(s.Stats.Invocations),
			fmt.Sprint(s.Stats.ChunksIn),
			fmt.Sprint(s.Stats.UnitsIn),
			fmt.Sprint(s.Stats.ChunksOut),
			fmt.Sprint(s.Stats.UnitsOut),
			fmt.Sprint(s.Stats.AltChunksOut),
			fmt.Sprint(s.Stats.AltUnitsOut),
		})
	}
	table.PrettyPrint(w, rows, table.HeaderRow)
}

func (e *Execution) setPrepared(prepared *exec.Execution) {
	e.lock.Lock()
	e.prepared = prepared
	e.lock.Unlock()
}

func (e *Execution) finish(ended time.Time, err error) {
	e.lock.Lock()
	e.ended = ended
	e.err = err
	e.lock.Unlock()
}

// Run executes the plan, writing the root node's results to the provided
// 'resCh' channel. The caller can apply backpressure to the execution by
// reading slowly from this channel.
//
// This function will block until the execution has completed and all results
// have been passed to the 'resCh' channel, or an error occurs. In all cases
// resCh will be closed and every producer in opt.Producers will be closed
// before this function returns.
func (e *Engine) Run(ctx context.Context, plan *plandef.Plan, opt Options, resCh chan<- Chunk) error {
	clock := opt.Clock
	if clock == nil {
		clock = clocks.Wall
	}
	span, ctx := opentracing.StartSpanFromContext(ctx, "Run plan")
	defer span.Finish()

	tracker := debug.New(opt.Debug, opt.DebugOut, clock, opt.Label)
	defer tracker.Close()
	execution := e.register(plan, opt.Label, clock.Now())
	span.SetTag("execution_id", execution.ID)

	execOpts := e.execOpts
	execOpts.Producers = opt.Producers

	span, _ = opentracing.StartSpanFromContext(ctx, "prepare plan")
	tracing.UpdateMetric(span, metrics.prepareDurationSeconds)
	prepared, err := exec.Prepare(plan, execOpts)
	tracker.Prepared(plan, prepared, err)
	span.Finish()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"execution_id": execution.ID,
			"error":        err,
		}).Warn("Plan failed to prepare")
		// Run would have closed these, but it never gets called.
		for _, p := range opt.Producers {
			p.Close()
		}
		close(resCh)
		e.complete(execution, clock.Now(), err)
		tracker.Finished(err)
		metrics.executionsTotal.WithLabelValues("configuration").Inc()
		return err
	}
	execution.setPrepared(prepared)

	span, cctx := opentracing.StartSpanFromContext(ctx, "execute plan")
	tracing.UpdateMetric(span, metrics.executeDurationSeconds)
	err = prepared.Run(cctx, tracker.ExecEvents(plan), resCh)
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("error", err.Error())
	}
	span.Finish()
	e.complete(execution, clock.Now(), err)
	tracker.Finished(err)
	metrics.executionsTotal.WithLabelValues(outcome(err)).Inc()
	logrus.WithFields(logrus.Fields{
		"execution_id": execution.ID,
		"label":        opt.Label,
		"error":        err,
	}).Debug("Plan execution completed")
	return err
}

// outcome classifies an execution result for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return exec.ErrorKind(err)
}

func (e *Engine) register(plan *plandef.Plan, label string, now time.Time) *Execution {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.nextID++
	execution := &Execution{
		ID:      e.nextID,
		Label:   label,
		Plan:    plan,
		Started: now,
	}
	e.executions[execution.ID] = execution
	return execution
}

func (e *Engine) complete(execution *Execution, now time.Time, err error) {
	execution.finish(now, err)
	e.lock.Lock()
	defer e.lock.Unlock()
	e.completed = append(e.completed, execution.ID)
	for len(e.completed) > e.history {
		delete(e.executions, e.completed[0])
		e.completed = e.completed[1:]
	}
}

// Lookup returns the execution with the given ID, or nil if it's not running
// and too old to be remembered.
func (e *Engine) Lookup(id uint64) *Execution {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.executions[id]
}

// Recent returns summaries of the running and remembered executions, newest
// first.
func (e *Engine) Recent(now time.Time) []Summary {
	e.lock.Lock()
	executions := make([]*Execution, 0, len(e.executions))
	for _, execution := range e.executions {
		executions = append(executions, execution)
	}
	e.lock.Unlock()
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].ID > executions[j].ID
	})
	res := make([]Summary, len(executions))
	for i, execution := range executions {
		res[i] = execution.Summary(now)
	}
	return res
}
