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

package debug

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ebay/chunkflow/query/exec"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/bytes"
	"github.com/ebay/chunkflow/util/clocks"
	"github.com/ebay/chunkflow/util/cmp"
)

// execEvents implements exec.Events, capturing OpCompleted events. It
// generates a version of the plan that shows the timing/results size info
// collected from these events.
type execEvents struct {
	plan   *plandef.Plan
	clock  clocks.Source
	lock   sync.Mutex // protects locked
	locked struct {
		events []exec.OpCompletedEvent
	}
}

func newExecEvents(p *plandef.Plan, clock clocks.Source) *execEvents {
	e := execEvents{
		plan:  p,
		clock: clock,
	}
	e.locked.events = make([]exec.OpCompletedEvent, 0, 8)
	return &e
}

// OpCompleted implements the exec.Events interface
func (e *execEvents) OpCompleted(event exec.OpCompletedEvent) {
	e.lock.Lock()
	e.locked.events = append(e.locked.events, event)
	e.lock.Unlock()
}

// Clock implements the exec.Events interface
func (e *execEvents) Clock() clocks.Source {
	return e.clock
}

// label returns how an input edge is written in the dump, matching
// plandef.Plan's String.
func label(in plandef.Input) string {
	edge := ""
	if in.Alt {
		edge = "alt: "
	}
	if in.Port != 0 {
		edge = fmt.Sprintf("%d: %s", in.Port, edge)
	}
	return edge
}

// dump writes a textual summary of the executed plan to the supplied
// StringWriter. It contains a line for each plan node, with summary
// information about what its invocations did. A node that feeds more than one
// parent is summarized the first time only.
func (e *execEvents) dump(w bytes.StringWriter) {
	e.lock.Lock()
	defer e.lock.Unlock()
	// maxLen returns the length of the longest operator description from the
	// plan, including padding.
	var maxLen func(depth int, edge string, p *plandef.Plan) int
	maxLen = func(depth int, edge string, p *plandef.Plan) int {
		l := depth*4 + len(edge) + len(p.Operator.String())
		for _, in := range p.Inputs {
			l = cmp.MaxInt(l, maxLen(depth+1, label(in), in.From))
		}
		return l
	}
	maxOpLen := maxLen(0, "", e.plan) + 1
	seen := make(map[*plandef.Plan]bool)
	var writeOp func(depth int, edge string, p *plandef.Plan)
	writeOp = func(depth int, edge string, p *plandef.Plan) {
		desc := edge + p.Operator.String()
		summary := opTotals(p, e.locked.events)
		if seen[p] {
			summary = "(see above)"
		}
		fmt.Fprintf(w, "%s%s%s %s\n",
			strings.Repeat(" ", depth*4),
			desc,
			strings.Repeat(" ", maxOpLen-(depth*4)-len(desc)),
			summary)
		if seen[p] {
			return
		}
		seen[p] = true
		for _, in := range p.Inputs {
			writeOp(depth+1, label(in), in.From)
		}
	}
	writeOp(0, "", e.plan)
}

// opTotals returns a string with the an aggregate summary of the events for the
// supplied plan node.
func opTotals(p *plandef.Plan, events []exec.OpCompletedEvent) string {
	var duration time.Duration
	var executions int
	var failures int
	var input, output, alt exec.StreamStats

	for _, event := range events {
		if event.Plan != p {
			continue
		}
		duration += event.EndedAt.Sub(event.StartedAt)
		executions++
		if event.Err != nil {
			failures++
		}
		input.NumChunks += event.Input.NumChunks
		input.NumBindingSets += event.Input.NumBindingSets
		output.NumChunks += event.Output.NumChunks
		output.NumBindingSets += event.Output.NumBindingSets
		alt.NumChunks += event.AltOutput.NumChunks
		alt.NumBindingSets += event.AltOutput.NumBindingSets
	}

	if executions == 0 {
		return "[not executed]"
	}
	avg := ""
	if executions > 1 {
		avg = fmt.Sprintf(" (avg exec %v)",
			(duration / time.Duration(executions)).Round(time.Millisecond))
	}
	altOut := ""
	if alt.NumChunks > 0 {
		altOut = fmt.Sprintf(" | alt rows:%6d", alt.NumBindingSets)
	}
	failed := ""
	if failures > 0 {
		failed = fmt.Sprintf(" | failed:%3d", failures)
	}
	return fmt.Sprintf("execs:%4d | totals: | input rows:%6d | out chunks:%4d | out rows:%6d%s%s | took %6v%s",
		executions, input.NumBindingSets, output.NumChunks, output.NumBindingSets,
		altOut, failed, duration.Round(time.Millisecond), avg)
}
