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

// Package debug collects diagnostic information about a single plan execution
// and writes it out as a human readable report.
package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ebay/chunkflow/query/exec"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/bytes"
	"github.com/ebay/chunkflow/util/clocks"
	"github.com/sirupsen/logrus"
)

// timestampFormat is used to format the timestamps written to the report.
const timestampFormat = "2006-01-02 15:04:05.000000 MST"

// Tracker defines points in the plan execution sequence. The query Engine
// will call these at the appropriate places in the processing.
type Tracker interface {
	// Prepared is called once the plan has been checked, with the prepared
	// execution or the configuration error.
	Prepared(*plandef.Plan, *exec.Execution, error)
	// ExecEvents returns the Events to run the execution with, or nil.
	ExecEvents(plan *plandef.Plan) exec.Events
	// Finished is called once the execution has completed.
	Finished(error)
	Close()
}

// trackerID is used by New() to assign an Id to the execution, via an
// atomic.Add. Nothing else should need to be reading or writing this.
var trackerID uint64

// New returns a new Tracker. The caller is expected to arrange for the various
// methods on Tracker to get called at the right time. It is unlikely that you
// need to create one of these unless you're working in the query package
// itself. If 'debug' is set the tracker will accumulate a detailed execution
// report and write it to debugOut. If debugOut is nil, the report will be
// written to a file in $TMPDIR. If 'debug' is false, a no-op Tracker is
// returned. label describes the execution in the report.
func New(debug bool, debugOut io.Writer, clock clocks.Source, label string) Tracker {
	if !debug {
		return noopTracker{}
	}
	if clock == nil {
		clock = clocks.Wall
	}
	t := &debugTracker{
		id:    atomic.AddUint64(&trackerID, 1),
		clock: clock,
	}
	if debugOut == nil {
		f, err := os.Create(filepath.Join(os.TempDir(), fmt.Sprintf("chunkflow_debug_%d", t.id)))
		if err != nil {
			logrus.Warnf("Unable to create execution debug file: %v", err)
			return noopTracker{}
		}
		logrus.Infof("Execution Debug Info %d being written to %s", t.id, f.Name())
		t.close = f
		debugOut = f
	}
	t.out = bufio.NewWriter(debugOut)
	t.started = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Started at: %s\n", t.started.UTC().Format(timestampFormat))
	t.report.label = label
	return t
}

// debugTracker implements the Tracker interface. It will generate a human
// readable report containing diagnostic information about the execution.
type debugTracker struct {
	id       uint64
	clock    clocks.Source
	started  time.Time
	prepared time.Time
	finished time.Time
	// out is where the report will be written to.
	out *bufio.Writer
	// close if set will be closed once the report is written.
	close io.Closer
	// The created report contains the below sections, in the order you see.
	report struct {
		header    strings.Builder
		label     string
		plan      string
		result    string
		nodeStats func(bytes.StringWriter)
		execution func(bytes.StringWriter)
	}
}

func (t *debugTracker) Prepared(plan *plandef.Plan, execution *exec.Execution, err error) {
	t.prepared = t.clock.Now()
	fmt.Fprintf(&t.report.header, "Preparing %v\n", t.prepared.Sub(t.started))
	if plan != nil {
		t.report.plan = plan.String()
	}
	if err != nil {
		t.report.result = fmt.Sprintf("Error: %v\n", err)
		return
	}
	t.report.nodeStats = func(w bytes.StringWriter) {
		for _, s := range execution.Stats() {
			fmt.Fprintf(w, "%v\n", s)
		}
	}
}

func (t *debugTracker) ExecEvents(plan *plandef.Plan) exec.Events {
	e := newExecEvents(plan, t.clock)
	t.report.execution = e.dump
	return e
}

func (t *debugTracker) Finished(err error) {
	t.finished = t.clock.Now()
	if err != nil {
		t.report.result = fmt.Sprintf("Error: %v\n", err)
		return
	}
	t.report.result = "OK\n"
}

func (t *debugTracker) Close() {
	end := t.clock.Now()
	t.out.WriteString(t.report.header.String())
	if !t.prepared.IsZero() && !t.finished.IsZero() {
		fmt.Fprintf(t.out, "Executing %v\n", t.finished.Sub(t.prepared))
	}
	fmt.Fprintf(t.out, "Ended at: %s\n", end.UTC().Format(timestampFormat))
	fmt.Fprintf(t.out, "Total: %v\n\n", end.Sub(t.started))
	t.out.WriteString(t.report.label)
	t.out.WriteByte('\n')
	if t.report.plan != "" {
		t.out.WriteString("\nPlan:\n")
		t.out.WriteString(t.report.plan)
	}
	if t.report.result != "" {
		t.out.WriteString("\nResult:\n")
		t.out.WriteString(t.report.result)
	}
	if t.report.execution != nil {
		t.out.WriteString("\nExecution Summary:\n")
		t.report.execution(t.out)
	}
	if t.report.nodeStats != nil {
		t.out.WriteString("\nNode Counters:\n")
		t.report.nodeStats(t.out)
	}
	t.out.WriteByte('\n')

	flushErr := t.out.Flush()
	if flushErr != nil {
		logrus.WithFields(logrus.Fields{
			"execution_id": t.id,
			"error":        flushErr,
		}).Warn("Error writing report for execution")
	}
	// even if the flush failed, we should still try and close the ouput if
	// needed.
	if t.close != nil {
		closeErr := t.close.Close()
		if closeErr != nil {
			logrus.WithFields(logrus.Fields{
				"execution_id": t.id,
				"error":        closeErr,
			}).Warn("Error closing report for execution")
			return
		}
	}
	if flushErr != nil {
		return
	}
	logrus.WithField("execution_id", t.id).Info("Completed execution debug report")
}

// noopTracker implements the Tracker interface, everything is effectively a
// no-op
type noopTracker struct {
}

func (noopTracker) Prepared(*plandef.Plan, *exec.Execution, error) {}
func (noopTracker) ExecEvents(plan *plandef.Plan) exec.Events {
	return nil
}
func (noopTracker) Finished(error) {}
func (noopTracker) Close()         {}
