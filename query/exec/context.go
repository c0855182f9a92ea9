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
	"github.com/ebay/chunkflow/query/planner/plandef"
)

// OpContext is the wiring for a single invocation of a plan node. The
// scheduler creates one for each invocation; operators only read it.
type OpContext struct {
	// The plan node being executed.
	Plan *plandef.Plan
	// The streams to read from, indexed by input port. Every port the
	// operator uses has a Source, even if no plan input feeds it.
	Inputs []*Source
	// The primary output. Never nil.
	Sink *Sink
	// The alternate output. nil if no plan node consumes the alternate output.
	AltSink *Sink
	// Counters shared by every invocation of the plan node.
	Stats *OpStats
	// State shared by every invocation of the plan node, for operators that
	// need it. nil otherwise.
	Shared interface{}
	// Which invocation this is, starting from 0.
	Invocation int
	// True for the extra invocation of a LastPass plan node, which starts
	// once every other invocation has consumed all its input. Its Inputs are
	// empty.
	LastPass bool
	// The engine options the plan is being run with.
	Options Options
}

// Source returns the stream for input port 0.
func (oc *OpContext) Source() *Source {
	return oc.Input(0)
}

// Input returns the stream for the given input port, or an empty stream if
// there isn't one.
func (oc *OpContext) Input(port int) *Source {
	if port < len(oc.Inputs) && oc.Inputs[port] != nil {
		return oc.Inputs[port]
	}
	return emptySource()
}
