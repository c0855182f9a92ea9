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
	"time"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/clocks"
)

// Events receives callbacks about the progress of the query execution.
// Methods in the interface can be called concurrently by the execution engine,
// implementations of this interface must be concurrent safe.
type Events interface {
	// OpCompleted is called when an operator invocation has finished
	// execution (even in error cases). The event parameter contains a summary
	// of information about the invocation.
	OpCompleted(event OpCompletedEvent)
	// Clock will be called to obtain a time source that can be used for timing
	// the execution.
	Clock() clocks.Source
}

// OpCompletedEvent contains the collected data about a single invocation of
// an operator. All these fields are populated by exec before it calls the
// OpCompleted method.
type OpCompletedEvent struct {
	// The plan node that was executed. A plan node with MaxParallel > 1 or
	// LastPass generates one event per invocation.
	Plan *plandef.Plan
	// The definition of the Operator that was executed, same as
	// Plan.Operator.
	Operator plandef.Operator
	// Which invocation of the plan node this was, starting from 0.
	Invocation int
	// True for the last-pass invocation of a LastPass plan node.
	LastPass bool
	// When the invocation started execution.
	StartedAt time.Time
	// When the invocation completed execution.
	EndedAt time.Time
	// Chunk/row counts read from all input ports.
	Input StreamStats
	// Chunk/row counts written to the primary output.
	Output StreamStats
	// Chunk/row counts written to the alternate output.
	AltOutput StreamStats
	// if set, the invocation failed with an error.
	Err error
}

// StreamStats contains basic stats about a particular operator stream.
type StreamStats struct {
	NumChunks      int
	NumBindingSets int
}

func (s StreamStats) add(other StreamStats) StreamStats {
	return StreamStats{
		NumChunks:      s.NumChunks + other.NumChunks,
		NumBindingSets: s.NumBindingSets + other.NumBindingSets,
	}
}

// ignoreEvents is an implementation of Events that ignores the callbacks.
type ignoreEvents struct {
}

func (ignoreEvents) OpCompleted(event OpCompletedEvent) {
}

func (ignoreEvents) Clock() clocks.Source {
	return clocks.Wall
}
