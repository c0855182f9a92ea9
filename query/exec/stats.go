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
	"fmt"
	"sync/atomic"
)

// OpStats counts the work done by every invocation of a single plan node.
// The counters are updated atomically and may be read at any time.
type OpStats struct {
	invocations  uint64
	chunksIn     uint64
	unitsIn      uint64
	chunksOut    uint64
	unitsOut     uint64
	altChunksOut uint64
	altUnitsOut  uint64
}

func (s *OpStats) addInvocation() {
	atomic.AddUint64(&s.invocations, 1)
}

func (s *OpStats) addIn(units int) {
	atomic.AddUint64(&s.chunksIn, 1)
	atomic.AddUint64(&s.unitsIn, uint64(units))
}

func (s *OpStats) addOut(alt bool, units int) {
	if alt {
		atomic.AddUint64(&s.altChunksOut, 1)
		atomic.AddUint64(&s.altUnitsOut, uint64(units))
		return
	}
	atomic.AddUint64(&s.chunksOut, 1)
	atomic.AddUint64(&s.unitsOut, uint64(units))
}

// Snapshot returns the current value of the counters. Each counter is read
// atomically, but the snapshot as a whole is not.
func (s *OpStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Invocations:  atomic.LoadUint64(&s.invocations),
		ChunksIn:     atomic.LoadUint64(&s.chunksIn),
		UnitsIn:      atomic.LoadUint64(&s.unitsIn),
		ChunksOut:    atomic.LoadUint64(&s.chunksOut),
		UnitsOut:     atomic.LoadUint64(&s.unitsOut),
		AltChunksOut: atomic.LoadUint64(&s.altChunksOut),
		AltUnitsOut:  atomic.LoadUint64(&s.altUnitsOut),
	}
}

// StatsSnapshot is a copy of the counters in an OpStats. A unit is a binding
// set.
type StatsSnapshot struct {
	Invocations  uint64
	ChunksIn     uint64
	UnitsIn      uint64
	ChunksOut    uint64
	UnitsOut     uint64
	AltChunksOut uint64
	AltUnitsOut  uint64
}

// String returns a string like "invocations=2 in=3/250 out=3/120 alt=2/130",
// where each pair is chunks/units. The alt pair is omitted when zero.
func (s StatsSnapshot) String() string {
	str := fmt.Sprintf("invocations=%d in=%d/%d out=%d/%d",
		s.Invocations, s.ChunksIn, s.UnitsIn, s.ChunksOut, s.UnitsOut)
	if s.AltChunksOut > 0 {
		str += fmt.Sprintf(" alt=%d/%d", s.AltChunksOut, s.AltUnitsOut)
	}
	return str
}
