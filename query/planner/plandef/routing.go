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

package plandef

import (
	"strings"
)

// ConditionalRouting splits its input in two. Binding sets that satisfy
// Condition go to the primary output. The others go to the alternate output if
// some node consumes it (an Input with Alt set), and are dropped otherwise,
// which makes the node a filter.
//
// Binding sets sent to the same output stay in their input order, but there is
// no ordering between the two outputs.
type ConditionalRouting struct {
	Condition Constraint
}

func (*ConditionalRouting) anOperator() {}

// String returns a string like "Route (?x > 2)".
func (op *ConditionalRouting) String() string {
	if op.Condition == nil {
		return "Route <nil>"
	}
	return "Route " + op.Condition.String()
}

// Key implements cmp.Key.
func (op *ConditionalRouting) Key(b *strings.Builder) {
	b.WriteString("Route ")
	if op.Condition != nil {
		op.Condition.Key(b)
	}
}
