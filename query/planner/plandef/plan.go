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
	"fmt"
	"strings"

	"github.com/ebay/chunkflow/util/cmp"
)

// A Plan is a node in an executable query plan. Plans form a DAG: a
// ConditionalRouting node's primary and alternate outputs can feed two
// different parents. The Plan with no parent is the root; its primary output
// is the result of the query.
type Plan struct {
	// Which operation to execute, including its scalar arguments.
	Operator Operator
	// The outputs of other plan nodes that this node consumes. Most operators
	// merge all their inputs into a single stream; HashJoin uses the Port to
	// tell its left and right inputs apart.
	Inputs []Input
	// How the node may be scheduled.
	Annotations Annotations
}

// An Input is an edge from the output of one Plan node into another.
type Input struct {
	// The node producing the binding sets.
	From *Plan
	// If true, consume From's alternate output (the binding sets that a
	// ConditionalRouting node's condition rejected) rather than its primary
	// output.
	Alt bool
	// Which input of the consuming operator this edge feeds. Only HashJoin has
	// more than one port.
	Port int
}

// Annotations are the scheduling options of a Plan node.
type Annotations struct {
	// The number of concurrent invocations of the operator. Zero means the
	// engine's default.
	MaxParallel int
	// If true, all invocations of the operator share one mutable state object,
	// which is required for grouping when there is more than one invocation.
	SharedState bool
	// If true, the operator is invoked one more time after every other
	// invocation has consumed all its input. Aggregation uses this to emit its
	// results.
	LastPass bool
}

// String returns a string like "parallel=4 shared lastPass", or "" for the
// zero value.
func (a Annotations) String() string {
	var parts []string
	if a.MaxParallel != 0 {
		parts = append(parts, fmt.Sprintf("parallel=%d", a.MaxParallel))
	}
	if a.SharedState {
		parts = append(parts, "shared")
	}
	if a.LastPass {
		parts = append(parts, "lastPass")
	}
	return strings.Join(parts, " ")
}

// String returns a multi-line indented human-readable string describing the
// plan. A node reachable along more than one edge is written out in full the
// first time and referred to as "(see above)" after that.
func (plan *Plan) String() string {
	var b strings.Builder
	seen := make(map[*Plan]bool)
	var print func(plan *Plan, edge string, indent string)
	print = func(plan *Plan, edge string, indent string) {
		fmt.Fprintf(&b, "%v%v%v", indent, edge, plan.Operator)
		if a := plan.Annotations.String(); a != "" {
			fmt.Fprintf(&b, " [%s]", a)
		}
		if seen[plan] {
			b.WriteString(" (see above)\n")
			return
		}
		b.WriteByte('\n')
		seen[plan] = true
		for _, input := range plan.Inputs {
			edge := ""
			if input.Alt {
				edge = "alt: "
			}
			if input.Port != 0 {
				edge = fmt.Sprintf("%d: %s", input.Port, edge)
			}
			print(input.From, edge, indent+"\t")
		}
	}
	print(plan, "", "")
	return b.String()
}

// Walk calls fn once for each node reachable from plan, children before
// parents.
func (plan *Plan) Walk(fn func(*Plan)) {
	seen := make(map[*Plan]bool)
	var walk func(p *Plan)
	walk = func(p *Plan) {
		if seen[p] {
			return
		}
		seen[p] = true
		for _, input := range p.Inputs {
			walk(input.From)
		}
		fn(p)
	}
	walk(plan)
}

// Operator is a physical, executable operator.
type Operator interface {
	String() string
	cmp.Key
	anOperator()
}

// ImplementOperator is a list of types that implement Operator.
// This serves as documentation and as a compile-time check.
var ImplementOperator = []Operator{
	// Defined in routing.go
	new(ConditionalRouting),
	// Defined in aggregation.go
	new(PipelinedAggregation),
	// Defined in sources.go
	new(Values),
	new(Scan),
	new(Union),
	// Defined in query.go
	new(Projection),
	new(Distinct),
	new(LimitAndOffset),
	new(OrderBy),
	// Defined in joins.go
	new(HashJoin),
}
