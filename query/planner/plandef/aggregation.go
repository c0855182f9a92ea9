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

// PipelinedAggregation computes a GROUP BY incrementally. Every invocation adds
// the binding sets it consumes to the group state, and only the last-pass
// invocation emits results: one binding set per group that satisfies Having,
// holding the Select expressions.
//
// The node must be annotated with LastPass, and with SharedState if
// MaxParallel is more than 1.
type PipelinedAggregation struct {
	// The output. Each expression is either one of the GroupBy variables or an
	// AggregateExpr.
	Select []ExprBinding
	// The variables whose values make up the group key. If empty, all input
	// binding sets form a single group.
	GroupBy []*Variable
	// Filters on the output binding sets. All must be satisfied.
	Having []Constraint
}

func (*PipelinedAggregation) anOperator() {}

// String returns a string like "Aggregate ?g (SUM(?v) AS ?sum) GroupBy ?g".
func (op *PipelinedAggregation) String() string {
	var b strings.Builder
	b.WriteString("Aggregate")
	for _, item := range op.Select {
		b.WriteByte(' ')
		b.WriteString(item.String())
	}
	if len(op.GroupBy) > 0 {
		b.WriteString(" GroupBy ")
		b.WriteString(varNames(op.GroupBy))
	}
	if len(op.Having) > 0 {
		b.WriteString(" Having ")
		b.WriteString(joinConstraints(op.Having, " && "))
	}
	return b.String()
}

// Key implements cmp.Key.
func (op *PipelinedAggregation) Key(b *strings.Builder) {
	b.WriteString("Aggregate")
	for _, item := range op.Select {
		b.WriteByte(' ')
		item.Key(b)
	}
	b.WriteString(" GroupBy")
	for _, v := range op.GroupBy {
		b.WriteByte(' ')
		v.Key(b)
	}
	if len(op.Having) > 0 {
		b.WriteString(" Having ")
		writeConstraintKeys(b, op.Having, " && ")
	}
}
