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
)

// MatchSpecificity says whether a join requires a match from its right input.
type MatchSpecificity int

const (
	// MatchRequired is an inner join.
	MatchRequired MatchSpecificity = iota
	// MatchOptional is a left outer join: left binding sets without a match on
	// the right are passed on as they are.
	MatchOptional
)

// A HashJoin Operator joins two inputs using a hash table built from the right
// input. Inputs on port 0 are the left side, inputs on port 1 the right side.
type HashJoin struct {
	// The variables that are compared for equality in both inputs.
	Variables   VarSet
	Specificity MatchSpecificity
}

func (op *HashJoin) anOperator() {}

// String returns a string like "HashJoin (inner) ?x".
func (op *HashJoin) String() string {
	return fmt.Sprintf("HashJoin %s %v", joinLabel(op.Specificity), op.Variables)
}

// Key implements cmp.Key.
func (op *HashJoin) Key(b *strings.Builder) {
	b.WriteString("HashJoin ")
	b.WriteString(joinLabel(op.Specificity))
	b.WriteByte(' ')
	op.Variables.Key(b)
}

func joinLabel(s MatchSpecificity) string {
	switch s {
	case MatchRequired:
		return "(inner)"
	case MatchOptional:
		return "(left)"
	}
	return fmt.Sprintf("(%d)", int(s))
}
