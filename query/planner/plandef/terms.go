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

// Package plandef defines the vocabulary of executable query plans: a DAG of
// operator nodes, each with its own scalar arguments and annotations. Plans are
// built once, are never modified afterwards, and may be read concurrently.
package plandef

import (
	"strings"

	"github.com/ebay/chunkflow/rpc"
)

// A Term is an argument to an Operator: a Variable or a Literal.
type Term interface {
	String() string
	Key(*strings.Builder)
	aTerm()
}

// A Variable is a named slot that can be bound to a value in a binding set.
// Variables are identified by name: two Variable values with the same Name
// are the same variable.
type Variable struct {
	Name string
}

func (*Variable) aTerm()        {}
func (*Variable) anExpression() {}

// String returns a string like "?foo".
func (v *Variable) String() string {
	return "?" + v.Name
}

// Key implements cmp.Key.
func (v *Variable) Key(b *strings.Builder) {
	b.WriteByte('?')
	b.WriteString(v.Name)
}

// A Literal is a Term containing a fixed value, like a particular float or
// string.
type Literal struct {
	Value rpc.KGObject
}

func (*Literal) aTerm()        {}
func (*Literal) anExpression() {}

func (literal *Literal) String() string {
	return literal.Value.String()
}

// Key implements cmp.Key.
func (literal *Literal) Key(b *strings.Builder) {
	literal.Value.Key(b)
}

// varNames returns a string like "?a ?b".
func varNames(vars []*Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return strings.Join(names, " ")
}

