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

	"github.com/ebay/chunkflow/rpc"
	"github.com/ebay/chunkflow/util/cmp"
)

// A Constraint is a predicate over a binding set. Constraints have no side
// effects.
type Constraint interface {
	String() string
	cmp.Key
	aConstraint()
}

// ImplementConstraint is a list of types that implement Constraint.
// This serves as documentation and as a compile-time check.
var ImplementConstraint = []Constraint{
	new(CompareLit),
	new(CompareVar),
	new(Bound),
	new(Not),
	new(And),
	new(Or),
}

// CompareLit compares the value of a variable against one or two literals.
type CompareLit struct {
	// Which variable to test.
	Test *Variable
	// The comparison.
	Comparison rpc.Operator
	// Every comparison takes this argument.
	Literal1 *Literal
	// The range comparisons need this second argument. Otherwise, it must be
	// nil.
	Literal2 *Literal
}

func (*CompareLit) aConstraint() {}

// String returns a string like "?x > 2" or "?x in [1, 5)".
func (c *CompareLit) String() string {
	switch c.Comparison {
	case rpc.OpRangeIncExc:
		return fmt.Sprintf("%v in [%v, %v)", c.Test, c.Literal1, c.Literal2)
	case rpc.OpRangeIncInc:
		return fmt.Sprintf("%v in [%v, %v]", c.Test, c.Literal1, c.Literal2)
	case rpc.OpRangeExcInc:
		return fmt.Sprintf("%v in (%v, %v]", c.Test, c.Literal1, c.Literal2)
	case rpc.OpRangeExcExc:
		return fmt.Sprintf("%v in (%v, %v)", c.Test, c.Literal1, c.Literal2)
	}
	return fmt.Sprintf("%v %v %v", c.Test, c.Comparison, c.Literal1)
}

// Key implements cmp.Key.
func (c *CompareLit) Key(b *strings.Builder) {
	c.Test.Key(b)
	b.WriteByte(' ')
	c.Comparison.Key(b)
	b.WriteByte(' ')
	c.Literal1.Key(b)
	if c.Literal2 != nil {
		b.WriteByte(' ')
		c.Literal2.Key(b)
	}
}

// CompareVar compares the values of two variables.
type CompareVar struct {
	Left       *Variable
	Comparison rpc.Operator
	Right      *Variable
}

func (*CompareVar) aConstraint() {}

// String returns a string like "?src != ?dest".
func (c *CompareVar) String() string {
	return fmt.Sprintf("%v %v %v", c.Left, c.Comparison, c.Right)
}

// Key implements cmp.Key.
func (c *CompareVar) Key(b *strings.Builder) {
	c.Left.Key(b)
	b.WriteByte(' ')
	c.Comparison.Key(b)
	b.WriteByte(' ')
	c.Right.Key(b)
}

// Bound is satisfied when the variable has a value.
type Bound struct {
	Var *Variable
}

func (*Bound) aConstraint() {}

func (c *Bound) String() string {
	return fmt.Sprintf("bound(%v)", c.Var)
}

// Key implements cmp.Key.
func (c *Bound) Key(b *strings.Builder) {
	b.WriteString(c.String())
}

// Not negates a constraint.
type Not struct {
	Of Constraint
}

func (*Not) aConstraint() {}

func (c *Not) String() string {
	return fmt.Sprintf("!(%v)", c.Of)
}

// Key implements cmp.Key.
func (c *Not) Key(b *strings.Builder) {
	b.WriteString("!(")
	c.Of.Key(b)
	b.WriteByte(')')
}

// And is satisfied when all of its terms are. An empty And is always
// satisfied.
type And struct {
	Terms []Constraint
}

func (*And) aConstraint() {}

func (c *And) String() string {
	return joinConstraints(c.Terms, " && ")
}

// Key implements cmp.Key.
func (c *And) Key(b *strings.Builder) {
	writeConstraintKeys(b, c.Terms, " && ")
}

// Or is satisfied when any of its terms is. An empty Or is never satisfied.
type Or struct {
	Terms []Constraint
}

func (*Or) aConstraint() {}

func (c *Or) String() string {
	return joinConstraints(c.Terms, " || ")
}

// Key implements cmp.Key.
func (c *Or) Key(b *strings.Builder) {
	writeConstraintKeys(b, c.Terms, " || ")
}

func joinConstraints(terms []Constraint, sep string) string {
	strs := make([]string, len(terms))
	for i, t := range terms {
		strs[i] = t.String()
	}
	return "(" + strings.Join(strs, sep) + ")"
}

func writeConstraintKeys(b *strings.Builder, terms []Constraint, sep string) {
	b.WriteByte('(')
	for i, t := range terms {
		if i > 0 {
			b.WriteString(sep)
		}
		t.Key(b)
	}
	b.WriteByte(')')
}
