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

// Expression represents a value calculated from a binding set, or from a group
// of binding sets in the case of an aggregate.
type Expression interface {
	String() string
	cmp.Key
	anExpression()
}

var _ = []Expression{
	new(AggregateExpr),
	new(WildcardExpr),
	new(Variable),
	new(Literal),
}

// ExprBinding evaluates an expression and binds the result to a variable.
type ExprBinding struct {
	Expr Expression
	Out  *Variable
}

// Key implements cmp.Key.
func (b *ExprBinding) Key(k *strings.Builder) {
	k.WriteString("bind(")
	b.Expr.Key(k)
	k.WriteByte(' ')
	b.Out.Key(k)
	k.WriteByte(')')
}

func (b *ExprBinding) String() string {
	if v, ok := b.Expr.(*Variable); ok && v.Name == b.Out.Name {
		return b.Out.String()
	}
	return fmt.Sprintf("(%v AS %v)", b.Expr, b.Out)
}

// AggregateFunction is a function that summarizes a group of values.
type AggregateFunction int

// The supported aggregate functions.
const (
	AggCount AggregateFunction = iota + 1
	AggSum
	AggMin
	AggMax
	AggAvg
	AggSample
)

func (f AggregateFunction) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggAvg:
		return "AVG"
	case AggSample:
		return "SAMPLE"
	}
	return fmt.Sprintf("AggregateFunction(%d)", int(f))
}

// UndefinedPolicy says what an aggregate does with an input value that is
// unbound, or of a type the function can't use (such as a string given to
// SUM).
type UndefinedPolicy int

const (
	// UndefinedDefault uses the function's default policy: UndefinedSkip for
	// COUNT, MIN, MAX and SAMPLE; UndefinedUnbind for SUM and AVG.
	UndefinedDefault UndefinedPolicy = iota
	// UndefinedSkip ignores the value, as if the binding set had not been in
	// the group.
	UndefinedSkip
	// UndefinedUnbind makes the aggregate's result for the group unbound.
	UndefinedUnbind
	// UndefinedFail fails the query with an evaluation error.
	UndefinedFail
)

func (p UndefinedPolicy) String() string {
	switch p {
	case UndefinedDefault:
		return "default"
	case UndefinedSkip:
		return "skip"
	case UndefinedUnbind:
		return "unbind"
	case UndefinedFail:
		return "fail"
	}
	return fmt.Sprintf("UndefinedPolicy(%d)", int(p))
}

// Resolve returns the policy to apply for the aggregate function f.
func (p UndefinedPolicy) Resolve(f AggregateFunction) UndefinedPolicy {
	if p != UndefinedDefault {
		return p
	}
	switch f {
	case AggSum, AggAvg:
		return UndefinedUnbind
	}
	return UndefinedSkip
}

// AggregateExpr is an Expression that is an aggregate calculation over the
// binding sets in a group.
type AggregateExpr struct {
	Func AggregateFunction
	// A Variable, or WildcardExpr for COUNT(*).
	Of Expression
	// If true, each distinct value is only counted once.
	Distinct bool
	// What to do with unbound or unusable input values.
	OnUndefined UndefinedPolicy
}

func (*AggregateExpr) anExpression() {}

// String returns a string like "SUM(?v)" or "COUNT(DISTINCT ?v)".
func (a *AggregateExpr) String() string {
	return cmp.GetKey(a)
}

// Key implements cmp.Key.
func (a *AggregateExpr) Key(k *strings.Builder) {
	k.WriteString(a.Func.String())
	k.WriteByte('(')
	if a.Distinct {
		k.WriteString("DISTINCT ")
	}
	a.Of.Key(k)
	k.WriteByte(')')
	if a.OnUndefined != UndefinedDefault {
		k.WriteString(" undefined=")
		k.WriteString(a.OnUndefined.String())
	}
}

// WildcardExpr represents the * in COUNT(*).
type WildcardExpr struct{}

func (w *WildcardExpr) String() string {
	return "*"
}

// Key implements cmp.Key.
func (w *WildcardExpr) Key(k *strings.Builder) {
	k.WriteByte('*')
}

func (w *WildcardExpr) anExpression() {}
