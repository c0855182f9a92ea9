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
	"sort"
	"strings"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
)

// Binding is a single variable and its value.
type Binding struct {
	Var   *plandef.Variable
	Value rpc.KGObject
}

// BindingSet maps variables to values. It's one candidate solution to the
// query flowing through the pipeline. A BindingSet is never modified after it's
// created: the methods that change it return a new BindingSet, so binding sets
// can be freely shared between operators and goroutines. A variable that is
// absent is unbound; the nil KGObject is never stored.
type BindingSet struct {
	// Sorted by variable name, unique names.
	bindings []Binding
}

// NewBindingSet returns a binding set holding the given bindings. If a
// variable is listed more than once, the last value wins. Bindings with a nil
// value are dropped.
func NewBindingSet(bindings ...Binding) BindingSet {
	out := append([]Binding(nil), bindings...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Var.Name < out[j].Var.Name
	})
	res := out[:0]
	for _, b := range out {
		if len(res) > 0 && res[len(res)-1].Var.Name == b.Var.Name {
			res = res[:len(res)-1]
		}
		res = append(res, b)
	}
	final := res[:0]
	for _, b := range res {
		if !b.Value.IsNil() {
			final = append(final, b)
		}
	}
	return BindingSet{bindings: final}
}

func (bs BindingSet) find(v *plandef.Variable) (int, bool) {
	i := sort.Search(len(bs.bindings), func(i int) bool {
		return bs.bindings[i].Var.Name >= v.Name
	})
	return i, i < len(bs.bindings) && bs.bindings[i].Var.Name == v.Name
}

// Get returns the value bound to v, or the nil KGObject if v is unbound.
func (bs BindingSet) Get(v *plandef.Variable) rpc.KGObject {
	if i, found := bs.find(v); found {
		return bs.bindings[i].Value
	}
	return rpc.KGObject{}
}

// Bound returns true if v has a value.
func (bs BindingSet) Bound(v *plandef.Variable) bool {
	_, found := bs.find(v)
	return found
}

// With returns a copy of the binding set with v bound to val. If val is nil,
// v is unbound in the result.
func (bs BindingSet) With(v *plandef.Variable, val rpc.KGObject) BindingSet {
	if val.IsNil() {
		return bs.Without(v)
	}
	i, found := bs.find(v)
	if found {
		out := bs.Clone()
		out.bindings[i] = Binding{Var: v, Value: val}
		return out
	}
	out := make([]Binding, 0, len(bs.bindings)+1)
	out = append(out, bs.bindings[:i]...)
	out = append(out, Binding{Var: v, Value: val})
	out = append(out, bs.bindings[i:]...)
	return BindingSet{bindings: out}
}

// Without returns a copy of the binding set with v unbound.
func (bs BindingSet) Without(v *plandef.Variable) BindingSet {
	i, found := bs.find(v)
	if !found {
		return bs
	}
	out := make([]Binding, 0, len(bs.bindings)-1)
	out = append(out, bs.bindings[:i]...)
	out = append(out, bs.bindings[i+1:]...)
	return BindingSet{bindings: out}
}

// Project returns a copy of the binding set holding only the variables in
// vars.
func (bs BindingSet) Project(vars plandef.VarSet) BindingSet {
	out := make([]Binding, 0, len(vars))
	for _, b := range bs.bindings {
		if vars.Contains(b.Var) {
			out = append(out, b)
		}
	}
	return BindingSet{bindings: out}
}

// Merge returns a binding set with the bindings of both sets. Where both sets
// bind the same variable, the value from other is used.
func (bs BindingSet) Merge(other BindingSet) BindingSet {
	out := make([]Binding, 0, len(bs.bindings)+len(other.bindings))
	left, right := bs.bindings, other.bindings
	for len(left) > 0 && len(right) > 0 {
		switch {
		case left[0].Var.Name == right[0].Var.Name:
			out = append(out, right[0])
			left, right = left[1:], right[1:]
		case left[0].Var.Name < right[0].Var.Name:
			out = append(out, left[0])
			left = left[1:]
		default:
			out = append(out, right[0])
			right = right[1:]
		}
	}
	out = append(out, left...)
	out = append(out, right...)
	return BindingSet{bindings: out}
}

// Clone returns a copy of the binding set that shares no memory with the
// original.
func (bs BindingSet) Clone() BindingSet {
	if bs.bindings == nil {
		return BindingSet{}
	}
	return BindingSet{bindings: append(make([]Binding, 0, len(bs.bindings)), bs.bindings...)}
}

// Len returns the number of bound variables.
func (bs BindingSet) Len() int {
	return len(bs.bindings)
}

// Bindings returns a copy of the bindings, ordered by variable name.
func (bs BindingSet) Bindings() []Binding {
	return append([]Binding(nil), bs.bindings...)
}

// Vars returns the set of bound variables.
func (bs BindingSet) Vars() plandef.VarSet {
	vars := make(plandef.VarSet, len(bs.bindings))
	for i, b := range bs.bindings {
		vars[i] = b.Var
	}
	return vars
}

// Equal returns true if both sets bind the same variables to equal values.
func (bs BindingSet) Equal(other BindingSet) bool {
	if len(bs.bindings) != len(other.bindings) {
		return false
	}
	for i := range bs.bindings {
		if bs.bindings[i].Var.Name != other.bindings[i].Var.Name ||
			!bs.bindings[i].Value.Equal(other.bindings[i].Value) {
			return false
		}
	}
	return true
}

// String returns a string like `{?g="a" ?v=1}`.
func (bs BindingSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, binding := range bs.bindings {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(binding.Var.String())
		b.WriteByte('=')
		b.WriteString(binding.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Key implements cmp.Key. Two binding sets are Equal if and only if their
// keys are equal.
func (bs BindingSet) Key(b *strings.Builder) {
	for _, binding := range bs.bindings {
		binding.Var.Key(b)
		b.WriteByte('=')
		binding.Value.Key(b)
		b.WriteByte(' ')
	}
}
