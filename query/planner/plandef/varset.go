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
	"sort"
	"strings"
)

// A VarSet is a set of variables. It's represented as a slice of
// uniquely-named variables ordered by name.
type VarSet []*Variable

// NewVarSet returns a VarSet holding the given variables. Duplicate names are
// collapsed.
func NewVarSet(vars ...*Variable) VarSet {
	set := make(VarSet, 0, len(vars))
	for _, v := range vars {
		if !set.Contains(v) {
			set = append(set, v)
			sort.Slice(set, func(i, j int) bool {
				return set[i].Name < set[j].Name
			})
		}
	}
	return set
}

// Contains returns true if v is in the set, false otherwise.
func (set VarSet) Contains(v *Variable) bool {
	i := sort.Search(len(set), func(i int) bool {
		return set[i].Name >= v.Name
	})
	return i < len(set) && set[i].Name == v.Name
}

// Union returns a new set with the variables present in either 'set' or 'other'.
func (set VarSet) Union(other VarSet) VarSet {
	either := make(VarSet, 0, len(set)+len(other))
	left, right := set, other
	for len(left) > 0 && len(right) > 0 {
		switch {
		case left[0].Name == right[0].Name:
			either = append(either, left[0])
			left, right = left[1:], right[1:]
		case left[0].Name < right[0].Name:
			either = append(either, left[0])
			left = left[1:]
		default:
			either = append(either, right[0])
			right = right[1:]
		}
	}
	either = append(either, left...)
	return append(either, right...)
}

// Equal returns true if the two sets are made up of the same variable names.
func (set VarSet) Equal(other VarSet) bool {
	if len(set) != len(other) {
		return false
	}
	for i := range set {
		if set[i].Name != other[i].Name {
			return false
		}
	}
	return true
}

// String returns a space-delimited ordered list of variables.
func (set VarSet) String() string {
	return varNames(set)
}

// Key implements cmp.Key.
func (set VarSet) Key(b *strings.Builder) {
	for i, v := range set {
		if i > 0 {
			b.WriteByte(' ')
		}
		v.Key(b)
	}
}
