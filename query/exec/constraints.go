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
	"strings"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
	"github.com/ebay/chunkflow/util/cmp"
)

// evalConstraint returns whether the binding set satisfies the constraint. It
// returns an error when the constraint can't be evaluated, for example because
// a variable is unbound or two values can't be compared. The result is always
// false when err is non-nil, and callers treat an error as "not satisfied".
//
// And and Or follow the SPARQL rules for errors: a false term makes And false
// and a true term makes Or true, even if other terms fail.
func evalConstraint(c plandef.Constraint, row BindingSet) (bool, error) {
	switch c := c.(type) {
	case *plandef.CompareLit:
		val := row.Get(c.Test)
		if val.IsNil() {
			return false, fmt.Errorf("%v is unbound", c.Test)
		}
		switch {
		case c.Comparison.IsRange():
			if c.Literal2 == nil {
				return false, fmt.Errorf("range comparison %v needs two literals", c.Comparison)
			}
			return evalRange(c.Comparison, val, c.Literal1.Value, c.Literal2.Value)
		case c.Comparison == rpc.OpPrefix:
			return evalPrefix(val, c.Literal1.Value)
		}
		return evalCompare(c.Comparison, val, c.Literal1.Value)

	case *plandef.CompareVar:
		left := row.Get(c.Left)
		if left.IsNil() {
			return false, fmt.Errorf("%v is unbound", c.Left)
		}
		right := row.Get(c.Right)
		if right.IsNil() {
			return false, fmt.Errorf("%v is unbound", c.Right)
		}
		if c.Comparison == rpc.OpPrefix {
			return evalPrefix(left, right)
		}
		return evalCompare(c.Comparison, left, right)

	case *plandef.Bound:
		return row.Bound(c.Var), nil

	case *plandef.Not:
		res, err := evalConstraint(c.Of, row)
		if err != nil {
			return false, err
		}
		return !res, nil

	case *plandef.And:
		var firstErr error
		for _, term := range c.Terms {
			res, err := evalConstraint(term, row)
			switch {
			case err != nil:
				if firstErr == nil {
					firstErr = err
				}
			case !res:
				return false, nil
			}
		}
		return firstErr == nil, firstErr

	case *plandef.Or:
		var firstErr error
		for _, term := range c.Terms {
			res, err := evalConstraint(term, row)
			switch {
			case err != nil:
				if firstErr == nil {
					firstErr = err
				}
			case res:
				return true, nil
			}
		}
		return false, firstErr

	case nil:
		return false, fmt.Errorf("missing constraint")
	}
	return false, fmt.Errorf("unsupported constraint type %T", c)
}

// evalCompare applies one of the comparison operators to two bound values.
// Values of different types are never equal; asking whether one is less than
// the other is an error. Integers and floats are compared numerically.
func evalCompare(op rpc.Operator, left, right rpc.KGObject) (bool, error) {
	res, comparable := compareValues(left, right)
	switch op {
	case rpc.OpEqual:
		return comparable && res == 0, nil
	case rpc.OpNotEqual:
		return !comparable || res != 0, nil
	}
	if !comparable {
		return false, fmt.Errorf("can't compare %v with %v", left, right)
	}
	switch op {
	case rpc.OpLess:
		return res < 0, nil
	case rpc.OpLessOrEqual:
		return res <= 0, nil
	case rpc.OpGreater:
		return res > 0, nil
	case rpc.OpGreaterOrEqual:
		return res >= 0, nil
	}
	return false, fmt.Errorf("unsupported comparison %v", op)
}

func evalRange(op rpc.Operator, val, from, to rpc.KGObject) (bool, error) {
	lower, upper := rpc.OpGreaterOrEqual, rpc.OpLess
	switch op {
	case rpc.OpRangeIncInc:
		upper = rpc.OpLessOrEqual
	case rpc.OpRangeExcInc:
		lower, upper = rpc.OpGreater, rpc.OpLessOrEqual
	case rpc.OpRangeExcExc:
		lower = rpc.OpGreater
	}
	above, err := evalCompare(lower, val, from)
	if err != nil || !above {
		return false, err
	}
	return evalCompare(upper, val, to)
}

// evalPrefix returns true if the string val starts with the string prefix.
func evalPrefix(val, prefix rpc.KGObject) (bool, error) {
	if !val.IsType(rpc.KtString) || !prefix.IsType(rpc.KtString) {
		return false, fmt.Errorf("prefix needs strings, got %v and %v", val, prefix)
	}
	return strings.HasPrefix(val.ValString(), prefix.ValString()), nil
}

// compareValues returns an integer comparing two bound values: 0 if a==b, -1
// if a < b, and +1 if a > b. The second result is false if the two values
// can't be compared, because they have different types (integers and floats
// are compared numerically with each other).
func compareValues(a, b rpc.KGObject) (int, bool) {
	if a.IsNumeric() && b.IsNumeric() {
		if a.IsType(rpc.KtInt64) && b.IsType(rpc.KtInt64) {
			return cmp.CompareInt64(a.ValInt64(), b.ValInt64()), true
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return cmp.CompareFloat64(af, bf), true
	}
	if a.ValueType() != b.ValueType() {
		return 0, false
	}
	switch a.ValueType() {
	case rpc.KtString:
		return cmp.CompareString(a.ValString(), b.ValString()), true
	case rpc.KtBool:
		return cmp.CompareBool(a.ValBool(), b.ValBool()), true
	case rpc.KtNil:
		return 0, true
	}
	return orderObjects(a, b), true
}

// orderObjects returns a total order over all values, including unbound ones:
// unbound values come first, then values are ordered by type, except that
// integers and floats are ordered numerically with each other.
func orderObjects(a, b rpc.KGObject) int {
	if a.IsNumeric() && b.IsNumeric() && a.ValueType() != b.ValueType() {
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		if res := cmp.CompareFloat64(af, bf); res != 0 {
			return res
		}
		// Equal numerically: floats after integers.
		return cmp.CompareInt64(int64(a.ValueType()), int64(b.ValueType())) * -1
	}
	switch {
	case a.Equal(b):
		return 0
	case a.Less(b):
		return -1
	}
	return 1
}
