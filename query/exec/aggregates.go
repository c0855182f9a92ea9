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
	"math"
	"math/big"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
	"github.com/ebay/chunkflow/util/cmp"
)

// accumulator computes an aggregate function over a sequence of values. The
// values given to add are bound and have a type the function can use.
type accumulator interface {
	add(val rpc.KGObject)
	// result returns the aggregate so far, or the nil KGObject if it's
	// undefined.
	result() rpc.KGObject
}

func newAccumulator(f plandef.AggregateFunction) accumulator {
	switch f {
	case plandef.AggCount:
		return new(countAcc)
	case plandef.AggSum:
		return new(sumAcc)
	case plandef.AggAvg:
		return new(avgAcc)
	case plandef.AggMin, plandef.AggSample:
		return &extremeAcc{want: -1}
	case plandef.AggMax:
		return &extremeAcc{want: 1}
	}
	panic(fmt.Sprintf("Unexpected aggregate function %v", f))
}

// usableBy returns true if the aggregate function f is defined for val.
func usableBy(f plandef.AggregateFunction, val rpc.KGObject) bool {
	if val.IsNil() {
		return false
	}
	switch f {
	case plandef.AggSum, plandef.AggAvg:
		return val.IsNumeric()
	}
	return true
}

type countAcc struct {
	count int64
}

func (a *countAcc) add(rpc.KGObject) {
	a.count++
}

func (a *countAcc) result() rpc.KGObject {
	return rpc.AInt64(a.count)
}

// sumAcc keeps an exact integer sum and a separate float sum, so the result
// doesn't depend on the order values arrive in. The result is an integer if
// every value was an integer and the total fits in an int64, and a float
// otherwise.
type sumAcc struct {
	ints     big.Int
	floats   float64
	hasFloat bool
}

func (a *sumAcc) add(val rpc.KGObject) {
	if val.IsType(rpc.KtInt64) {
		var v big.Int
		a.ints.Add(&a.ints, v.SetInt64(val.ValInt64()))
		return
	}
	f, _ := val.AsFloat64()
	a.floats += f
	a.hasFloat = true
}

func (a *sumAcc) result() rpc.KGObject {
	if !a.hasFloat && a.ints.IsInt64() {
		return rpc.AInt64(a.ints.Int64())
	}
	return rpc.AFloat64(a.float())
}

func (a *sumAcc) float() float64 {
	f, _ := new(big.Float).SetInt(&a.ints).Float64()
	return f + a.floats
}

type avgAcc struct {
	sum   sumAcc
	count int64
}

func (a *avgAcc) add(val rpc.KGObject) {
	a.sum.add(val)
	a.count++
}

// result is 0 for no values, and a float otherwise.
func (a *avgAcc) result() rpc.KGObject {
	if a.count == 0 {
		return rpc.AInt64(0)
	}
	avg := a.sum.float() / float64(a.count)
	if math.IsInf(avg, 0) || math.IsNaN(avg) {
		return rpc.KGObject{}
	}
	return rpc.AFloat64(avg)
}

// extremeAcc keeps the smallest (want -1) or largest (want 1) value seen,
// using the same total order as OrderBy.
type extremeAcc struct {
	want int
	cur  rpc.KGObject
}

func (a *extremeAcc) add(val rpc.KGObject) {
	if a.cur.IsNil() || orderObjects(val, a.cur) == a.want {
		a.cur = val
	}
}

func (a *extremeAcc) result() rpc.KGObject {
	return a.cur
}

// aggregator computes one aggregate expression for one group. It applies the
// expression's DISTINCT flag and undefined-value policy around an
// accumulator.
type aggregator struct {
	def    *plandef.AggregateExpr
	policy plandef.UndefinedPolicy
	acc    accumulator
	// Keys of the values seen so far, if def.Distinct.
	seen map[string]struct{}
	// Set once an undefined input was seen under UndefinedUnbind.
	undefined bool
}

func newAggregator(def *plandef.AggregateExpr) *aggregator {
	a := &aggregator{
		def:    def,
		policy: def.OnUndefined.Resolve(def.Func),
		acc:    newAccumulator(def.Func),
	}
	if def.Distinct {
		a.seen = make(map[string]struct{})
	}
	return a
}

// add folds the binding set into the aggregate. It returns an error for an
// undefined input under UndefinedFail.
func (a *aggregator) add(row BindingSet) error {
	if a.undefined {
		return nil
	}
	var val rpc.KGObject
	var key string
	switch of := a.def.Of.(type) {
	case *plandef.WildcardExpr:
		val = rpc.ABool(true)
		if a.def.Distinct {
			key = cmp.GetKey(row)
		}
	case *plandef.Variable:
		val = row.Get(of)
		key = val.AsString()
	}
	if !usableBy(a.def.Func, val) {
		switch a.policy {
		case plandef.UndefinedSkip:
			return nil
		case plandef.UndefinedUnbind:
			a.undefined = true
			return nil
		}
		return fmt.Errorf("%v is undefined for %v", a.def, val)
	}
	if a.seen != nil {
		if _, dup := a.seen[key]; dup {
			return nil
		}
		a.seen[key] = struct{}{}
	}
	a.acc.add(val)
	return nil
}

func (a *aggregator) result() rpc.KGObject {
	if a.undefined {
		return rpc.KGObject{}
	}
	return a.acc.result()
}
