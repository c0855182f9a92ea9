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

package rpc

import (
	"fmt"
	"strings"
)

// Operator is a comparison used by the constraints in a query plan.
type Operator int

// The comparison operators. The range operators take two arguments and
// include (Inc) or exclude (Exc) the lower and upper bounds.
const (
	OpUnknown Operator = iota
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpRangeIncExc
	OpRangeIncInc
	OpRangeExcInc
	OpRangeExcExc
	OpPrefix
)

// IsRange returns true for the operators that take a lower and upper bound.
func (o Operator) IsRange() bool {
	switch o {
	case OpRangeIncExc, OpRangeIncInc, OpRangeExcInc, OpRangeExcExc:
		return true
	}
	return false
}

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpRangeIncExc:
		return "rangeIncExc"
	case OpRangeIncInc:
		return "rangeIncInc"
	case OpRangeExcInc:
		return "rangeExcInc"
	case OpRangeExcExc:
		return "rangeExcExc"
	case OpPrefix:
		return "prefix"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// Key implements cmp.Key.
func (o Operator) Key(b *strings.Builder) {
	b.WriteString(o.String())
}

// ParseOperator returns the Operator whose String form is s.
func ParseOperator(s string) (Operator, error) {
	for o := OpEqual; o <= OpPrefix; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return OpUnknown, fmt.Errorf("unknown comparison operator %q", s)
}
