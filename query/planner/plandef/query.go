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
	"strconv"
	"strings"

	"github.com/ebay/chunkflow/util/cmp"
)

// Projection is an Operator that reduces each binding set to the listed
// variables.
type Projection struct {
	// The variables to keep. Other variables are removed.
	Variables VarSet
	// A binding set that has one of these variables unbound fails the query
	// with an evaluation error. Each must also be in Variables.
	Required VarSet
}

func (*Projection) anOperator() {}

// String returns a string like "Project ?a ?b required(?a)".
func (p *Projection) String() string {
	return cmp.GetKey(p)
}

// Key implements cmp.Key.
func (p *Projection) Key(k *strings.Builder) {
	k.WriteString("Project ")
	p.Variables.Key(k)
	if len(p.Required) > 0 {
		k.WriteString(" required(")
		p.Required.Key(k)
		k.WriteByte(')')
	}
}

// Distinct is an Operator that removes duplicate binding sets.
type Distinct struct{}

func (*Distinct) anOperator() {}

// Key implements cmp.Key.
func (d *Distinct) Key(k *strings.Builder) {
	k.WriteString("Distinct")
}

func (d *Distinct) String() string {
	return "Distinct"
}

// LimitAndOffset is an Operator that skips the first Offset binding sets and
// passes on at most Limit binding sets after that. Once it has what it needs,
// it stops reading its input.
type LimitAndOffset struct {
	// If nil, there's no limit.
	Limit  *uint64
	Offset uint64
}

func (*LimitAndOffset) anOperator() {}

// Key implements cmp.Key.
func (op *LimitAndOffset) Key(k *strings.Builder) {
	k.WriteString("LimitOffset (")
	if op.Limit != nil {
		k.WriteString("Lmt ")
		k.WriteString(strconv.FormatUint(*op.Limit, 10))
		k.WriteByte(' ')
	}
	k.WriteString("Off ")
	k.WriteString(strconv.FormatUint(op.Offset, 10))
	k.WriteByte(')')
}

func (op *LimitAndOffset) String() string {
	return cmp.GetKey(op)
}

// OrderBy is an Operator that sorts all of its input.
type OrderBy struct {
	Terms []OrderCondition
}

// OrderCondition describes a single sort key.
type OrderCondition struct {
	Direction SortDirection
	On        *Variable
}

// Key implements cmp.Key.
func (o *OrderCondition) Key(k *strings.Builder) {
	k.WriteString(o.Direction.String())
	k.WriteByte('(')
	o.On.Key(k)
	k.WriteByte(')')
}

func (o *OrderCondition) String() string {
	return cmp.GetKey(o)
}

// SortDirection is the direction that a sort should be in.
type SortDirection int

const (
	// SortAsc puts smaller values before larger values.
	SortAsc SortDirection = iota + 1
	// SortDesc puts larger values before smaller values.
	SortDesc
)

func (d SortDirection) String() string {
	switch d {
	case SortAsc:
		return "ASC"
	case SortDesc:
		return "DESC"
	}
	return fmt.Sprintf("SortDirection(%d)", int(d))
}

func (*OrderBy) anOperator() {}

// Key implements cmp.Key.
func (o *OrderBy) Key(k *strings.Builder) {
	k.WriteString("OrderBy")
	for i := range o.Terms {
		k.WriteByte(' ')
		o.Terms[i].Key(k)
	}
}

func (o *OrderBy) String() string {
	return cmp.GetKey(o)
}
