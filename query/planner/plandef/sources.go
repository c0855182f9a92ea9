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
)

// Values is a leaf Operator that emits a fixed list of binding sets.
type Values struct {
	// The variables that the rows bind, in column order.
	Variables []*Variable
	// Each row has one value per variable. A nil KGObject leaves the variable
	// unbound in that row.
	Rows [][]rpc.KGObject
}

func (*Values) anOperator() {}

// String returns a string like "Values ?x ?y (3 rows)".
func (op *Values) String() string {
	return fmt.Sprintf("Values %v (%d rows)", varNames(op.Variables), len(op.Rows))
}

// Key implements cmp.Key.
func (op *Values) Key(b *strings.Builder) {
	b.WriteString("Values ")
	b.WriteString(varNames(op.Variables))
	for _, row := range op.Rows {
		b.WriteString(" (")
		for i, val := range row {
			if i > 0 {
				b.WriteByte(' ')
			}
			val.Key(b)
		}
		b.WriteByte(')')
	}
}

// Scan is a leaf Operator that reads the binding sets from a named external
// chunk producer, such as a range scan over an index. The producers are
// supplied to the executor when the plan is run.
type Scan struct {
	Name string
}

func (*Scan) anOperator() {}

// String returns a string like "Scan spo".
func (op *Scan) String() string {
	return "Scan " + op.Name
}

// Key implements cmp.Key.
func (op *Scan) Key(b *strings.Builder) {
	b.WriteString(op.String())
}

// Union passes on the binding sets from all of its inputs. There's no ordering
// between binding sets from different inputs.
type Union struct{}

func (*Union) anOperator() {}

func (op *Union) String() string {
	return "Union"
}

// Key implements cmp.Key.
func (op *Union) Key(b *strings.Builder) {
	b.WriteString("Union")
}
