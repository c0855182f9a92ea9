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
	"io"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/table"
)

// Chunk is an ordered batch of binding sets, the unit of transfer between
// operators.
type Chunk struct {
	Rows []BindingSet
}

// Len returns the number of binding sets in the chunk.
func (c Chunk) Len() int {
	return len(c.Rows)
}

// Vars returns every variable bound in any row of the chunk.
func (c Chunk) Vars() plandef.VarSet {
	var vars plandef.VarSet
	for _, row := range c.Rows {
		vars = vars.Union(row.Vars())
	}
	return vars
}

// ToTable writes the chunk out as a text table, with one column per variable
// and one row per binding set. Unbound values are left empty.
func (c Chunk) ToTable(w io.Writer) {
	vars := c.Vars()
	t := make([][]string, 0, len(c.Rows)+1)
	header := make([]string, len(vars))
	for i, v := range vars {
		header[i] = v.String()
	}
	t = append(t, header)
	for _, row := range c.Rows {
		line := make([]string, len(vars))
		for i, v := range vars {
			if val := row.Get(v); !val.IsNil() {
				line[i] = val.String()
			}
		}
		t = append(t, line)
	}
	table.PrettyPrint(w, t, table.HeaderRow)
}

