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
	"context"
	"io"
	"sort"

	"github.com/ebay/chunkflow/query/planner/plandef"
)

// newOrderBy returns an operator that reads all of its input, sorts it, then
// writes it out. The sort is stable. Unbound values are smaller than all bound
// values, and integers and floats are ordered numerically with each other.
func newOrderBy(def *plandef.OrderBy) (operator, error) {
	if len(def.Terms) == 0 {
		return nil, configErrorf(def, "at least one sort term is needed")
	}
	for _, term := range def.Terms {
		if term.On == nil {
			return nil, configErrorf(def, "sort term has no variable")
		}
		switch term.Direction {
		case plandef.SortAsc, plandef.SortDesc:
		default:
			return nil, configErrorf(def, "invalid sort direction %v", term.Direction)
		}
	}
	return &orderBy{def: def}, nil
}

type orderBy struct {
	def *plandef.OrderBy
}

// compare returns -1, 0, or 1 comparing two binding sets on the sort terms.
func (op *orderBy) compare(a, b BindingSet) int {
	for _, term := range op.def.Terms {
		res := orderObjects(a.Get(term.On), b.Get(term.On))
		if term.Direction == plandef.SortDesc {
			res = -res
		}
		if res != 0 {
			return res
		}
	}
	return 0
}

func (op *orderBy) evaluate(oc *OpContext) (Task, error) {
	return func(ctx context.Context) error {
		src := oc.Source()
		var rows []BindingSet
		for {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			chunk, err := src.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			rows = append(rows, chunk.Rows...)
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return op.compare(rows[i], rows[j]) < 0
		})
		cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
		for _, row := range rows {
			if err := cancel.check(); err != nil {
				return err
			}
			if err := oc.Sink.AddRow(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}, nil
}
