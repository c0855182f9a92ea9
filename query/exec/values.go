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

	"github.com/ebay/chunkflow/query/planner/plandef"
)

// newValues returns an operator that emits a fixed list of binding sets.
func newValues(def *plandef.Values) (operator, error) {
	for i, row := range def.Rows {
		if len(row) != len(def.Variables) {
			return nil, configErrorf(def, "row %d has %d values, expecting %d",
				i, len(row), len(def.Variables))
		}
	}
	rows := make([]BindingSet, len(def.Rows))
	for i, row := range def.Rows {
		bindings := make([]Binding, len(row))
		for j, val := range row {
			bindings[j] = Binding{Var: def.Variables[j], Value: val}
		}
		rows[i] = NewBindingSet(bindings...)
	}
	return &values{def: def, rows: rows}, nil
}

type values struct {
	def  *plandef.Values
	rows []BindingSet
}

func (op *values) evaluate(oc *OpContext) (Task, error) {
	return func(ctx context.Context) error {
		if oc.LastPass {
			return nil
		}
		cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
		for _, row := range op.rows {
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
