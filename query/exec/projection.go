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
	"fmt"
	"io"

	"github.com/ebay/chunkflow/query/planner/plandef"
)

// newProjection returns an operator that reduces each binding set to the
// projected variables. A binding set in which a required variable is unbound
// fails the query.
func newProjection(def *plandef.Projection) (operator, error) {
	for _, v := range def.Required {
		if !def.Variables.Contains(v) {
			return nil, configErrorf(def, "required variable %v is not projected", v)
		}
	}
	return &projection{def: def}, nil
}

type projection struct {
	def *plandef.Projection
}

func (op *projection) evaluate(oc *OpContext) (Task, error) {
	return func(ctx context.Context) error {
		src := oc.Source()
		cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
		for {
			chunk, err := src.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			for _, row := range chunk.Rows {
				if err := cancel.check(); err != nil {
					return err
				}
				for _, v := range op.def.Required {
					if !row.Bound(v) {
						return &EvaluationError{
							Operator: op.def,
							Row:      row,
							Err:      fmt.Errorf("required variable %v is unbound", v),
						}
					}
				}
				if err := oc.Sink.AddRow(ctx, row.Project(op.def.Variables)); err != nil {
					return err
				}
			}
		}
	}, nil
}
