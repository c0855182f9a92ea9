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

	"github.com/ebay/chunkflow/query/planner/plandef"
)

// newConditionalRouting returns an operator that splits its input in two:
// binding sets that satisfy the condition go to the primary sink, the others
// go to the alternate sink, or are dropped when there isn't one.
//
// Each input chunk produces at most one chunk on each sink, sized to the
// number of binding sets routed there. The relative order of binding sets sent
// to the same sink is preserved, but there is no ordering between the two
// sinks.
func newConditionalRouting(def *plandef.ConditionalRouting) (operator, error) {
	if def.Condition == nil {
		return nil, configErrorf(def, "a condition is required")
	}
	return &conditionalRouting{def: def}, nil
}

type conditionalRouting struct {
	def *plandef.ConditionalRouting
}

func (op *conditionalRouting) evaluate(oc *OpContext) (Task, error) {
	if oc.AltSink != nil && (oc.AltSink == oc.Sink ||
		(oc.AltSink.buf != nil && oc.AltSink.buf == oc.Sink.buf)) {
		return nil, configErrorf(op.def, "the primary and alternate sinks must be different")
	}
	return func(ctx context.Context) error {
		return op.execute(ctx, oc)
	}, nil
}

func (op *conditionalRouting) execute(ctx context.Context, oc *OpContext) error {
	src := oc.Source()
	cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
	pass, fail := oc.Sink, oc.AltSink
	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		var passRows, failRows []BindingSet
		for _, row := range chunk.Rows {
			if err := cancel.check(); err != nil {
				return err
			}
			row = row.Clone()
			// An evaluation error means "not satisfied".
			if ok, err := evalConstraint(op.def.Condition, row); err == nil && ok {
				passRows = append(passRows, row)
			} else if fail != nil {
				failRows = append(failRows, row)
			}
		}
		if pass != nil && len(passRows) > 0 {
			if err := pass.Add(ctx, Chunk{Rows: passRows}); err != nil {
				if !isConsumerGone(err) {
					return err
				}
				pass = nil
			}
		}
		if fail != nil && len(failRows) > 0 {
			if err := fail.Add(ctx, Chunk{Rows: failRows}); err != nil {
				if !isConsumerGone(err) {
					return err
				}
				fail = nil
			}
		}
		if pass == nil && fail == nil {
			// Nobody wants the output any more.
			return errConsumerGone
		}
	}
}
