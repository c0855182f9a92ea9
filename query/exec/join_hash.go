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
	"encoding/binary"
	"errors"
	"io"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/parallel"
)

// newHashJoin returns a new operator for the hashJoin operation. It reads both
// of its inputs concurrently. The right input (port 1) is loaded into a hash
// table keyed by the join variables; binding sets from the left input (port 0)
// are held until the table is complete, then each is joined with the right
// binding sets that have the same values for the join variables.
//
// For a join with a required match, left binding sets without a match are
// dropped. For an optional match, they're passed on unchanged. Binding sets
// with an unbound join variable never match.
func newHashJoin(def *plandef.HashJoin) (operator, error) {
	switch def.Specificity {
	case plandef.MatchRequired, plandef.MatchOptional:
	default:
		return nil, configErrorf(def, "unexpected join specificity %v", def.Specificity)
	}
	return &hashJoin{def: def}, nil
}

type hashJoin struct {
	def *plandef.HashJoin
}

func (op *hashJoin) evaluate(oc *OpContext) (Task, error) {
	return func(ctx context.Context) error {
		left, right := oc.Input(0), oc.Input(1)
		// The right values are calculated by buildRight; once ready is
		// closed, probeLeft may read them.
		var rightValues map[string][]BindingSet
		ready := make(chan struct{})

		buildRight := func(ctx context.Context) error {
			values := make(map[string][]BindingSet)
			for {
				chunk, err := right.Next(ctx)
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				for _, row := range chunk.Rows {
					if key, ok := op.joinKey(row); ok {
						// don't hoist the string(key) out of the map calls.
						values[string(key)] = append(values[string(key)], row)
					}
				}
			}
			rightValues = values
			close(ready)
			return nil
		}

		probeLeft := func(ctx context.Context) error {
			var pending []BindingSet
			probe := func(rows []BindingSet) error {
				cancel := newCanceller(ctx, oc.Options.CancelCheckInterval)
				for _, row := range rows {
					if err := cancel.check(); err != nil {
						return err
					}
					var matches []BindingSet
					if key, ok := op.joinKey(row); ok {
						matches = rightValues[string(key)]
					}
					if len(matches) == 0 && op.def.Specificity == plandef.MatchOptional {
						if err := oc.Sink.AddRow(ctx, row); err != nil {
							return err
						}
					}
					for _, match := range matches {
						if err := oc.Sink.AddRow(ctx, row.Merge(match)); err != nil {
							return err
						}
					}
				}
				return nil
			}
			for {
				chunk, err := left.Next(ctx)
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
				select {
				case <-ready:
					if err := probe(pending); err != nil {
						return err
					}
					pending = nil
					if err := probe(chunk.Rows); err != nil {
						return err
					}
				default:
					pending = append(pending, chunk.Rows...)
				}
			}
			select {
			case <-ready:
			case <-ctx.Done():
				return &CancellationError{Err: ctx.Err()}
			}
			return probe(pending)
		}

		// When the left side stops because its consumer went away, that's
		// the result of the join, not the right side's cancellation.
		return parallel.InvokeRootCause(ctx, 2,
			func(ctx context.Context, i int) error {
				if i == 0 {
					return probeLeft(ctx)
				}
				return buildRight(ctx)
			},
			func(err error) bool {
				var cancelErr *CancellationError
				return errors.As(err, &cancelErr)
			})
	}, nil
}

// joinKey returns the encoded values of the join variables in the binding set.
// It returns false if any of them is unbound.
func (op *hashJoin) joinKey(row BindingSet) ([]byte, bool) {
	var key []byte
	var lenBuf [binary.MaxVarintLen64]byte
	for _, v := range op.def.Variables {
		val := row.Get(v)
		if val.IsNil() {
			return nil, false
		}
		enc := val.AsString()
		n := binary.PutUvarint(lenBuf[:], uint64(len(enc)))
		key = append(key, lenBuf[:n]...)
		key = append(key, enc...)
	}
	return key, true
}
