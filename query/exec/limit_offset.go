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
	"math"

	"github.com/ebay/chunkflow/query/planner/plandef"
)

// newLimitAndOffset returns a new operator for the pagination operation. It
// skips the first Offset binding sets and passes on at most Limit binding sets
// after that. Once it has passed on Limit binding sets it closes its input,
// which tells the upstream operators to stop producing.
func newLimitAndOffset(def *plandef.LimitAndOffset) operator {
	return &limitAndOffset{def: def}
}

type limitAndOffset struct {
	def *plandef.LimitAndOffset
}

func (op *limitAndOffset) evaluate(oc *OpContext) (Task, error) {
	limit := uint64(math.MaxUint64)
	if op.def.Limit != nil {
		limit = *op.def.Limit
	}
	offset := op.def.Offset
	return func(ctx context.Context) error {
		src := oc.Source()
		skipped := uint64(0)
		forwarded := uint64(0)
		for forwarded < limit {
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
			rows := chunk.Rows
			if skip := offset - skipped; skip > 0 {
				if skip >= uint64(len(rows)) {
					skipped += uint64(len(rows))
					continue
				}
				rows = rows[skip:]
				skipped = offset
			}
			if remaining := limit - forwarded; uint64(len(rows)) > remaining {
				rows = rows[:remaining]
			}
			forwarded += uint64(len(rows))
			if err := oc.Sink.Add(ctx, Chunk{Rows: rows}); err != nil {
				return err
			}
		}
		// Done: stop the upstream operators.
		return src.Close()
	}, nil
}
