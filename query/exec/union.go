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

// newUnion returns an operator that passes on every chunk from its inputs.
// All the input edges of a Union node feed the same stream, so chunks from
// different inputs arrive in no particular order.
func newUnion(def *plandef.Union) operator {
	return &union{def: def}
}

type union struct {
	def *plandef.Union
}

func (op *union) evaluate(oc *OpContext) (Task, error) {
	return func(ctx context.Context) error {
		src := oc.Source()
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
			if err := oc.Sink.Add(ctx, chunk); err != nil {
				return err
			}
		}
	}, nil
}
