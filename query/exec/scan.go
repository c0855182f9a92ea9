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

// newScan returns an operator that passes on the chunks from an external
// ChunkProducer, such as a range scan over an index. The producer is found by
// name in Options.Producers, and is closed when the scan completes.
func newScan(def *plandef.Scan) (operator, error) {
	if def.Name == "" {
		return nil, configErrorf(def, "scan needs a producer name")
	}
	return &scan{def: def}, nil
}

type scan struct {
	def *plandef.Scan
}

func (op *scan) evaluate(oc *OpContext) (Task, error) {
	producer := oc.Options.Producers[op.def.Name]
	if producer == nil {
		return nil, configErrorf(op.def, "no chunk producer named %q", op.def.Name)
	}
	if oc.LastPass {
		return func(ctx context.Context) error {
			return nil
		}, nil
	}
	return func(ctx context.Context) error {
		defer producer.Close()
		for {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			chunk, err := producer.Next(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return &ResourceError{Op: "read", Err: err, Derived: isDerived(err)}
			}
			if err := oc.Sink.Add(ctx, chunk); err != nil {
				return err
			}
		}
	}, nil
}
