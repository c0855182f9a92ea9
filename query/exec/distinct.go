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
	"sync"

	"github.com/cespare/xxhash"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/cmp"
)

// newDistinct returns a new operator for the distinct operation. When
// executed it will remove duplicate binding sets from the output. Every
// invocation of the plan node shares the same set of binding sets seen so
// far.
func newDistinct(def *plandef.Distinct) operator {
	return &distinct{def: def}
}

type distinct struct {
	def *plandef.Distinct
}

func (op *distinct) newShared() interface{} {
	s := new(seenSet)
	for i := range s.shards {
		s.shards[i].keys = make(map[string]struct{})
	}
	return s
}

func (op *distinct) evaluate(oc *OpContext) (Task, error) {
	seen, ok := oc.Shared.(*seenSet)
	if !ok {
		return nil, configErrorf(op.def, "distinct invocation has no shared state")
	}
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
				if !seen.insert(cmp.GetKey(row)) {
					continue
				}
				if err := oc.Sink.AddRow(ctx, row); err != nil {
					return err
				}
			}
		}
	}, nil
}

const numSeenShards = 16

// seenSet is a set of strings that's safe for concurrent use.
type seenSet struct {
	shards [numSeenShards]struct {
		lock sync.Mutex
		keys map[string]struct{}
	}
}

// insert adds key to the set. It returns false if key was already there.
func (s *seenSet) insert(key string) bool {
	shard := &s.shards[xxhash.Sum64String(key)%numSeenShards]
	shard.lock.Lock()
	defer shard.lock.Unlock()
	if _, exists := shard.keys[key]; exists {
		return false
	}
	shard.keys[key] = struct{}{}
	return true
}
