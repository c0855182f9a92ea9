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
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/stretchr/testify/assert"
)

func Test_ErrorKind(t *testing.T) {
	tests := []struct {
		err     error
		kind    string
		derived bool
	}{
		{configErrorf(&plandef.Union{}, "bad"), "configuration", false},
		{&EvaluationError{Row: bs(varX, 1), Err: io.ErrUnexpectedEOF}, "evaluation", false},
		{&CancellationError{Err: context.Canceled}, "cancellation", true},
		{&ResourceError{Op: "read", Err: io.ErrClosedPipe}, "resource", false},
		{&ResourceError{Op: "write", Err: errConsumerGone, Derived: true}, "resource", true},
		{fmt.Errorf("wrapped: %w", &CancellationError{Err: context.DeadlineExceeded}), "cancellation", true},
		{context.Canceled, "other", true},
		{errors.New("boom"), "other", false},
	}
	for _, test := range tests {
		t.Run(test.err.Error(), func(t *testing.T) {
			assert.Equal(t, test.kind, ErrorKind(test.err))
			assert.Equal(t, test.derived, isDerived(test.err))
		})
	}
}

func Test_ErrorStrings(t *testing.T) {
	assert.Equal(t, "invalid plan: no plan", (&ConfigurationError{Reason: "no plan"}).Error())
	assert.Equal(t, "invalid configuration for Union: bad", configErrorf(&plandef.Union{}, "bad").Error())
	assert.Equal(t, "evaluating {?x=1}: unexpected EOF",
		(&EvaluationError{Row: bs(varX, 1), Err: io.ErrUnexpectedEOF}).Error())
	assert.Equal(t, "chunk write failed: all consumers have closed the stream",
		(&ResourceError{Op: "write", Err: errConsumerGone}).Error())
	assert.True(t, isConsumerGone(&ResourceError{Op: "write", Err: errConsumerGone}))
	assert.False(t, isConsumerGone(errSinkClosed))
}

func Test_Canceller(t *testing.T) {
	cctx, cancel := context.WithCancel(ctx)
	c := newCanceller(cctx, 3)
	assert.NoError(t, c.check())
	assert.NoError(t, c.check())
	assert.NoError(t, c.check())
	cancel()
	assert.NoError(t, c.check())
	assert.NoError(t, c.check())
	err := c.check()
	var cancelErr *CancellationError
	assert.True(t, errors.As(err, &cancelErr))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, DefaultCancelCheckInterval, newCanceller(ctx, 0).interval)
}
