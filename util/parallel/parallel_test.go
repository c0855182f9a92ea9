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

package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A concurrent map is easy to build on InvokeN.
func ExampleInvokeN_map() {
	ctx := context.Background()
	in := []int{5, 6, 7}
	res := make([]bool, len(in))
	_ = InvokeN(ctx, len(in), func(ctx context.Context, i int) error {
		res[i] = in[i]%2 == 0
		return nil
	})
	fmt.Printf("result: %v\n", res)
	// Output:
	// result: [false true false]
}

func Test_Invoke(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	assert.NoError(Invoke(ctx))

	res := make([]int, 3)
	err := Invoke(ctx,
		func(ctx context.Context) error { res[0] = 3; return nil },
		func(ctx context.Context) error { res[1] = 6; return nil },
		func(ctx context.Context) error { res[2] = 5; return nil },
	)
	assert.NoError(err)
	assert.Equal([]int{3, 6, 5}, res)
}

func Test_InvokeN_errorCancels(t *testing.T) {
	assert := assert.New(t)
	var canceled int32
	err := InvokeN(context.Background(), 4, func(ctx context.Context, i int) error {
		if i == 2 {
			return errors.New("roar")
		}
		<-ctx.Done()
		atomic.AddInt32(&canceled, 1)
		return nil
	})
	assert.EqualError(err, "roar")
	assert.Equal(int32(3), atomic.LoadInt32(&canceled))
}

func Test_InvokeRootCause(t *testing.T) {
	assert := assert.New(t)
	errRoot := errors.New("disk on fire")
	isDerived := func(err error) bool {
		return errors.Is(err, context.Canceled)
	}
	// The derived errors are returned before the root cause. Call 0 fails
	// first with a derived error, which cancels the other calls.
	release := make(chan struct{})
	err := InvokeRootCause(context.Background(), 3, func(ctx context.Context, i int) error {
		switch i {
		case 0:
			return context.Canceled
		case 1:
			<-ctx.Done()
			close(release)
			return ctx.Err()
		default:
			<-release
			return errRoot
		}
	}, isDerived)
	assert.Equal(errRoot, err)

	// With only derived errors, the first one wins.
	err = InvokeRootCause(context.Background(), 1, func(ctx context.Context, i int) error {
		return context.Canceled
	}, isDerived)
	assert.Equal(context.Canceled, err)
}

func Test_Go(t *testing.T) {
	x := 0
	wait := Go(func() { x = 42 })
	wait()
	wait()
	assert.Equal(t, 42, x)
}

func Test_GoCaptureError(t *testing.T) {
	wait := GoCaptureError(func() error { return errors.New("boom") })
	assert.EqualError(t, wait(), "boom")
	assert.EqualError(t, wait(), "boom")
	wait = GoCaptureError(func() error { return nil })
	assert.NoError(t, wait())
}
