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

// Package parallel runs functions concurrently and collects their errors.
package parallel

import "context"

// Invoke runs each of the calls in its own goroutine and waits for all of them
// to return. If any call returns an error, the context passed to the remaining
// calls is canceled, and the first error received is returned.
func Invoke(ctx context.Context, calls ...func(ctx context.Context) error) error {
	return InvokeN(ctx, len(calls),
		func(ctx context.Context, i int) error {
			return calls[i](ctx)
		})
}

// InvokeN runs call(ctx, i) for i in [0, n) concurrently and waits for them
// all to return. The first error received cancels the context given to the
// other calls, and is returned.
func InvokeN(ctx context.Context, n int, call func(ctx context.Context, i int) error) error {
	return InvokeRootCause(ctx, n, call, nil)
}

// InvokeRootCause is like InvokeN, but it knows that a failure in one call
// tends to cause failures in the others: canceling the shared context makes
// them return context errors, and calls that talk to each other see their
// peers go away. 'derived' reports whether an error is such a secondary
// failure. The first error for which derived returns false is returned; if
// every error is derived, the first error is returned. A nil derived treats
// every error as a root cause.
func InvokeRootCause(ctx context.Context, n int,
	call func(ctx context.Context, i int) error,
	derived func(error) bool) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			ch <- call(ctx, i)
		}(i)
	}
	var firstErr, rootErr error
	for i := 0; i < n; i++ {
		err := <-ch
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		if rootErr == nil && (derived == nil || !derived(err)) {
			rootErr = err
		}
	}
	if rootErr != nil {
		return rootErr
	}
	return firstErr
}

// Go runs the function in a new goroutine. The returned wait function blocks
// until run has returned; it may be called any number of times.
func Go(run func()) (wait func()) {
	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	return func() {
		<-done
	}
}

// GoCaptureError runs the function in a new goroutine. The returned wait
// function blocks until run has returned, then returns run's error. It may
// be called any number of times.
func GoCaptureError(run func() error) (wait func() error) {
	var err error
	done := make(chan struct{})
	go func() {
		err = run()
		close(done)
	}()
	return func() error {
		<-done
		return err
	}
}
