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

	"github.com/ebay/chunkflow/query/planner/plandef"
)

// ConfigurationError is returned when a plan node has missing or invalid
// configuration. It's detected before the node processes any data.
type ConfigurationError struct {
	// The operator that was misconfigured, may be nil for errors about the
	// shape of the plan.
	Operator plandef.Operator
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Operator == nil {
		return "invalid plan: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for %v: %s", e.Operator, e.Reason)
}

func configErrorf(op plandef.Operator, format string, args ...interface{}) error {
	return &ConfigurationError{Operator: op, Reason: fmt.Sprintf(format, args...)}
}

// EvaluationError is returned when an expression can't be evaluated against a
// binding set and the operator treats that as fatal. Constraint evaluation
// errors are usually not fatal: they count as "not satisfied".
type EvaluationError struct {
	Operator plandef.Operator
	Row      BindingSet
	Err      error
}

func (e *EvaluationError) Error() string {
	if e.Operator == nil {
		return fmt.Sprintf("evaluating %v: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("%v: evaluating %v: %v", e.Operator, e.Row, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// CancellationError is returned by a task that observed its context being
// canceled.
type CancellationError struct {
	// The context's error, context.Canceled or context.DeadlineExceeded.
	Err error
}

func (e *CancellationError) Error() string {
	return "query execution canceled: " + e.Err.Error()
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// ResourceError is returned when reading from a source or writing to a sink
// fails.
type ResourceError struct {
	// "read" or "write".
	Op  string
	Err error
	// If true, this error was caused by a failure elsewhere: the producer of
	// the source failed, or the consumers of the sink went away.
	Derived bool
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("chunk %s failed: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// errConsumerGone is the cause of the ResourceError returned by a sink once
// every consumer has closed its source. Producers treat it as a request to stop
// producing, not as a failure.
var errConsumerGone = errors.New("all consumers have closed the stream")

// errSinkClosed is returned when writing to a sink after closing it.
var errSinkClosed = errors.New("sink is closed")

// isDerived returns true if err was caused by a failure in some other task.
func isDerived(err error) bool {
	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		return true
	}
	var resErr *ResourceError
	if errors.As(err, &resErr) {
		return resErr.Derived
	}
	return errors.Is(err, context.Canceled)
}

// checkCancel returns a CancellationError if ctx is done, nil otherwise.
func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &CancellationError{Err: err}
	}
	return nil
}

// canceller checks for cancellation every 'interval' calls to check.
type canceller struct {
	ctx      context.Context
	interval int
	count    int
}

func newCanceller(ctx context.Context, interval int) *canceller {
	if interval <= 0 {
		interval = DefaultCancelCheckInterval
	}
	return &canceller{ctx: ctx, interval: interval}
}

// check is called once per record.
func (c *canceller) check() error {
	c.count++
	if c.count < c.interval {
		return nil
	}
	c.count = 0
	return checkCancel(c.ctx)
}

// ErrorKind classifies err for metrics and logging: "configuration",
// "evaluation", "cancellation", "resource", or "other".
func ErrorKind(err error) string {
	var configErr *ConfigurationError
	var evalErr *EvaluationError
	var cancelErr *CancellationError
	var resErr *ResourceError
	switch {
	case errors.As(err, &configErr):
		return "configuration"
	case errors.As(err, &evalErr):
		return "evaluation"
	case errors.As(err, &cancelErr):
		return "cancellation"
	case errors.As(err, &resErr):
		return "resource"
	}
	return "other"
}

// isConsumerGone returns true if err says that a sink's consumers have all
// gone away.
func isConsumerGone(err error) bool {
	return errors.Is(err, errConsumerGone)
}
