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
	"fmt"

	"github.com/ebay/chunkflow/query/planner/plandef"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/sirupsen/logrus"
)

// Task executes a single invocation of an operator. It runs until its inputs
// are exhausted, it fails, or ctx is canceled.
type Task func(ctx context.Context) error

// operator is the executable form of a plan node's Operator. An operator is
// built once per plan node by Prepare and is read-only afterwards; all the
// per-invocation state lives in the task returned by evaluate.
type operator interface {
	// evaluate checks the per-invocation wiring in oc and returns the task
	// for the invocation. It does not process any data.
	evaluate(oc *OpContext) (Task, error)
}

// stateful is implemented by operators that keep state shared by every
// invocation of their plan node.
type stateful interface {
	newShared() interface{}
}

// opShape describes how the scheduler wires and invokes an operator.
type opShape struct {
	// The number of input ports. Zero for leaves.
	ports int
	// If true, the plan node always has a single running invocation, and
	// asking for more is a configuration error.
	serial bool
}

func shapeOf(op plandef.Operator) opShape {
	switch op.(type) {
	case *plandef.Values, *plandef.Scan:
		return opShape{ports: 0, serial: true}
	case *plandef.OrderBy, *plandef.LimitAndOffset:
		return opShape{ports: 1, serial: true}
	case *plandef.HashJoin:
		return opShape{ports: 2, serial: true}
	}
	return opShape{ports: 1}
}

// buildOperator returns the executable operator for the plan node, which will
// run with the given number of concurrent invocations. It fails
// with a ConfigurationError if the node's arguments are invalid.
func buildOperator(plan *plandef.Plan, parallel int) (operator, error) {
	switch def := plan.Operator.(type) {
	case *plandef.ConditionalRouting:
		return newConditionalRouting(def)
	case *plandef.PipelinedAggregation:
		return newPipelinedAggregation(def, plan.Annotations, parallel)
	case *plandef.Values:
		return newValues(def)
	case *plandef.Scan:
		return newScan(def)
	case *plandef.Union:
		return newUnion(def), nil
	case *plandef.Projection:
		return newProjection(def)
	case *plandef.Distinct:
		return newDistinct(def), nil
	case *plandef.LimitAndOffset:
		return newLimitAndOffset(def), nil
	case *plandef.OrderBy:
		return newOrderBy(def)
	case *plandef.HashJoin:
		return newHashJoin(def)
	case nil:
		return nil, &ConfigurationError{Reason: "plan node has no operator"}
	}
	return nil, configErrorf(plan.Operator, "unsupported operator type %T", plan.Operator)
}

// operatorKind returns a short, low cardinality name for the type of op, for
// use in metrics and span names.
func operatorKind(op plandef.Operator) string {
	switch op.(type) {
	case *plandef.ConditionalRouting:
		return "routing"
	case *plandef.PipelinedAggregation:
		return "aggregation"
	case *plandef.Values:
		return "values"
	case *plandef.Scan:
		return "scan"
	case *plandef.Union:
		return "union"
	case *plandef.Projection:
		return "projection"
	case *plandef.Distinct:
		return "distinct"
	case *plandef.LimitAndOffset:
		return "limit_offset"
	case *plandef.OrderBy:
		return "order_by"
	case *plandef.HashJoin:
		return "hash_join"
	}
	return fmt.Sprintf("%T", op)
}

// runInvocation runs the task for one invocation, then tears the invocation
// down and reports it to events. The teardown happens however the task exits:
// every input is closed, and the outputs are flushed (unless the task failed)
// and then closed.
//
// A task that stopped because every consumer of its output went away has
// completed normally, and runInvocation returns nil for it.
func runInvocation(ctx context.Context, oc *OpContext, task Task, events Events) (err error) {
	clock := events.Clock()
	startedAt := clock.Now()
	oc.Stats.addInvocation()
	span, ctx := opentracing.StartSpanFromContext(ctx, "exec "+operatorKind(oc.Plan.Operator))
	span.SetTag("operator", oc.Plan.Operator.String())
	span.SetTag("invocation", oc.Invocation)
	if oc.LastPass {
		span.SetTag("lastPass", true)
	}
	defer func() {
		err = teardown(ctx, oc, err)
		event := OpCompletedEvent{
			Plan:       oc.Plan,
			Operator:   oc.Plan.Operator,
			Invocation: oc.Invocation,
			LastPass:   oc.LastPass,
			StartedAt:  startedAt,
			EndedAt:    clock.Now(),
			Output:     oc.Sink.Sent(),
			Err:        err,
		}
		for _, in := range oc.Inputs {
			event.Input = event.Input.add(in.Read())
		}
		if oc.AltSink != nil {
			event.AltOutput = oc.AltSink.Sent()
		}
		metrics.observe(&event)
		events.OpCompleted(event)
		fields := logrus.Fields{
			"operator":   oc.Plan.Operator.String(),
			"invocation": oc.Invocation,
			"lastPass":   oc.LastPass,
			"in":         event.Input.NumBindingSets,
			"out":        event.Output.NumBindingSets,
			"alt":        event.AltOutput.NumBindingSets,
		}
		switch {
		case err == nil:
			logrus.WithFields(fields).Debug("Operator invocation completed")
		case isDerived(err):
			fields["error"] = err
			logrus.WithFields(fields).Debug("Operator invocation stopped")
		default:
			fields["error"] = err
			logrus.WithFields(fields).Warn("Operator invocation failed")
		}
		if err != nil {
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		}
		span.Finish()
	}()
	return task(ctx)
}

// teardown closes the invocation's inputs and outputs, and returns the
// invocation's final error.
func teardown(ctx context.Context, oc *OpContext, err error) error {
	for _, in := range oc.Inputs {
		in.Close()
	}
	if isConsumerGone(err) {
		err = nil
	}
	sinks := []*Sink{oc.Sink, oc.AltSink}
	if err == nil {
		for _, sink := range sinks {
			if sink == nil || sink.Closed() {
				continue
			}
			if flushErr := sink.Flush(ctx); flushErr != nil && !isConsumerGone(flushErr) {
				err = flushErr
				break
			}
		}
	}
	for _, sink := range sinks {
		if sink != nil {
			sink.CloseWithError(err)
		}
	}
	return err
}

// abandonInvocation tears down an invocation that will never run, so that its
// consumers see the stream end with err.
func abandonInvocation(oc *OpContext, err error) {
	for _, in := range oc.Inputs {
		in.Close()
	}
	oc.Sink.CloseWithError(err)
	if oc.AltSink != nil {
		oc.AltSink.CloseWithError(err)
	}
}
