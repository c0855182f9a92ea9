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

package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
)

// inputName is the name of the chunk producer that reads the input file.
const inputName = "input"

// buildPlan returns the plan for the command in options, over input binding
// sets with the given variables. It also returns the variables of the plan's
// output, in column order.
func buildPlan(options *options, inputVars []*plandef.Variable) (*plandef.Plan, []*plandef.Variable, error) {
	scan := &plandef.Plan{Operator: &plandef.Scan{Name: inputName}}
	var plan *plandef.Plan
	var columns []*plandef.Variable
	switch {
	case options.Route:
		cond, err := parseCondition(options.Var, options.Op, options.Value, inputVars)
		if err != nil {
			return nil, nil, err
		}
		plan = &plandef.Plan{
			Operator:    &plandef.ConditionalRouting{Condition: cond},
			Inputs:      []plandef.Input{{From: scan}},
			Annotations: plandef.Annotations{MaxParallel: options.Parallel},
		}
		columns = inputVars
	case options.Group:
		agg, err := parseGroup(options.By, options.Aggs, inputVars)
		if err != nil {
			return nil, nil, err
		}
		plan = &plandef.Plan{
			Operator: agg,
			Inputs:   []plandef.Input{{From: scan}},
			Annotations: plandef.Annotations{
				MaxParallel: options.Parallel,
				SharedState: true,
				LastPass:    true,
			},
		}
		for _, item := range agg.Select {
			columns = append(columns, item.Out)
		}
	default:
		return nil, nil, fmt.Errorf("no command given")
	}
	if options.Order != "" {
		terms, err := parseOrder(options.Order, columns)
		if err != nil {
			return nil, nil, err
		}
		plan = &plandef.Plan{
			Operator: &plandef.OrderBy{Terms: terms},
			Inputs:   []plandef.Input{{From: plan}},
		}
	}
	if options.Limit != "" {
		limit, err := strconv.ParseUint(options.Limit, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --limit %q: %v", options.Limit, err)
		}
		plan = &plandef.Plan{
			Operator: &plandef.LimitAndOffset{Limit: &limit},
			Inputs:   []plandef.Input{{From: plan}},
		}
	}
	return plan, columns, nil
}

var varName = regexp.MustCompile(`^\??([A-Za-z_][A-Za-z0-9_]*)$`)

// parseVar parses a variable name like "?x" or "x" and checks that it's one
// of the known variables.
func parseVar(s string, known []*plandef.Variable) (*plandef.Variable, error) {
	m := varName.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, fmt.Errorf("invalid variable name %q", s)
	}
	for _, v := range known {
		if v.Name == m[1] {
			return v, nil
		}
	}
	return nil, fmt.Errorf("unknown variable ?%s, expecting one of: %v", m[1], plandef.VarSet(known))
}

// parseCondition returns the constraint "VAR OP VALUE".
func parseCondition(variable, op, value string, known []*plandef.Variable) (plandef.Constraint, error) {
	v, err := parseVar(variable, known)
	if err != nil {
		return nil, err
	}
	comparison, err := rpc.ParseOperator(op)
	if err != nil {
		return nil, err
	}
	if comparison.IsRange() {
		return nil, fmt.Errorf("comparison %v needs two values, which isn't supported here", comparison)
	}
	if value == "" {
		return nil, fmt.Errorf("comparison needs a value")
	}
	lit, err := rpc.ParseKGObject(value)
	if err != nil {
		return nil, err
	}
	return &plandef.CompareLit{
		Test:       v,
		Comparison: comparison,
		Literal1:   &plandef.Literal{Value: lit},
	}, nil
}

var aggregateFunctions = map[string]plandef.AggregateFunction{
	"count":  plandef.AggCount,
	"sum":    plandef.AggSum,
	"min":    plandef.AggMin,
	"max":    plandef.AggMax,
	"avg":    plandef.AggAvg,
	"sample": plandef.AggSample,
}

var aggregateSyntax = regexp.MustCompile(
	`^(?:\??([A-Za-z_][A-Za-z0-9_]*)\s*=\s*)?([A-Za-z]+)\(\s*(?i:(distinct)\s+)?(\*|\??[A-Za-z_][A-Za-z0-9_]*)\s*\)$`)

// parseAggregate parses an aggregate like "sum(?v)", "?n=count(distinct ?v)"
// or "count(*)". Without an explicit output variable, the output is named
// after the function and its argument, like ?sum_v or ?count.
func parseAggregate(s string, known []*plandef.Variable) (plandef.ExprBinding, error) {
	m := aggregateSyntax.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return plandef.ExprBinding{}, fmt.Errorf("invalid aggregate %q, expecting something like ?total=sum(?v)", s)
	}
	outName, fnName, distinct, arg := m[1], strings.ToLower(m[2]), m[3] != "", m[4]
	fn, ok := aggregateFunctions[fnName]
	if !ok {
		return plandef.ExprBinding{}, fmt.Errorf("unknown aggregate function %q in %q", m[2], s)
	}
	agg := &plandef.AggregateExpr{Func: fn, Distinct: distinct}
	if arg == "*" {
		if fn != plandef.AggCount {
			return plandef.ExprBinding{}, fmt.Errorf("only count accepts *, got %q", s)
		}
		agg.Of = &plandef.WildcardExpr{}
		if outName == "" {
			outName = "count"
		}
	} else {
		v, err := parseVar(arg, known)
		if err != nil {
			return plandef.ExprBinding{}, err
		}
		agg.Of = v
		if outName == "" {
			outName = fnName + "_" + v.Name
		}
	}
	return plandef.ExprBinding{Expr: agg, Out: &plandef.Variable{Name: outName}}, nil
}

// parseGroup returns the aggregation for the comma-separated group-by
// variables in 'by' and the aggregates. The output has the group-by variables
// first, then the aggregates.
func parseGroup(by string, aggs []string, known []*plandef.Variable) (*plandef.PipelinedAggregation, error) {
	op := new(plandef.PipelinedAggregation)
	seen := make(map[string]bool)
	if by != "" {
		for _, name := range strings.Split(by, ",") {
			v, err := parseVar(name, known)
			if err != nil {
				return nil, err
			}
			if seen[v.Name] {
				return nil, fmt.Errorf("variable ?%s is listed twice", v.Name)
			}
			seen[v.Name] = true
			op.GroupBy = append(op.GroupBy, v)
			op.Select = append(op.Select, plandef.ExprBinding{Expr: v, Out: v})
		}
	}
	if len(aggs) == 0 {
		return nil, fmt.Errorf("group needs at least one aggregate")
	}
	for _, s := range aggs {
		item, err := parseAggregate(s, known)
		if err != nil {
			return nil, err
		}
		if seen[item.Out.Name] {
			return nil, fmt.Errorf("output variable ?%s is used twice", item.Out.Name)
		}
		seen[item.Out.Name] = true
		op.Select = append(op.Select, item)
	}
	return op, nil
}

// parseOrder parses comma-separated sort terms like "?g,-?total", where a
// leading - sorts in descending order.
func parseOrder(s string, known []*plandef.Variable) ([]plandef.OrderCondition, error) {
	var terms []plandef.OrderCondition
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		dir := plandef.SortAsc
		if strings.HasPrefix(term, "-") {
			dir = plandef.SortDesc
			term = term[1:]
		}
		v, err := parseVar(term, known)
		if err != nil {
			return nil, err
		}
		terms = append(terms, plandef.OrderCondition{Direction: dir, On: v})
	}
	return terms, nil
}
