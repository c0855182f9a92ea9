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

// Package exec executes query plans built by the planner. The Execute method
// takes a plan and executes it, generating a stream of Chunks containing the
// results.
//
// Each Chunk holds an ordered batch of BindingSets, each of which is one
// candidate solution to the query: a mapping from variables to values.
//
// Each node in the plan is converted into an operator, and each operator is
// run as one or more concurrent invocations. Invocations are connected by
// bounded streams: an invocation writes chunks to a Sink, and the consuming
// node's invocations read them from a Source. Slow consumption of the results
// channel will apply back pressure down the plan, possibly all the way to the
// external chunk producers that Scan nodes read.
//
// Every invocation closes its inputs and outputs however it exits. An
// invocation that fails cancels the whole execution, and the error that caused
// the failure is returned, not the errors other invocations saw as a result.
package exec
