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

// Package config contains the configuration for the chunkflow pipeline engine
// and the processes that host it. The configuration is typically loaded from a
// JSON file on disk.
package config

// Pipeline describes the configuration for running query plans. The zero value
// for each numeric field means "use the default".
type Pipeline struct {
	// The number of binding sets an operator accumulates before handing a
	// chunk to its sink. Defaults to 100.
	ChunkCapacity int `json:"chunkCapacity,omitempty"`

	// The number of chunks a sink buffers before producers block. Defaults to
	// 4.
	SinkCapacity int `json:"sinkCapacity,omitempty"`

	// Operators check for cancellation after processing this many binding
	// sets, as well as once per chunk. Defaults to 20.
	CancelCheckInterval int `json:"cancelCheckInterval,omitempty"`

	// The number of invocations to run for plan nodes that allow parallelism
	// but don't set MaxParallel themselves. Defaults to 1.
	DefaultMaxParallel int `json:"defaultMaxParallel,omitempty"`

	// If non-nil, the configuration for distributed tracing (OpenTracing). If
	// nil, no traces are collected.
	Tracing *Tracing `json:"tracing,omitempty"`

	// If non-nil, the admin HTTP server is started.
	API *API `json:"api,omitempty"`
}

// Tracing contains configuration related to distributed execution tracing.
type Tracing struct {
	// Must be "jaeger" (for now).
	Type string `json:"type"`

	// The host:port of the Jaeger agent that spans are sent to over UDP. If
	// empty, the Jaeger client default is used.
	LocalAgent string `json:"localAgent,omitempty"`

	// The fraction of queries to trace, from 0 to 1. Zero means trace every
	// query.
	SampleRate float64 `json:"sampleRate,omitempty"`
}

// API contains configuration for the admin HTTP server.
type API struct {
	// The host:port to listen on, for example ":9980".
	HTTPAddress string `json:"httpAddress"`
}
