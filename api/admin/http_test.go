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

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ebay/chunkflow/query"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/rpc"
	"github.com/ebay/chunkflow/util/clocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	engine := query.New(nil, 0)
	plan := &plandef.Plan{Operator: &plandef.Values{
		Variables: []*plandef.Variable{{Name: "x"}},
		Rows:      [][]rpc.KGObject{{rpc.AInt64(1)}, {rpc.AInt64(2)}},
	}}
	resCh := make(chan query.Chunk, 4)
	err := engine.Run(context.Background(), plan, query.Options{Label: "two values"}, resCh)
	require.NoError(t, err)
	return New(engine, clocks.NewMock())
}

func get(t *testing.T, s *Server, method, url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func Test_Queries(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "GET", "/queries")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var res []query.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, uint64(1), res[0].ID)
	assert.Equal(t, "two values", res[0].Label)
	assert.False(t, res[0].Running)
}

func Test_QueriesTable(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "GET", "/queries.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "two values")
	assert.Contains(t, w.Body.String(), "done")
}

func Test_Stats(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "GET", "/queries/1/stats.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Values ?x (2 rows)")
	assert.Contains(t, w.Body.String(), "Rows Out")

	w = get(t, s, "GET", "/queries/1/plan.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Values ?x (2 rows)")

	w = get(t, s, "GET", "/queries/1/plan.dot")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/vnd.graphviz; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `n0 [label="Values ?x (2 rows)"];`)

	w = get(t, s, "GET", "/queries/7/stats.txt")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Execution 7 not found\n", w.Body.String())

	w = get(t, s, "GET", "/queries/bob/stats.txt")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_Metrics(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chunkflow_query_executions_total")
}

func Test_SetLogLevel(t *testing.T) {
	s := testServer(t)
	prev := log.GetLevel()
	defer log.SetLevel(prev)
	w := get(t, s, "POST", "/logLevel?l=debug")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	w = get(t, s, "POST", "/logLevel?l=loud")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func Test_ProfileParams(t *testing.T) {
	s := testServer(t)
	w := get(t, s, "POST", "/profile")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = get(t, s, "POST", "/profile?d=soon")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
