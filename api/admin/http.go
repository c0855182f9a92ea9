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

// Package admin serves the diagnostic HTTP endpoints of a process that runs
// plans: Prometheus metrics, the registry of recent executions and their
// per-node counters, and a few runtime knobs.
package admin

import (
	"net/http"
	_ "net/http/pprof" // enable pprof endpoints
	"strconv"
	"time"

	"github.com/ebay/chunkflow/query"
	"github.com/ebay/chunkflow/util/clocks"
	"github.com/ebay/chunkflow/util/profiling"
	"github.com/ebay/chunkflow/util/table"
	"github.com/ebay/chunkflow/util/web"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Server is the admin HTTP server for an Engine.
type Server struct {
	engine *query.Engine
	clock  clocks.Source
	router *httprouter.Router
}

// New returns a Server that reports on the given engine. clock is used for
// the durations of running executions; if nil, clocks.Wall is used. The
// returned Server does not listen until a subsequent call to ListenAndServe.
func New(engine *query.Engine, clock clocks.Source) *Server {
	if clock == nil {
		clock = clocks.Wall
	}
	s := &Server{
		engine: engine,
		clock:  clock,
	}
	m := httprouter.New()
	// prometheus metrics
	m.Handler("GET", "/metrics", promhttp.Handler())
	m.GET("/queries", s.queries)
	m.GET("/queries.txt", s.queriesTable)
	m.GET("/queries/:id/plan.txt", s.plan)
	m.GET("/queries/:id/plan.dot", s.planDot)
	m.GET("/queries/:id/stats.txt", s.stats)
	m.POST("/logLevel", s.setLogLevel)
	m.POST("/profile", s.profile)
	m.NotFound = http.DefaultServeMux
	s.router = m
	return s
}

// Handler returns the http.Handler serving every admin endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("[admin] %v %v", r.Method, r.URL)
		s.router.ServeHTTP(w, r)
	})
}

// ListenAndServe serves the admin endpoints on addr. It blocks until the
// listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Infof("Admin HTTP server listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// queries writes the summaries of the recent executions as JSON, newest
// first.
func (s *Server) queries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	web.Write(w, s.engine.Recent(s.clock.Now()))
}

// queriesTable writes the summaries of the recent executions as a text
// table.
func (s *Server) queriesTable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	recent := s.engine.Recent(s.clock.Now())
	p := message.NewPrinter(language.English)
	rows := make([][]string, 0, 1+len(recent))
	rows = append(rows, []string{"ID", "Label", "Started", "State", "Duration", "Error"})
	for _, q := range recent {
		state := "done"
		if q.Running {
			state = "running"
		} else if q.Error != "" {
			state = "failed"
		}
		rows = append(rows, []string{
			p.Sprintf("%d", q.ID),
			q.Label,
			q.Started.UTC().Format(time.RFC3339),
			state,
			q.Duration.Round(time.Microsecond).String(),
			q.Error,
		})
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	table.PrettyPrint(w, rows, table.HeaderRow)
}

func (s *Server) lookup(p httprouter.Params) (*query.Execution, error) {
	id, err := strconv.ParseUint(p.ByName("id"), 10, 64)
	if err != nil {
		return nil, web.NewError(http.StatusBadRequest, "Unable to parse execution ID: %v", err)
	}
	execution := s.engine.Lookup(id)
	if execution == nil {
		return nil, web.NewError(http.StatusNotFound, "Execution %d not found", id)
	}
	return execution, nil
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	execution, err := s.lookup(p)
	if err != nil {
		web.Write(w, err)
		return
	}
	if execution.Plan == nil {
		web.Write(w, "<no plan>\n")
		return
	}
	web.Write(w, execution.Plan.String())
}

// planDot writes the plan of an execution as a Graphviz digraph.
func (s *Server) planDot(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	execution, err := s.lookup(p)
	if err != nil {
		web.Write(w, err)
		return
	}
	if execution.Plan == nil {
		web.WriteError(w, http.StatusNotFound, "Execution %d has no plan", execution.ID)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	execution.Plan.Graphviz(w)
}

// stats writes the per-node counters of an execution as a text table,
// children before parents.
func (s *Server) stats(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	execution, err := s.lookup(p)
	if err != nil {
		web.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	execution.WriteStats(w)
}

// setLogLevel changes the level of the process-wide logger to the one named
// in the 'l' parameter.
func (s *Server) setLogLevel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	levelName := r.URL.Query().Get("l")
	level, err := log.ParseLevel(levelName)
	if err != nil {
		web.WriteError(w, http.StatusBadRequest, "Unable to parse level name: %s, %v", levelName, err)
		return
	}
	log.SetLevel(level)
	w.WriteHeader(http.StatusNoContent)
}

// profile collects a CPU profile for the duration in the 'd' parameter,
// writing it to prof.cpu in the working directory.
func (s *Server) profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	dur, err := parseDuration(r, "d")
	if err != nil {
		web.Write(w, err)
		return
	}
	if err := profiling.CPUProfileForDuration("prof.cpu", dur); err != nil {
		web.WriteError(w, http.StatusConflict, "Unable to start profiling: %v", err)
		return
	}
	web.Write(w, "Profiling started\n")
}

func parseDuration(r *http.Request, paramName string) (time.Duration, error) {
	sv := r.URL.Query().Get(paramName)
	if sv == "" {
		return 0, web.NewError(http.StatusBadRequest, "QueryString param '%s' must be specified", paramName)
	}
	d, err := time.ParseDuration(sv)
	if err != nil {
		return 0, web.NewError(http.StatusBadRequest, "Unable to parse queryString param '%s' into a Duration: %v", paramName, err)
	}
	return d, nil
}
