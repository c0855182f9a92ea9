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

// Command chunkflow runs routing and group-by pipelines over binding sets
// read from tab-separated files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	docopt "github.com/docopt/docopt-go"
	"github.com/ebay/chunkflow/api/admin"
	"github.com/ebay/chunkflow/config"
	"github.com/ebay/chunkflow/query"
	"github.com/ebay/chunkflow/query/exec"
	"github.com/ebay/chunkflow/query/planner/plandef"
	"github.com/ebay/chunkflow/util/debuglog"
	"github.com/ebay/chunkflow/util/graphviz"
	"github.com/ebay/chunkflow/util/parallel"
	"github.com/ebay/chunkflow/util/tracing"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var fmtr = message.NewPrinter(language.English)

// helpHandler is called by docopt for parse errors and --help.
var helpHandler = docopt.PrintHelpAndExit

const usage = `chunkflow is a command-line tool for running chunked pipelines over
tab-separated binding sets.

Usage:
  chunkflow [options] route VAR OP VALUE
  chunkflow [options] group [--by=VARS] AGG...

Options:
  -i=FILE, --input=FILE     Read binding sets from FILE instead of standard
                            input.
  -c=FILE, --config=FILE    Pipeline configuration file (JSON).
  -p=NUM, --parallel=NUM    Invocations for each parallel operator [default: 0].
  -t=DUR, --timeout=DUR     Give up after this long [default: 0s].
  --by=VARS                 Comma-separated variables to group by.
  --order=TERMS             Comma-separated variables to sort the output by,
                            each optionally prefixed with - for descending.
  --limit=NUM               Output at most this many rows.
  --format=FORMAT           Output format, tsv or table [default: tsv].
  --diagram=FILE            Draw the plan to FILE (.pdf, .png or .svg) using
                            Graphviz dot.
  --progress                Show a progress bar while reading the input.
  --debug                   Write an execution report to $TMPDIR.
  --admin=ADDR              Serve the admin HTTP endpoints on ADDR while running.
  --trace=HOST              Send OpenTracing traces to this Jaeger agent.

The input's first line names the variables, such as "?g<TAB>?v". Each
following line holds one binding set. Empty fields are unbound; other fields
are parsed as numbers, true/false, #KIDs, or "quoted" strings, and anything
else is taken as a plain string.

Examples:
  # Keep the rows whose ?price is more than 20.
  chunkflow -i sales.tsv route ?price '>' 20

  # Total and average ?price per ?region, biggest total first.
  chunkflow -i sales.tsv group --by=?region --order=-?total '?total=sum(?price)' 'avg(?price)'

  # Count the distinct customers.
  chunkflow group 'count(distinct ?customer)' < sales.tsv
`

type options struct {
	Config   string `docopt:"--config"`
	Parallel int
	Timeout  time.Duration
	// TimeoutString is parsed into Timeout.
	TimeoutString string `docopt:"--timeout"`
	By            string
	Order         string
	Limit         string
	Format        string
	Diagram       string
	Progress      bool
	Debug         bool
	Admin         string
	Trace         string

	// Route
	Route bool   `docopt:"route"`
	Var   string `docopt:"VAR"`
	Op    string `docopt:"OP"`
	Value string `docopt:"VALUE"`

	// Group
	Group bool     `docopt:"group"`
	Aggs  []string `docopt:"AGG"`

	Filename string `docopt:"--input"`
}

func parseArgs(argv []string) (*options, error) {
	parser := &docopt.Parser{HelpHandler: helpHandler}
	opts, err := parser.ParseArgs(usage, argv, "")
	if err != nil {
		return nil, fmt.Errorf("error parsing command-line arguments: %v", err)
	}
	var options options
	if err := opts.Bind(&options); err != nil {
		return nil, fmt.Errorf("error binding command-line arguments: %v", err)
	}
	if options.Parallel < 0 {
		return nil, fmt.Errorf("--parallel must not be negative, got %d", options.Parallel)
	}
	if options.TimeoutString != "" {
		options.Timeout, err = time.ParseDuration(options.TimeoutString)
		if err != nil {
			return nil, fmt.Errorf("unable to parse timeout value: %v", err)
		}
	}
	switch options.Format {
	case "tsv", "table":
	default:
		return nil, fmt.Errorf("--format must be tsv or table, got %q", options.Format)
	}
	return &options, nil
}

func main() {
	debuglog.Configure(debuglog.Options{})
	options, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	cfg := new(config.Pipeline)
	if options.Config != "" {
		cfg, err = config.Load(options.Config)
		if err != nil {
			log.Fatalf("Unable to load configuration: %v", err)
		}
	}
	if options.Trace != "" {
		cfg.Tracing = &config.Tracing{Type: "jaeger", LocalAgent: options.Trace}
	}
	if cfg.Tracing != nil {
		tracer, err := tracing.New("chunkflow", cfg.Tracing)
		if err != nil {
			log.WithError(err).Warn("Could not initialize OpenTracing tracer")
		} else {
			defer tracer.Close()
		}
	}
	if options.Admin != "" {
		cfg.API = &config.API{HTTPAddress: options.Admin}
	}

	engine := query.New(cfg, 0)
	if cfg.API != nil {
		server := admin.New(engine, nil)
		go func() {
			if err := server.ListenAndServe(cfg.API.HTTPAddress); err != nil {
				log.WithError(err).Error("Admin HTTP server failed")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	go func() {
		<-interrupts
		log.Warn("Interrupted, canceling execution")
		cancel()
	}()

	span, ctx := opentracing.StartSpanFromContext(ctx, "chunkflow run")
	err = run(ctx, engine, cfg, options, os.Stdout)
	span.Finish()
	if err != nil {
		log.Errorf("Execution failed (%s): %v", exec.ErrorKind(err), err)
		os.Exit(1)
	}
}

// run reads the input, builds and runs the plan the options describe, and
// writes the results to out.
func run(ctx context.Context, engine *query.Engine, cfg *config.Pipeline, options *options, out io.Writer) error {
	in, size, label, err := openInput(options.Filename)
	if err != nil {
		return err
	}
	chunkCap := exec.NewOptions(cfg).ChunkCapacity
	producer, err := newTSVProducer(in, size, chunkCap, options.Progress, label)
	if err != nil {
		in.Close()
		return err
	}

	plan, columns, err := buildPlan(options, producer.Variables())
	if err != nil {
		producer.Close()
		return err
	}
	log.Debugf("Plan:\n%v", plan)
	if options.Diagram != "" {
		if err := graphviz.Create(options.Diagram, plan.Graphviz, graphviz.Options{}); err != nil {
			log.WithError(err).Warn("Unable to draw plan diagram")
		} else {
			log.Infof("Plan diagram written to %s", options.Diagram)
		}
	}

	resCh := make(chan query.Chunk, 4)
	results := newResultWriter(out, options.Format, columns)
	err = parallel.Invoke(ctx,
		func(ctx context.Context) error {
			return engine.Run(ctx, plan, query.Options{
				Label:     commandLabel(options),
				Producers: map[string]exec.ChunkProducer{inputName: producer},
				Debug:     options.Debug,
			}, resCh)
		},
		func(ctx context.Context) error {
			return results.writeAll(resCh)
		})
	if err != nil {
		return err
	}
	summarize(engine, options)
	return nil
}

// summarize logs how many rows each command consumed and produced.
func summarize(engine *query.Engine, options *options) {
	recent := engine.Recent(time.Now())
	if len(recent) == 0 {
		return
	}
	execution := engine.Lookup(recent[0].ID)
	if execution == nil {
		return
	}
	stats := execution.Stats()
	var read, written uint64
	for _, s := range stats {
		if _, ok := s.Plan.Operator.(*plandef.Scan); ok {
			read = s.Stats.UnitsOut
		}
	}
	if len(stats) > 0 {
		written = stats[len(stats)-1].Stats.UnitsOut
	}
	if options.Route {
		log.Info(fmtr.Sprintf("Matched %d of %d rows in %v", written, read, recent[0].Duration))
		return
	}
	log.Info(fmtr.Sprintf("Read %d rows into %d output rows in %v", read, written, recent[0].Duration))
}

func commandLabel(options *options) string {
	switch {
	case options.Route:
		return fmt.Sprintf("route %s %s %s", options.Var, options.Op, strconv.Quote(options.Value))
	case options.Group:
		return fmt.Sprintf("group by %q: %v", options.By, options.Aggs)
	}
	return "chunkflow"
}
