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

// Package tracing sets up distributed tracing through OpenTracing and Jaeger,
// and lets spans report their durations to Prometheus.
package tracing

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ebay/chunkflow/config"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Tracer is a handle to the global tracer set up by New.
type Tracer struct {
	// If not nil, called by Close.
	close func()
}

// New installs a Jaeger tracer as the global OpenTracing tracer. If cfg is
// nil, tracing stays disabled (the global tracer remains a no-op) and the
// returned Tracer does nothing.
func New(serviceName string, cfg *config.Tracing) (*Tracer, error) {
	if cfg == nil {
		log.Debug("Skipping Jaeger setup: nil Tracing configuration")
		return &Tracer{}, nil
	}
	sampler := &jaegercfg.SamplerConfig{
		Type:  jaeger.SamplerTypeConst,
		Param: 1,
	}
	if cfg.SampleRate > 0 {
		sampler = &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeProbabilistic,
			Param: cfg.SampleRate,
		}
	}
	jcfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler:     sampler,
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort:  cfg.LocalAgent,
			BufferFlushInterval: time.Second,
		},
	}
	logger := (*logrusAdapter)(log.WithFields(log.Fields{"component": "jaeger"}))
	tracer, closer, err := jcfg.NewTracer(
		jaegercfg.Logger(logger),
		jaegercfg.ContribObserver(&contribObserver{}),
	)
	if err != nil {
		return nil, fmt.Errorf("could not initialize Jaeger tracer: %v", err)
	}
	opentracing.SetGlobalTracer(tracer)
	log.WithFields(log.Fields{
		"service":    serviceName,
		"localAgent": cfg.LocalAgent,
		"sampleRate": cfg.SampleRate,
	}).Info("Jaeger tracing enabled")
	return &Tracer{
		close: func() {
			err := closer.Close()
			if err != nil {
				log.WithError(err).Warn("Error shutting down Jaeger tracer")
			}
			opentracing.SetGlobalTracer(opentracing.NoopTracer{})
		},
	}, nil
}

// Close flushes any pending spans and shuts down the tracer. It's safe to call
// Close more than once.
func (t *Tracer) Close() {
	if t.close != nil {
		t.close()
	}
	t.close = nil
}

// logrusAdapter implements jaeger.Logger.
type logrusAdapter log.Entry

func (_log *logrusAdapter) Error(msg string) {
	log := (*log.Entry)(_log)
	log.Error(strings.TrimSpace(msg))
}

func (_log *logrusAdapter) Infof(msg string, args ...interface{}) {
	log := (*log.Entry)(_log)
	log.Debugf(strings.TrimSpace(msg), args...)
}

type contribObserver struct{}

func (m *contribObserver) OnStartSpan(
	span opentracing.Span,
	operationName string,
	options opentracing.StartSpanOptions,
) (jaeger.ContribSpanObserver, bool) {
	start := options.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	return &spanObserver{start: start}, true
}

// spanObserver feeds the span's duration into a metric, if the span was tagged
// with one through UpdateMetric.
type spanObserver struct {
	start time.Time
	// metricLock protects metric. Spans are rarely tagged and finished
	// concurrently, but nothing stops a caller from doing so.
	metricLock sync.Mutex
	metric     Metric
}

func (o *spanObserver) OnSetOperationName(name string) {}

func (o *spanObserver) OnSetTag(key string, value interface{}) {
	if key != "metric" {
		return
	}
	if metric, ok := value.(stringableMetric); ok {
		o.metricLock.Lock()
		o.metric = metric.Metric
		o.metricLock.Unlock()
	}
}

func (o *spanObserver) OnFinish(options opentracing.FinishOptions) {
	finish := options.FinishTime
	if finish.IsZero() {
		finish = time.Now()
	}
	o.metricLock.Lock()
	if o.metric != nil {
		o.metric.Observe(finish.Sub(o.start).Seconds())
	}
	o.metricLock.Unlock()
}

// UpdateMetric arranges for the span's duration, in seconds, to be observed by
// metric when the span finishes. This only has an effect when the Jaeger
// tracer from New is installed.
func UpdateMetric(span opentracing.Span, metric Metric) {
	span.SetTag("metric", stringableMetric{metric})
}

// Metric is a Prometheus metric that takes observations, such as a Summary or
// a Histogram.
type Metric interface {
	prometheus.Metric
	Observe(float64)
}

// stringableMetric shows up in the trace UI as the metric's name.
type stringableMetric struct {
	Metric
}

func (metric stringableMetric) String() string {
	// Desc's String looks like:
	//   Desc{fqName: %q, help: %q, constLabels: {%s}, variableLabels: %v}
	s := metric.Desc().String()
	s = strings.TrimPrefix(s, `Desc{fqName: "`)
	i := strings.IndexByte(s, '"')
	if i < 0 {
		return ""
	}
	return s[:i]
}
