// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// MetricsProvider selects the backing metrics exporter for the built-in
// recorder.
type MetricsProvider string

const (
	// PrometheusProvider exports metrics through a private Prometheus
	// registry, served by MetricsHandler.
	PrometheusProvider MetricsProvider = "prometheus"

	// StdoutProvider periodically dumps metrics to stdout. Intended for
	// development.
	StdoutProvider MetricsProvider = "stdout"
)

// Recorder is the built-in ObservabilityRecorder: OpenTelemetry metrics,
// optional tracing, and slog access logs in one lifecycle.
//
// Example:
//
//	rec, err := dispatch.NewRecorder(
//	    dispatch.WithMetricsProvider(dispatch.PrometheusProvider),
//	    dispatch.WithAccessLogger(slog.Default()),
//	    dispatch.WithExcludedPaths("/healthz", "/metrics"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d := dispatch.MustNew(dispatch.WithObservability(rec))
//	d.Handle("GET", "/metrics", func(c *dispatch.Context) {
//	    rec.MetricsHandler().ServeHTTP(c.Response, c.Request)
//	})
type Recorder struct {
	provider    MetricsProvider
	serviceName string
	excluded    map[string]struct{}

	meterProvider      *sdkmetric.MeterProvider
	meter              metric.Meter
	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler

	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCount      metric.Int64Counter

	tracing        bool
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	accessLogger *slog.Logger
}

// RecorderOption configures the built-in recorder.
type RecorderOption func(*Recorder)

// WithMetricsProvider selects the metrics exporter. Defaults to
// PrometheusProvider.
func WithMetricsProvider(p MetricsProvider) RecorderOption {
	return func(r *Recorder) { r.provider = p }
}

// WithServiceName sets the service name attached to spans and log lines.
func WithServiceName(name string) RecorderOption {
	return func(r *Recorder) { r.serviceName = name }
}

// WithAccessLogger enables canonical access log lines through the given
// logger. Nil disables access logging.
func WithAccessLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.accessLogger = l }
}

// WithTracing enables span creation per request, exported to stdout.
// Production deployments typically replace this with their own
// ObservabilityRecorder wired to a real trace backend.
func WithTracing(enable bool) RecorderOption {
	return func(r *Recorder) { r.tracing = enable }
}

// WithExcludedPaths excludes exact request paths from metrics, tracing,
// and access logs. Typically used for health and metrics endpoints.
func WithExcludedPaths(paths ...string) RecorderOption {
	return func(r *Recorder) {
		for _, p := range paths {
			r.excluded[p] = struct{}{}
		}
	}
}

// NewRecorder creates the built-in recorder and initializes its exporters.
func NewRecorder(opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		provider:    PrometheusProvider,
		serviceName: "dispatch",
		excluded:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.initMeterProvider(); err != nil {
		return nil, err
	}
	if err := r.initInstruments(); err != nil {
		return nil, err
	}
	if r.tracing {
		if err := r.initTracerProvider(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// initMeterProvider initializes the configured metrics exporter.
func (r *Recorder) initMeterProvider() error {
	switch r.provider {
	case PrometheusProvider:
		// Private registry so the recorder never collides with the
		// process-global one.
		r.prometheusRegistry = promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(r.prometheusRegistry))
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		r.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		r.prometheusHandler = promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})

	case StdoutProvider:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		r.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))),
		)

	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}

	r.meter = r.meterProvider.Meter("rivaas.dev/dispatch")
	return nil
}

// initInstruments creates the request instruments.
func (r *Recorder) initInstruments() error {
	var err error
	r.requestCount, err = r.meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of dispatched HTTP requests"))
	if err != nil {
		return err
	}
	r.requestDuration, err = r.meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return err
	}
	r.errorCount, err = r.meter.Int64Counter("http_errors_total",
		metric.WithDescription("Total number of HTTP responses with 5xx status"))
	return err
}

// initTracerProvider initializes the stdout trace exporter.
func (r *Recorder) initTracerProvider() error {
	exporter, err := stdouttrace.New()
	if err != nil {
		return fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}
	r.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	r.tracer = r.tracerProvider.Tracer("rivaas.dev/dispatch")
	return nil
}

// requestState is the opaque state token passed between lifecycle hooks.
type requestState struct {
	start  time.Time
	method string
	span   trace.Span
}

// OnRequestStart implements ObservabilityRecorder. Excluded paths return a
// nil state; context enrichment still applies.
func (r *Recorder) OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any) {
	if _, skip := r.excluded[req.URL.Path]; skip {
		return ctx, nil
	}

	state := &requestState{start: time.Now(), method: req.Method}
	if r.tracer != nil {
		ctx, state.span = r.tracer.Start(ctx, req.Method+" "+req.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.path", req.URL.Path),
				attribute.String("service.name", r.serviceName),
			),
		)
	}
	return ctx, state
}

// OnRequestEnd implements ObservabilityRecorder: records metrics labeled
// with the route pattern, finishes the span, and emits the access log
// line.
func (r *Recorder) OnRequestEnd(ctx context.Context, state any, info ResponseInfo, routePattern string) {
	st, ok := state.(*requestState)
	if !ok || st == nil {
		return
	}

	elapsed := time.Since(st.start)
	status := info.StatusCode()
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", st.method),
		attribute.String("http.route", routePattern),
		attribute.Int("http.response.status_code", status),
	)
	r.requestCount.Add(ctx, 1, attrs)
	r.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
	if status >= http.StatusInternalServerError {
		r.errorCount.Add(ctx, 1, attrs)
	}

	if st.span != nil {
		st.span.SetAttributes(
			attribute.String("http.route", routePattern),
			attribute.Int("http.response.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			st.span.SetStatus(otelcodes.Error, http.StatusText(status))
		}
		st.span.End()
	}

	if r.accessLogger != nil {
		r.accessLogger.LogAttrs(ctx, slog.LevelInfo, "request",
			slog.String("method", st.method),
			slog.String("route", routePattern),
			slog.Int("status", status),
			slog.Int64("bytes", info.Size()),
			slog.Duration("elapsed", elapsed),
			slog.String("service", r.serviceName),
		)
	}
}

// MetricsHandler returns the Prometheus scrape handler. It returns a 404
// handler when the recorder is not using the Prometheus provider.
func (r *Recorder) MetricsHandler() http.Handler {
	if r.prometheusHandler == nil {
		return http.NotFoundHandler()
	}
	return r.prometheusHandler
}

// Shutdown flushes and stops the recorder's exporters.
func (r *Recorder) Shutdown(ctx context.Context) error {
	var firstErr error
	if r.meterProvider != nil {
		if err := r.meterProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if r.tracerProvider != nil {
		if err := r.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Compile-time check that Recorder implements ObservabilityRecorder.
var _ ObservabilityRecorder = (*Recorder)(nil)
