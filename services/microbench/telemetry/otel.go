// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"math"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

const instrumentationName = "github.com/AleutianAI/microbench/services/microbench/telemetry"

var (
	// ErrOTelInitFailed is returned when an instrument cannot be created.
	ErrOTelInitFailed = errors.New("opentelemetry initialization failed")

	// ErrInvalidOTelConfig is returned when the OTel configuration is invalid.
	ErrInvalidOTelConfig = errors.New("invalid opentelemetry configuration")
)

// OTelConfig configures the OpenTelemetry sink.
type OTelConfig struct {
	// ServiceVersion is reported as the instrumentation version.
	ServiceVersion string

	// TracerProvider is the tracer provider to use.
	// If nil, uses the global tracer provider.
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If nil, uses the global meter provider.
	MeterProvider metric.MeterProvider

	// TraceEnabled emits one span per recorded entry.
	TraceEnabled bool

	// MetricsEnabled records entry metrics.
	MetricsEnabled bool
}

// DefaultOTelConfig enables metrics and per-entry spans on the global providers.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceVersion: "1.0.0",
		TraceEnabled:   true,
		MetricsEnabled: true,
	}
}

// OTelSink records report entries through the OpenTelemetry API.
//
// Description:
//
//	Each entry becomes a "microbench.entry" span carrying its key, score and
//	error (status Error for failed entries) plus metric points on the
//	score gauges and the operations, entries and failures counters.
//
// Thread Safety: Safe for concurrent use.
type OTelSink struct {
	config *OTelConfig
	tracer trace.Tracer
	meter  metric.Meter

	score      metric.Float64Gauge
	scoreError metric.Float64Gauge
	operations metric.Int64Counter
	entries    metric.Int64Counter
	failures   metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewOTelSink creates a sink on the configured (or global) providers.
//
// Outputs:
//   - *OTelSink: Never nil on success.
//   - error: ErrInvalidOTelConfig or ErrOTelInitFailed.
func NewOTelSink(config *OTelConfig) (*OTelSink, error) {
	if config == nil {
		return nil, ErrInvalidOTelConfig
	}
	cfg := *config

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	sink := &OTelSink{
		config: &cfg,
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion)),
		meter:  mp.Meter(instrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion)),
	}

	if cfg.MetricsEnabled {
		if err := sink.initializeMetrics(); err != nil {
			return nil, errors.Join(ErrOTelInitFailed, err)
		}
	}
	return sink, nil
}

func (s *OTelSink) initializeMetrics() error {
	var err error

	s.score, err = s.meter.Float64Gauge(
		"microbench.benchmark.score",
		metric.WithDescription("Benchmark score in the entry's unit"),
	)
	if err != nil {
		return err
	}

	s.scoreError, err = s.meter.Float64Gauge(
		"microbench.benchmark.score_error",
		metric.WithDescription("Half-width of the 99% confidence interval of the score"),
	)
	if err != nil {
		return err
	}

	s.operations, err = s.meter.Int64Counter(
		"microbench.benchmark.operations",
		metric.WithDescription("Measured benchmark invocations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return err
	}

	s.entries, err = s.meter.Int64Counter(
		"microbench.benchmark.entries",
		metric.WithDescription("Report entries by status"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	s.failures, err = s.meter.Int64Counter(
		"microbench.benchmark.failures",
		metric.WithDescription("Failed report entries by error kind"),
		metric.WithUnit("{entry}"),
	)
	return err
}

// RecordEntry records one entry as a span and metric points.
//
// Thread Safety: Safe for concurrent use.
func (s *OTelSink) RecordEntry(ctx context.Context, entry *harness.Entry) error {
	if ctx == nil {
		return ErrNilContext
	}
	if entry == nil {
		return ErrNilEntry
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	l := labelsFor(entry)
	attrs := []attribute.KeyValue{
		attribute.String("suite", l.suite),
		attribute.String("function", l.function),
		attribute.String("params", l.params),
		attribute.String("mode", l.mode),
		attribute.String("unit", l.unit),
	}

	if s.config.TraceEnabled {
		_, span := s.tracer.Start(ctx, "microbench.entry", trace.WithAttributes(attrs...))
		if entry.Failed() {
			span.SetAttributes(
				attribute.String("error.kind", l.kind),
				attribute.String("error.code", entry.Error.Code),
			)
			span.SetStatus(codes.Error, entry.Error.Message)
		} else {
			span.SetAttributes(
				attribute.Float64("score", entry.Score),
				attribute.Int("iterations", entry.Iterations),
				attribute.Int64("operations", entry.Operations),
			)
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	if !s.config.MetricsEnabled {
		return nil
	}

	suiteAttr := attribute.String("suite", l.suite)
	s.entries.Add(ctx, 1, metric.WithAttributes(suiteAttr, attribute.String("status", l.status)))
	if entry.Failed() {
		s.failures.Add(ctx, 1, metric.WithAttributes(suiteAttr, attribute.String("kind", l.kind)))
		return nil
	}

	attrSet := metric.WithAttributes(attrs...)
	s.score.Record(ctx, entry.Score, attrSet)
	if !math.IsNaN(entry.ScoreError) {
		s.scoreError.Record(ctx, entry.ScoreError, attrSet)
	}
	s.operations.Add(ctx, entry.Operations, attrSet)
	return nil
}

// Flush is a no-op; the meter provider's reader exports on its own
// schedule and on shutdown.
func (s *OTelSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// Close marks the sink closed. Providers are owned by the caller.
func (s *OTelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify interface compliance at compile time.
var _ Sink = (*OTelSink)(nil)
