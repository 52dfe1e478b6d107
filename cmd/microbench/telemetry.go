// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/microbench/cmd/microbench/config"
	"github.com/AleutianAI/microbench/services/microbench/harness"
	"github.com/AleutianAI/microbench/services/microbench/telemetry"
)

const (
	metricsNone       = "none"
	metricsPrometheus = "prometheus"
	metricsOTel       = "otel"

	defaultMetricsFile = "microbench.prom"
)

// runTelemetry is the telemetry wiring for one run command.
type runTelemetry struct {
	sink telemetry.Sink

	// registry is gathered into metricsFile by finish. Nil when metrics
	// go to an OTel stdout exporter or nowhere.
	registry    *prometheus.Registry
	metricsFile string

	providerShutdown func(context.Context) error
}

// setupTelemetry installs the trace exporter and builds the entry sink.
//
// Description:
//
//	"prometheus" records entries straight into a private registry with
//	PrometheusSink. "otel" records them through the OTel metrics API; the
//	meter provider exports to a private registry when a metrics file is
//	given and to stderr otherwise. Since a benchmark run has nothing to
//	scrape, registries are written as a Prometheus text file after the run.
func setupTelemetry(ctx context.Context, cfg config.TelemetryConfig, stderr io.Writer) (*runTelemetry, error) {
	tcfg := telemetry.DefaultConfig()
	if cfg.TraceExporter != "" {
		tcfg.TraceExporter = cfg.TraceExporter
	}
	if cfg.OTLPEndpoint != "" {
		tcfg.OTLPEndpoint = cfg.OTLPEndpoint
	}
	tcfg.MetricExporter = telemetry.ExporterNone
	tcfg.Writer = stderr

	rt := &runTelemetry{}
	switch cfg.Metrics {
	case "", metricsNone:
	case metricsPrometheus:
		rt.registry = prometheus.NewRegistry()
		rt.metricsFile = cfg.MetricsFile
		if rt.metricsFile == "" {
			rt.metricsFile = defaultMetricsFile
		}
	case metricsOTel:
		if cfg.MetricsFile != "" {
			rt.registry = prometheus.NewRegistry()
			rt.metricsFile = cfg.MetricsFile
			tcfg.MetricExporter = telemetry.ExporterPrometheus
			tcfg.Registry = rt.registry
		} else {
			tcfg.MetricExporter = telemetry.ExporterStdout
		}
	default:
		return nil, harness.NewErrInvalidOption("metrics", cfg.Metrics, "none, prometheus, otel")
	}

	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, harness.NewErrInvalidConfig("telemetry", err)
	}
	rt.providerShutdown = shutdown

	switch cfg.Metrics {
	case metricsPrometheus:
		pcfg := telemetry.DefaultPrometheusConfig()
		pcfg.Registry = rt.registry
		rt.sink, err = telemetry.NewPrometheusSink(pcfg)
	case metricsOTel:
		ocfg := telemetry.DefaultOTelConfig()
		ocfg.TraceEnabled = tcfg.TraceExporter != "" && tcfg.TraceExporter != telemetry.ExporterNone
		rt.sink, err = telemetry.NewOTelSink(ocfg)
	default:
		rt.sink = telemetry.NewNoOpSink()
	}
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("creating metrics sink: %w", err)
	}
	return rt, nil
}

// finish flushes the sink and writes the metrics file, if any. It must run
// before shutdown, which unregisters the sink's collectors.
func (rt *runTelemetry) finish(ctx context.Context) error {
	if err := rt.sink.Flush(ctx); err != nil {
		return err
	}
	if rt.registry == nil {
		return nil
	}
	return telemetry.WriteTextfile(rt.metricsFile, rt.registry)
}

// shutdown closes the sink and stops the installed providers.
func (rt *runTelemetry) shutdown(ctx context.Context) error {
	return errors.Join(rt.sink.Close(), rt.providerShutdown(ctx))
}
