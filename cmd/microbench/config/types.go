// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"github.com/AleutianAI/microbench/services/microbench/harness"
	"github.com/AleutianAI/microbench/services/microbench/report"
)

// MicrobenchConfig is the on-disk run configuration. Every section is
// optional; command-line flags override whatever the file sets.
type MicrobenchConfig struct {
	// Run overrides the suites' declared configuration.
	Run harness.Overrides `yaml:"run,omitempty"`

	// Include selects suites or functions by regular expression.
	Include []string `yaml:"include,omitempty" validate:"dive,required"`

	// Params restricts parameter values, e.g. testCase: [VALID].
	Params map[string][]string `yaml:"params,omitempty" validate:"dive,keys,required,endkeys,min=1,dive,required"`

	// Output selects where results go.
	Output OutputConfig `yaml:"output"`

	// Telemetry selects trace and metric exporters.
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`

	// Logging configures pkg/logging.
	Logging LoggingConfig `yaml:"logging"`
}

type OutputConfig struct {
	// Result is the result file path. Empty derives it from the suites run.
	Result string `yaml:"result,omitempty"`

	// Format is json, influx or none.
	Format string `yaml:"format" validate:"omitempty,oneof=json influx none"`

	// Influx publishes results to an InfluxDB bucket when URL is set.
	Influx report.InfluxConfig `yaml:"influx,omitempty"`
}

type TelemetryConfig struct {
	// TraceExporter is none, stdout or otlp. Empty defers to
	// OTEL_TRACES_EXPORTER.
	TraceExporter string `yaml:"trace_exporter,omitempty" validate:"omitempty,oneof=none stdout otlp"`

	// OTLPEndpoint is the OTLP gRPC receiver for traces.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// Metrics is none, prometheus or otel. Empty means none.
	Metrics string `yaml:"metrics,omitempty" validate:"omitempty,oneof=none prometheus otel"`

	// MetricsFile receives Prometheus text output after the run.
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig writes JSON results and logs at info. Telemetry is left
// unset so the OTEL_* environment variables still apply.
func DefaultConfig() MicrobenchConfig {
	return MicrobenchConfig{
		Output: OutputConfig{
			Format: string(report.FormatJSON),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
