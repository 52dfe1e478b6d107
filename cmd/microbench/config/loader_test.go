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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

const sampleYAML = `
run:
  warmup_iterations: 2
  measurement_time: 500ms
  forks: 0
  mode: avgt
  time_unit: ns
include:
  - ^UuidRegexValidation\.measurePattern
params:
  testCase: [VALID, INVALID]
output:
  result: out/uuid.json
  format: json
  influx:
    url: http://localhost:8086
    org: perf
    bucket: bench
telemetry:
  trace_exporter: stdout
  metrics: prometheus
  metrics_file: out/metrics.prom
logging:
  level: debug
  json: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.NotNil(t, cfg.Run.WarmupIterations)
	assert.Equal(t, 2, *cfg.Run.WarmupIterations)
	require.NotNil(t, cfg.Run.MeasurementTime)
	assert.Equal(t, 500*time.Millisecond, *cfg.Run.MeasurementTime)
	require.NotNil(t, cfg.Run.Forks)
	assert.Equal(t, 0, *cfg.Run.Forks)
	require.NotNil(t, cfg.Run.Mode)
	assert.Equal(t, harness.ModeAverageTime, *cfg.Run.Mode)
	require.NotNil(t, cfg.Run.TimeUnit)
	assert.Equal(t, harness.Nanoseconds, *cfg.Run.TimeUnit)
	assert.Nil(t, cfg.Run.Threads)

	assert.Equal(t, []string{`^UuidRegexValidation\.measurePattern`}, cfg.Include)
	assert.Equal(t, map[string][]string{"testCase": {"VALID", "INVALID"}}, cfg.Params)
	assert.Equal(t, "out/uuid.json", cfg.Output.Result)
	assert.True(t, cfg.Output.Influx.Enabled())
	assert.Equal(t, "bench", cfg.Output.Influx.Bucket)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
	assert.Equal(t, "prometheus", cfg.Telemetry.Metrics)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestParse_LongModeAndUnitNames(t *testing.T) {
	cfg, err := Parse([]byte("run:\n  mode: average\n  time_unit: microseconds\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Run.Mode)
	require.NotNil(t, cfg.Run.TimeUnit)
	assert.Equal(t, harness.ModeAverageTime, *cfg.Run.Mode)
	assert.Equal(t, harness.Microseconds, *cfg.Run.TimeUnit)
}

func TestParse_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Parse([]byte("logging:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad format", "output:\n  format: xml\n", "Format(oneof)"},
		{"bad metrics", "telemetry:\n  metrics: statsd\n", "Metrics(oneof)"},
		{"bad level", "logging:\n  level: chatty\n", "Level(oneof)"},
		{"empty param list", "params:\n  testCase: []\n", "Params"},
		{"empty include", "include: ['']\n", "Include"},
		{"unknown key", "output:\n  fromat: json\n", "fromat"},
		{"bad duration", "run:\n  warmup_time: soon\n", "time.Duration"},
		{"bad mode", "run:\n  mode: sample\n", "invalid option value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out/uuid.json", cfg.Output.Result)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.WriteFile(DefaultFileName, []byte("output:\n  format: none\n"), 0644))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Output.Format)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", DefaultFileName)
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	assert.Error(t, WriteDefault(path), "existing file is not overwritten")
}
