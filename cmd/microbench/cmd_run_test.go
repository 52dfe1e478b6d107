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
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/microbench/cmd/microbench/config"
	"github.com/AleutianAI/microbench/services/microbench/harness"
	"github.com/AleutianAI/microbench/services/microbench/report"
)

// quick keeps every run to a couple of single-invocation iterations.
var quick = []string{"--forks", "0", "-wi", "1", "-w", "0s", "-i", "2", "-r", "0s", "-t", "1"}

func runArgs(extra ...string) []string {
	return append(append([]string{"run"}, quick...), extra...)
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"testCase=VALID, INVALID", "other=x", "testCase=NULL"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"testCase": {"NULL"},
		"other":    {"x"},
	}, got)

	for _, bad := range []string{"testCase", "=VALID", "testCase=", "testCase= , "} {
		_, err := parseParams([]string{bad})
		require.Error(t, err, bad)
		assert.True(t, harness.IsConfigurationError(err), bad)
	}
}

func TestResolveRunSettings(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
run:
  warmup_iterations: 7
  threads: 3
include: [NullDefaults]
params:
  testCase: [STRING]
output:
  format: influx
`), 0644))

	global := &globalOptions{configPath: cfgPath}
	f := &runFlags{}
	cmd := &cobra.Command{Use: "run"}
	bindRunFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{
		"--threads", "2", "--mode", "average", "-p", "testCase=NULL", "--result", "out.txt",
	}))

	settings, err := resolveRunSettings(cmd, global, f, nil)
	require.NoError(t, err)

	cfg := harness.DefaultConfig()
	cfg = settings.cfg.Run.Apply(cfg)
	assert.Equal(t, 7, cfg.WarmupIterations, "file value kept")
	assert.Equal(t, 2, cfg.Threads, "flag wins over file")
	assert.Equal(t, harness.ModeAverageTime, cfg.Mode)
	assert.Equal(t, 10, cfg.MeasurementIterations, "unset everywhere keeps the default")

	assert.Equal(t, []string{"NullDefaults"}, settings.include)
	assert.Equal(t, map[string][]string{"testCase": {"NULL"}}, settings.cfg.Params)
	assert.Equal(t, report.FormatInflux, settings.format)
	assert.Equal(t, "out.txt", settings.cfg.Output.Result)

	settings, err = resolveRunSettings(cmd, global, f, []string{"StringUtils"})
	require.NoError(t, err)
	assert.Equal(t, []string{"StringUtils"}, settings.include, "positional patterns replace include")
}

func TestResolveRunSettings_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := [][]string{
		{"--mode", "sample"},
		{"--unit", "fortnights"},
		{"--format", "xml"},
		{"--metrics", "statsd"},
		{"-p", "novalue"},
	}
	for _, args := range tests {
		f := &runFlags{}
		cmd := &cobra.Command{Use: "run"}
		bindRunFlags(cmd, f)
		require.NoError(t, cmd.ParseFlags(args))

		_, err := resolveRunSettings(cmd, &globalOptions{}, f, nil)
		require.Error(t, err, args)
		assert.True(t, harness.IsConfigurationError(err), "%v: %v", args, err)
	}
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, _, err := execute(t, runArgs(
		`NullDefaults\.cmpOr$`,
		"--metrics", "prometheus", "--metrics-file", "metrics/bench.prom",
	)...)
	require.NoError(t, err)

	assert.Contains(t, out, "NullDefaults.cmpOr")
	assert.Contains(t, out, "ops/ms")
	assert.Contains(t, out, "3 benchmarks, 0 failed")

	file, err := os.Open(filepath.Join(dir, "NullDefaults-results.json"))
	require.NoError(t, err)
	defer file.Close()
	results, err := report.ReadJSON(file)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "NullDefaults.cmpOr", r.Benchmark)
		assert.Nil(t, r.Error)
		assert.Equal(t, 1, r.Threads)
		assert.Equal(t, 2, r.MeasurementIterations)
	}

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics", "bench.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "microbench_benchmark_score")
	assert.Contains(t, string(metrics), `function="cmpOr"`)
}

func TestRunCommand_ParamsAndFormat(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, _, err := execute(t, runArgs(
		"UuidRegexValidation.measurePattern4$",
		"-p", "testCase=VALID",
		"-bm", "avgt", "-tu", "ns",
		"-rf", "influx", "-rff", "out/uuid.lp",
	)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ns/op")
	assert.Contains(t, out, "1 benchmarks, 0 failed")

	data, err := os.ReadFile(filepath.Join(dir, "out", "uuid.lp"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], report.Measurement+","))
	assert.Contains(t, lines[0], "param_testCase=VALID")
	assert.Contains(t, lines[0], "mode=avgt")
}

func TestRunCommand_FormatNoneWritesNothing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, _, err := execute(t, runArgs("OnlyOneNotNull.count$", "--format", "none")...)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("microbench.yaml", []byte(`
run:
  forks: 0
  warmup_iterations: 0
  measurement_iterations: 1
  warmup_time: 0s
  measurement_time: 0s
include: ['StringUtils\.isEmpty_Len$']
params:
  testCase: [EMPTY, "NULL"]
output:
  result: results/strings.json
`), 0644))

	out, _, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "2 benchmarks, 0 failed")
	_, err = os.Stat(filepath.Join(dir, "results", "strings.json"))
	assert.NoError(t, err)
}

func TestRunCommand_ConfigurationErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no match", runArgs("NoSuchSuite"), "patterns=NoSuchSuite"},
		{"bad pattern", runArgs("("), "missing closing )"},
		{"param value outside enumeration", runArgs("UuidRegexValidation", "-p", "testCase=BOGUS"), "value=BOGUS"},
		{"param name no suite declares", runArgs("NullDefaults", "-p", "testcase=NULL"), "param=testcase"},
		{"invalid override", runArgs("OnlyOneNotNull", "--batch-size", "0"), "BatchSize"},
		{"mode", runArgs("OnlyOneNotNull", "--mode", "sample"), "value=sample"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, harness.IsConfigurationError(err), err.Error())
			assert.Contains(t, harness.Describe(err), tt.want, "the printed error names the cause")
			assert.Empty(t, out, "no partial report")
		})
	}
}

func TestRunCommand_Forked(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(workerEnv, "1")

	out, _, err := execute(t, "run", `OnlyOneNotNull\.(count|logicalXor)$`,
		"-f", "2", "-wi", "1", "-w", "0s", "-i", "2", "-r", "0s", "-t", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2 benchmarks, 0 failed")

	file, err := os.Open(filepath.Join(dir, "OnlyOneNotNull-results.json"))
	require.NoError(t, err)
	defer file.Close()
	results, err := report.ReadJSON(file)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.Error, r.Benchmark)
		assert.Equal(t, 2, r.Forks)
		assert.Equal(t, 2, r.Threads)
		assert.Len(t, r.PrimaryMetric.RawData, 2, "one row per fork")
	}
}

func TestRunCommand_PublishesToInflux(t *testing.T) {
	t.Chdir(t.TempDir())

	var (
		mu    sync.Mutex
		paths []string
		body  strings.Builder
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		body.Write(data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	_, _, err := execute(t, runArgs("OnlyOneNotNull.countTrue$", "--format", "none",
		"--influx-url", server.URL, "--influx-token", "secret",
		"--influx-org", "perf", "--influx-bucket", "bench")...)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/api/v2/write", paths[len(paths)-1])
	assert.Contains(t, body.String(), "function=countTrue")
}

func TestWorkerArgs(t *testing.T) {
	assert.Equal(t, []string{harness.WorkerCommand}, workerArgs(config.LoggingConfig{}))
	assert.Equal(t, []string{harness.WorkerCommand, "--log-level", "debug", "--log-json"},
		workerArgs(config.LoggingConfig{Level: "debug", JSON: true}))
}
