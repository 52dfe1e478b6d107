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
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/microbench/cmd/microbench/config"
	"github.com/AleutianAI/microbench/services/microbench/harness"
	"github.com/AleutianAI/microbench/services/microbench/report"
	"github.com/AleutianAI/microbench/services/microbench/suites"
)

// runFlags holds the flags of the run command. Numeric and duration flags
// only take effect when given explicitly; otherwise the config file and
// then the suite's own declaration apply.
type runFlags struct {
	warmup          int
	warmupTime      time.Duration
	iterations      int
	measurementTime time.Duration
	batchSize       int
	threads         int
	forks           int
	mode            string
	unit            string
	params          []string

	result string
	format string

	traceExporter string
	otlpEndpoint  string
	metrics       string
	metricsFile   string

	influx report.InfluxConfig
}

func newRunCmd(global *globalOptions) *cobra.Command {
	f := &runFlags{}

	runCmd := &cobra.Command{
		Use:   "run [pattern...]",
		Short: "Run benchmarks whose <suite>.<function> matches any pattern",
		Long: `Run the selected benchmarks and print a score table.

Patterns are regular expressions matched against "<suite>.<function>". With
no patterns, the config file's include list applies, and with neither every
registered benchmark runs. Benchmarks that fail are reported alongside the
results; the command fails only when the run itself cannot start.`,
		Example: `  microbench run UuidRegexValidation -p testCase=VALID -f 1 -wi 3 -i 5
  microbench run 'StringUtils\.isBlank' --mode avgt --unit ns --format influx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmarks(cmd, global, f, args)
		},
	}

	bindRunFlags(runCmd, f)
	return runCmd
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	flags := cmd.Flags()
	flags.IntVar(&f.warmup, "warmup", 0, "Warmup iterations (JMH -wi)")
	flags.DurationVar(&f.warmupTime, "warmup-time", 0, "Time per warmup iteration; 0 runs one batch (JMH -w)")
	flags.IntVarP(&f.iterations, "iterations", "i", 0, "Measurement iterations")
	flags.DurationVar(&f.measurementTime, "time", 0, "Time per measurement iteration; 0 runs one batch (JMH -r)")
	flags.IntVar(&f.batchSize, "batch-size", 0, "Invocations per timed batch (JMH -bs)")
	flags.IntVarP(&f.threads, "threads", "t", 0, "Threads invoking each function concurrently")
	flags.IntVarP(&f.forks, "forks", "f", 0, "Forked worker processes per binding; 0 runs in-process")
	flags.StringVar(&f.mode, "mode", "", "Benchmark mode: thrpt or avgt (JMH -bm)")
	flags.StringVar(&f.unit, "unit", "", "Score time unit: ns, us, ms or s (JMH -tu)")
	flags.StringArrayVarP(&f.params, "param", "p", nil, "Restrict a parameter, e.g. -p testCase=VALID,INVALID (repeatable)")

	flags.StringVar(&f.result, "result", "", "Result file (default <suite>-results.<ext>)")
	flags.StringVar(&f.format, "format", "", "Result format: json, influx or none")

	flags.StringVar(&f.traceExporter, "trace-exporter", "", "Trace exporter: none, stdout or otlp")
	flags.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces")
	flags.StringVar(&f.metrics, "metrics", "", "Record entry metrics: none, prometheus or otel")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus text metrics here after the run")

	flags.StringVar(&f.influx.URL, "influx-url", "", "Publish results to this InfluxDB server")
	flags.StringVar(&f.influx.Token, "influx-token", "", "InfluxDB API token (default $INFLUX_TOKEN)")
	flags.StringVar(&f.influx.Org, "influx-org", "", "InfluxDB organization")
	flags.StringVar(&f.influx.Bucket, "influx-bucket", "", "InfluxDB bucket")
}

// runSettings is the fully merged view of config file and flags.
type runSettings struct {
	cfg     config.MicrobenchConfig
	include []string
	format  report.Format
}

// resolveRunSettings loads the config file and overlays explicitly set
// flags and positional patterns on it.
func resolveRunSettings(cmd *cobra.Command, global *globalOptions, f *runFlags, args []string) (runSettings, error) {
	cfg, err := config.Load(global.configPath)
	if err != nil {
		return runSettings{}, err
	}
	applyLogFlags(cmd, global, &cfg.Logging)

	overrides, err := flagOverrides(cmd, f)
	if err != nil {
		return runSettings{}, err
	}
	cfg.Run = cfg.Run.Merge(overrides)

	params, err := parseParams(f.params)
	if err != nil {
		return runSettings{}, err
	}
	if len(params) > 0 && cfg.Params == nil {
		cfg.Params = make(map[string][]string, len(params))
	}
	for name, values := range params {
		cfg.Params[name] = values
	}

	flags := cmd.Flags()
	setIfChanged := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	setIfChanged("result", &cfg.Output.Result, f.result)
	setIfChanged("format", &cfg.Output.Format, f.format)
	setIfChanged("trace-exporter", &cfg.Telemetry.TraceExporter, f.traceExporter)
	setIfChanged("otlp-endpoint", &cfg.Telemetry.OTLPEndpoint, f.otlpEndpoint)
	setIfChanged("metrics", &cfg.Telemetry.Metrics, f.metrics)
	setIfChanged("metrics-file", &cfg.Telemetry.MetricsFile, f.metricsFile)
	setIfChanged("influx-url", &cfg.Output.Influx.URL, f.influx.URL)
	setIfChanged("influx-token", &cfg.Output.Influx.Token, f.influx.Token)
	setIfChanged("influx-org", &cfg.Output.Influx.Org, f.influx.Org)
	setIfChanged("influx-bucket", &cfg.Output.Influx.Bucket, f.influx.Bucket)
	if cfg.Output.Influx.Token == "" {
		cfg.Output.Influx.Token = os.Getenv("INFLUX_TOKEN")
	}

	if err := config.Validate(cfg); err != nil {
		return runSettings{}, harness.NewErrInvalidConfig("command line", err)
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return runSettings{}, harness.NewErrInvalidOption("format", cfg.Output.Format, "json, influx, none")
	}

	include := args
	if len(include) == 0 {
		include = cfg.Include
	}
	return runSettings{cfg: cfg, include: include, format: format}, nil
}

// flagOverrides collects the explicitly set run flags.
func flagOverrides(cmd *cobra.Command, f *runFlags) (harness.Overrides, error) {
	var o harness.Overrides
	flags := cmd.Flags()
	if flags.Changed("warmup") {
		o.WarmupIterations = &f.warmup
	}
	if flags.Changed("warmup-time") {
		o.WarmupTime = &f.warmupTime
	}
	if flags.Changed("iterations") {
		o.MeasurementIterations = &f.iterations
	}
	if flags.Changed("time") {
		o.MeasurementTime = &f.measurementTime
	}
	if flags.Changed("batch-size") {
		o.BatchSize = &f.batchSize
	}
	if flags.Changed("threads") {
		o.Threads = &f.threads
	}
	if flags.Changed("forks") {
		o.Forks = &f.forks
	}
	if flags.Changed("mode") {
		mode, err := harness.ParseMode(f.mode)
		if err != nil {
			return harness.Overrides{}, err
		}
		o.Mode = &mode
	}
	if flags.Changed("unit") {
		unit, err := harness.ParseTimeUnit(f.unit)
		if err != nil {
			return harness.Overrides{}, err
		}
		o.TimeUnit = &unit
	}
	return o, nil
}

// parseParams turns repeated "name=v1,v2" flags into a restriction map.
// A later flag for the same name replaces the earlier one.
func parseParams(specs []string) (map[string][]string, error) {
	params := make(map[string][]string, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, harness.NewErrInvalidOption("param", spec, "name=value[,value...]")
		}
		var values []string
		for _, v := range strings.Split(list, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, harness.NewErrInvalidOption("param", spec, "name=value[,value...]")
		}
		params[name] = values
	}
	return params, nil
}

func runBenchmarks(cmd *cobra.Command, global *globalOptions, f *runFlags, args []string) error {
	settings, err := resolveRunSettings(cmd, global, f, args)
	if err != nil {
		return err
	}
	cfg := settings.cfg

	logger, err := newLogger(cfg.Logging, "microbench", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx := cmd.Context()
	tel, err := setupTelemetry(ctx, cfg.Telemetry, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	runner := harness.NewRunner(suites.NewRegistry())
	runner.SetLogger(logger.Slog())
	runner.SetForker(&harness.ProcessForker{
		Args:   workerArgs(cfg.Logging),
		Stderr: cmd.ErrOrStderr(),
	})

	opts := []harness.RunOption{
		harness.WithInclude(settings.include...),
		harness.WithOverrides(cfg.Run),
		harness.WithEntryCallback(func(e *harness.Entry) {
			if err := tel.sink.RecordEntry(ctx, e); err != nil {
				logger.Warn("recording entry metrics failed",
					slog.String("entry", e.Key()),
					slog.String("error", err.Error()))
			}
		}),
	}
	if len(cfg.Params) > 0 {
		opts = append(opts, harness.WithParams(cfg.Params))
	}

	rep, err := runner.Run(ctx, opts...)
	if err != nil {
		return err
	}

	if err := report.NewConsole(cmd.OutOrStdout()).Render(rep); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if err := tel.finish(ctx); err != nil {
		logger.Warn("writing metrics failed", slog.String("error", err.Error()))
	} else if tel.metricsFile != "" {
		logger.Info("metrics written", slog.String("path", tel.metricsFile))
	}

	if settings.format != report.FormatNone {
		path := cfg.Output.Result
		if path == "" {
			path = report.DefaultResultPath(rep, settings.format)
		}
		if err := report.WriteFile(path, rep, settings.format); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		logger.Info("results written",
			slog.String("path", path),
			slog.String("format", string(settings.format)))
	}

	if cfg.Output.Influx.Enabled() {
		if err := report.PublishInflux(ctx, cfg.Output.Influx, rep); err != nil {
			return fmt.Errorf("publishing results: %w", err)
		}
		logger.Info("results published",
			slog.String("url", cfg.Output.Influx.URL),
			slog.String("bucket", cfg.Output.Influx.Bucket))
	}

	if failed := len(rep.Failures()); failed > 0 {
		logger.Warn("some benchmarks failed",
			slog.Int("failed", failed),
			slog.Int("entries", len(rep.Entries)))
	}
	return nil
}

// workerArgs is the command line a forked worker is started with.
func workerArgs(cfg config.LoggingConfig) []string {
	args := []string{harness.WorkerCommand}
	if cfg.Level != "" {
		args = append(args, "--log-level", cfg.Level)
	}
	if cfg.JSON {
		args = append(args, "--log-json")
	}
	return args
}
