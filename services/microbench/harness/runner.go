// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "microbench.harness"

// -----------------------------------------------------------------------------
// Run Options
// -----------------------------------------------------------------------------

// runSettings collects the effect of RunOptions.
type runSettings struct {
	include   []string
	overrides Overrides
	params    map[string][]string
	onEntry   func(*Entry)
}

// RunOption configures one call to Runner.Run.
type RunOption func(*runSettings)

// WithInclude restricts the run to functions whose "<suite>.<function>"
// matches any of the regular expressions.
//
// Example:
//
//	runner.Run(ctx, harness.WithInclude("UuidRegex.*Pattern4"))
func WithInclude(patterns ...string) RunOption {
	return func(s *runSettings) {
		s.include = append(s.include, patterns...)
	}
}

// WithOverrides replaces suite-declared configuration values. Later options
// take precedence field by field.
func WithOverrides(o Overrides) RunOption {
	return func(s *runSettings) {
		s.overrides = s.overrides.Merge(o)
	}
}

// WithParams restricts parameter values. Every value must belong to the
// parameter's enumeration in each suite that declares it.
//
// Example:
//
//	runner.Run(ctx, harness.WithParams(map[string][]string{"testCase": {"NULL"}}))
func WithParams(params map[string][]string) RunOption {
	return func(s *runSettings) {
		if s.params == nil {
			s.params = make(map[string][]string)
		}
		for k, v := range params {
			s.params[k] = v
		}
	}
}

// WithEntryCallback registers fn to be called as each entry is completed,
// in report order, before Run returns.
func WithEntryCallback(fn func(*Entry)) RunOption {
	return func(s *runSettings) {
		s.onEntry = fn
	}
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Runner executes registered suites.
//
// Description:
//
//	Runner resolves the selection and every suite's configuration up front,
//	then runs each (suite, binding) through its Forker one fork at a time
//	and reduces the samples into report entries.
//
// Thread Safety: Safe for concurrent use. Concurrent runs will skew each
// other's timings.
type Runner struct {
	registry *Registry
	forker   Forker
	logger   *slog.Logger
}

// NewRunner creates a runner over registry.
//
// Description:
//
//	Forks execute in-process until SetForker installs a ProcessForker.
//	The runner uses slog.Default() for logging; use SetLogger to override.
//
// Inputs:
//   - registry: The suite registry. Must not be nil.
//
// Outputs:
//   - *Runner: The new runner. Never nil.
func NewRunner(registry *Registry) *Runner {
	return &Runner{
		registry: registry,
		forker:   &InProcessForker{Registry: registry},
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger for the runner. Nil values are ignored.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
		if ip, ok := r.forker.(*InProcessForker); ok {
			ip.Logger = logger
		}
	}
}

// SetForker replaces the forker used when Forks >= 1. Nil values are ignored.
func (r *Runner) SetForker(f Forker) {
	if f != nil {
		r.forker = f
	}
}

// plan is one fully resolved suite run.
type plan struct {
	suite     *Suite
	functions []string
	bindings  []Binding
	config    Config
}

// Run executes every selected benchmark.
//
// Description:
//
//	Resolves filters, overrides and parameter restrictions for every
//	selected suite before running anything, so configuration problems
//	abort the run without producing a partial report. Setup, benchmark and
//	fork failures are recorded as error entries and never abort the run.
//
// Inputs:
//   - ctx: Cancellation is observed between iterations.
//   - opts: Run options.
//
// Outputs:
//   - *Report: One entry per selected (function, binding). Nil on error.
//   - error: A configuration error, or ctx.Err() if the run was cancelled.
//
// Example:
//
//	report, err := runner.Run(ctx,
//	    harness.WithInclude("NullDefaults"),
//	    harness.WithOverrides(harness.Overrides{Forks: &zero}),
//	)
func (r *Runner) Run(ctx context.Context, opts ...RunOption) (*Report, error) {
	if ctx == nil {
		return nil, goerrors.New("context must not be nil")
	}

	var settings runSettings
	for _, opt := range opts {
		opt(&settings)
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "harness.Runner.Run")
	defer span.End()

	plans, err := r.resolve(settings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, err
	}

	report := &Report{StartedAt: time.Now()}
	for _, p := range plans {
		r.logger.Info("running suite",
			slog.String("suite", p.suite.name),
			slog.Int("functions", len(p.functions)),
			slog.Int("bindings", len(p.bindings)),
			slog.Int("forks", p.config.Forks),
			slog.Int("threads", p.config.Threads),
			slog.String("mode", string(p.config.Mode)))

		for _, binding := range p.bindings {
			entries, err := r.runBinding(ctx, tracer, p, binding)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "run cancelled")
				return nil, err
			}
			for _, e := range entries {
				report.Entries = append(report.Entries, e)
				if settings.onEntry != nil {
					settings.onEntry(e)
				}
			}
		}
	}
	report.FinishedAt = time.Now()

	failures := len(report.Failures())
	span.SetAttributes(
		attribute.Int("microbench.entries", len(report.Entries)),
		attribute.Int("microbench.failures", failures),
	)
	span.SetStatus(codes.Ok, "run completed")
	r.logger.Info("run completed",
		slog.Int("entries", len(report.Entries)),
		slog.Int("failures", failures),
		slog.Duration("duration", report.Duration()))
	return report, nil
}

// resolve turns settings into validated plans.
func (r *Runner) resolve(settings runSettings) ([]plan, error) {
	selections, err := r.registry.Select(settings.include)
	if err != nil {
		return nil, err
	}

	declared := make([][]Param, 0, len(selections))
	for _, sel := range selections {
		declared = append(declared, sel.Suite.params)
	}
	if err := checkParamNames(settings.params, declared...); err != nil {
		return nil, err
	}

	plans := make([]plan, 0, len(selections))
	for _, sel := range selections {
		cfg := settings.overrides.Apply(sel.Suite.config)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		params, err := restrictParams(sel.Suite.name, sel.Suite.params, settings.params)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan{
			suite:     sel.Suite,
			functions: sel.Functions,
			bindings:  crossProduct(params),
			config:    cfg,
		})
	}
	return plans, nil
}

// runBinding runs every fork of one binding and merges the results.
func (r *Runner) runBinding(ctx context.Context, tracer trace.Tracer, p plan, binding Binding) ([]*Entry, error) {
	ctx, span := tracer.Start(ctx, "harness.Runner.runBinding",
		trace.WithAttributes(
			attribute.String("microbench.suite", p.suite.name),
			attribute.String("microbench.binding", binding.String()),
			attribute.Int("microbench.forks", p.config.Forks),
		),
	)
	defer span.End()

	req := ForkRequest{
		Suite:     p.suite.name,
		Binding:   binding,
		Functions: p.functions,
		Config:    p.config,
	}

	var results []*ForkResult
	var forkErr *EntryError
	if p.config.Forks == 0 {
		results = append(results, ExecuteFork(ctx, p.suite, req, r.logger))
	} else {
		for fork := 1; fork <= p.config.Forks; fork++ {
			req.Fork = fork
			res, err := r.forker.Fork(ctx, req)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if err != nil {
				ferr := NewErrFork(p.suite.name, binding, fork, err)
				r.logger.Error("fork failed",
					slog.String("suite", p.suite.name),
					slog.String("binding", binding.String()),
					slog.Int("fork", fork),
					slog.String("error", err.Error()))
				span.RecordError(ferr)
				forkErr = entryError(ferr, fork)
				break
			}
			results = append(results, res)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(p.functions))
	for _, fn := range p.functions {
		e := mergeEntry(p, binding, fn, results, forkErr)
		if e.Failed() {
			r.logger.Warn("benchmark failed",
				slog.String("benchmark", e.Key()),
				slog.String("kind", string(e.Error.Kind)),
				slog.String("error", e.Error.Message))
		} else {
			r.logger.Debug("benchmark completed",
				slog.String("benchmark", e.Key()),
				slog.Float64("score", e.Score),
				slog.String("unit", e.Unit))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// mergeEntry reduces one function's results across forks into an entry.
//
// The first failure in fork order wins: a fork that produced no result,
// then a setup failure, then a failure of the function itself.
func mergeEntry(p plan, binding Binding, fn string, results []*ForkResult, forkErr *EntryError) *Entry {
	e := &Entry{
		Suite:    p.suite.name,
		Function: fn,
		Params:   binding.Map(),
		Binding:  binding,
		Mode:     p.config.Mode,
		Unit:     p.config.ScoreUnit(),
		Threads:  p.config.Threads,
		Forks:    p.config.Forks,
		Config:   p.config,
	}

	if forkErr != nil {
		e.Error = forkErr
		return e
	}

	var all []float64
	for _, res := range results {
		if res.SetupError != nil {
			e.Error = res.SetupError
			return e
		}
		fr, ok := res.function(fn)
		if !ok {
			e.Error = entryError(NewErrFork(p.suite.name, binding, res.Fork,
				goerrors.New("fork returned no result for "+fn)), res.Fork)
			return e
		}
		if fr.Error != nil {
			e.Error = fr.Error
			return e
		}

		scores := iterationScores(p.config.Mode, p.config.TimeUnit, fr.Samples)
		e.RawData = append(e.RawData, scores)
		all = append(all, scores...)
		e.Samples += len(fr.Samples)
		for _, s := range fr.Samples {
			e.Operations += s.Ops
		}
	}

	st, err := ComputeScoreStats(all)
	if err != nil {
		e.Error = entryError(NewErrBenchmark(p.suite.name, fn, binding, PhaseMeasurement, err), 0)
		return e
	}
	e.Iterations = st.N
	e.Score = st.Mean
	e.ScoreError = st.Error
	e.ScoreConfidence = [2]float64{st.Lower, st.Upper}
	e.Percentiles = st.Percentiles
	e.Min = st.Min
	e.Max = st.Max
	e.StdDev = st.StdDev
	return e
}
