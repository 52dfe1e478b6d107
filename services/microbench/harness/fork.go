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
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ErrUnknownFunction indicates a fork request named a function the suite
// does not declare.
var ErrUnknownFunction = goerrors.New("unknown benchmark function")

// WorkerCommand is the hidden CLI subcommand that serves one fork.
const WorkerCommand = "fork-worker"

// ForkRequest is the work order for one fork of one binding.
type ForkRequest struct {
	Suite     string   `json:"suite"`
	Binding   Binding  `json:"binding"`
	Functions []string `json:"functions"`
	Config    Config   `json:"config"`

	// Fork is one-based. Zero marks an in-process run.
	Fork int `json:"fork"`
}

// FunctionResult holds the measurement samples of one function in one fork.
type FunctionResult struct {
	Function string      `json:"function"`
	Samples  []Sample    `json:"samples,omitempty"`
	Error    *EntryError `json:"error,omitempty"`
}

// ForkResult is what a fork sends back.
type ForkResult struct {
	Fork int `json:"fork"`

	// SetupError is set when no function ran because setup failed.
	SetupError *EntryError `json:"setup_error,omitempty"`

	Functions []FunctionResult `json:"functions,omitempty"`
}

// function returns the result for name, if present.
func (r *ForkResult) function(name string) (FunctionResult, bool) {
	for _, fr := range r.Functions {
		if fr.Function == name {
			return fr, true
		}
	}
	return FunctionResult{}, false
}

func entryError(err error, fork int) *EntryError {
	return &EntryError{
		Kind:    KindOf(err),
		Code:    string(GetErrorCode(err)),
		Message: Describe(err),
		Fork:    fork,
	}
}

// -----------------------------------------------------------------------------
// Fork execution
// -----------------------------------------------------------------------------

// ExecuteFork runs one fork of one binding in the calling process.
//
// Description:
//
//	Builds the fixtures, then for every requested function runs the warmup
//	phase followed by the measurement phase on cfg.Threads threads. Setup
//	failure aborts the whole binding; a function failure aborts only that
//	function. Teardown runs once per fixture after every function ran.
//
// Inputs:
//   - ctx: Checked between iterations only.
//   - suite: The suite to run. Must not be nil.
//   - req: The binding, functions, config and fork number.
//   - logger: Destination for teardown failures. Nil uses slog.Default().
//
// Outputs:
//   - *ForkResult: Never nil.
func ExecuteFork(ctx context.Context, suite *Suite, req ForkRequest, logger *slog.Logger) *ForkResult {
	if logger == nil {
		logger = slog.Default()
	}
	result := &ForkResult{Fork: req.Fork}
	threads := req.Config.Threads
	if threads < 1 {
		threads = 1
	}

	fixtures, err := buildFixtures(suite, req.Binding, threads)
	if err != nil {
		result.SetupError = entryError(NewErrSetup(suite.name, req.Binding, err), req.Fork)
		return result
	}
	defer teardownFixtures(suite, req.Binding, fixtures, logger)

	for _, name := range req.Functions {
		fr := FunctionResult{Function: name}
		bm, ok := suite.benchmark(name)
		if !ok {
			fr.Error = entryError(NewErrBenchmark(suite.name, name, req.Binding, "", ErrUnknownFunction), req.Fork)
			result.Functions = append(result.Functions, fr)
			continue
		}

		if _, err := runPhase(ctx, bm.fn, fixtures, warmupPhase(req.Config)); err != nil {
			fr.Error = entryError(NewErrBenchmark(suite.name, name, req.Binding, PhaseWarmup, err), req.Fork)
			result.Functions = append(result.Functions, fr)
			continue
		}

		samples, err := runPhase(ctx, bm.fn, fixtures, measurementPhase(req.Config))
		if err != nil {
			fr.Error = entryError(NewErrBenchmark(suite.name, name, req.Binding, PhaseMeasurement, err), req.Fork)
		} else {
			fr.Samples = samples
		}
		result.Functions = append(result.Functions, fr)
	}
	return result
}

// buildFixtures returns one fixture per thread. Under ScopeBinding every
// element is the same value and setup runs once.
func buildFixtures(suite *Suite, binding Binding, threads int) (fixtures []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic(r)
		}
	}()

	fixtures = make([]any, threads)
	if suite.scope == ScopeThread {
		for t := range fixtures {
			if fixtures[t], err = suite.setup(binding); err != nil {
				return nil, err
			}
		}
		return fixtures, nil
	}

	shared, err := suite.setup(binding)
	if err != nil {
		return nil, err
	}
	for t := range fixtures {
		fixtures[t] = shared
	}
	return fixtures, nil
}

func teardownFixtures(suite *Suite, binding Binding, fixtures []any, logger *slog.Logger) {
	if suite.teardown == nil {
		return
	}
	n := len(fixtures)
	if suite.scope != ScopeThread && n > 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn("teardown panicked",
						slog.String("suite", suite.name),
						slog.String("binding", binding.String()),
						slog.Any("panic", r))
				}
			}()
			if err := suite.teardown(fixtures[i]); err != nil {
				logger.Warn("teardown failed",
					slog.String("suite", suite.name),
					slog.String("binding", binding.String()),
					slog.String("error", Describe(err)))
			}
		}()
	}
}

// -----------------------------------------------------------------------------
// Forkers
// -----------------------------------------------------------------------------

// Forker runs one fork of one binding and returns its result.
//
// An error means the fork produced no result at all; the runner records a
// fork error for every function of the binding.
type Forker interface {
	Fork(ctx context.Context, req ForkRequest) (*ForkResult, error)
}

// InProcessForker executes forks in the calling process.
//
// It gives no runtime isolation and exists for tests and for environments
// where re-executing the binary is not possible.
type InProcessForker struct {
	Registry *Registry
	Logger   *slog.Logger
}

// Fork implements Forker.
func (f *InProcessForker) Fork(ctx context.Context, req ForkRequest) (*ForkResult, error) {
	suite, ok := f.Registry.Get(req.Suite)
	if !ok {
		return nil, NewErrUnknownSuite(req.Suite)
	}
	return ExecuteFork(ctx, suite, req, f.Logger), nil
}

// ProcessForker executes each fork in a fresh child process.
//
// Description:
//
//	The child is the current executable (or Executable) started with Args,
//	which must route to ServeFork. The request is written to the child's
//	stdin as JSON and the result is read from its stdout. The child's
//	stderr is forwarded to Stderr so its logs stay visible.
//
// Thread Safety: Safe for concurrent use; the runner calls it sequentially.
type ProcessForker struct {
	// Executable defaults to os.Executable().
	Executable string

	// Args defaults to []string{WorkerCommand}.
	Args []string

	// Env is appended to the parent's environment.
	Env []string

	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Fork implements Forker.
func (f *ProcessForker) Fork(ctx context.Context, req ForkRequest) (*ForkResult, error) {
	exe := f.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return nil, fmt.Errorf("resolving executable: %w", err)
		}
	}
	args := f.Args
	if len(args) == 0 {
		args = []string{WorkerCommand}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding fork request: %w", err)
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = f.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = append(os.Environ(), f.Env...)

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running fork %d of %s: %w", req.Fork, req.Suite, err)
	}

	var result ForkResult
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &result); err != nil {
		return nil, fmt.Errorf("decoding fork %d result: %w (output: %q)", req.Fork, err, truncate(stdout.String(), 200))
	}
	return &result, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ServeFork is the worker side of ProcessForker.
//
// Description:
//
//	Reads one ForkRequest from r, runs it against the suite registered in
//	registry and writes the ForkResult to w. Nothing else may be written to
//	w; logs must go to stderr.
//
// Outputs:
//   - error: Non-nil if the request could not be decoded or the suite is
//     unknown. Benchmark and setup failures are reported inside the result.
func ServeFork(ctx context.Context, registry *Registry, r io.Reader, w io.Writer, logger *slog.Logger) error {
	var req ForkRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decoding fork request: %w", err)
	}

	suite, ok := registry.Get(req.Suite)
	if !ok {
		return NewErrUnknownSuite(req.Suite)
	}

	result := ExecuteFork(ctx, suite, req, logger)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		return fmt.Errorf("encoding fork result: %w", err)
	}
	return nil
}
