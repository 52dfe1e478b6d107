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
	goerrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agilira/go-errors"
)

// Error codes for harness failures.
const (
	// ErrCodeConfiguration aborts the whole run.
	ErrCodeConfiguration errors.ErrorCode = "MICROBENCH_CONFIGURATION"

	// ErrCodeSetup aborts one parameter binding.
	ErrCodeSetup errors.ErrorCode = "MICROBENCH_SETUP"

	// ErrCodeBenchmark aborts one function under one binding.
	ErrCodeBenchmark errors.ErrorCode = "MICROBENCH_BENCHMARK"

	// ErrCodeFork aborts one binding when a worker process fails.
	ErrCodeFork errors.ErrorCode = "MICROBENCH_FORK"
)

const (
	msgInvalidConfig   = "invalid run configuration"
	msgInvalidOption   = "invalid option value"
	msgInvalidSuite    = "invalid suite declaration"
	msgDuplicateSuite  = "suite already registered"
	msgUnknownSuite    = "suite not registered"
	msgInvalidParam    = "invalid parameter value"
	msgMissingParam    = "parameter not bound"
	msgUnknownParam    = "no selected suite declares the parameter"
	msgInvalidFilter   = "invalid benchmark filter"
	msgNoMatch         = "no benchmarks matched the filter"
	msgSetupFailed     = "fixture setup failed"
	msgBenchmarkFailed = "benchmark function failed"
	msgForkFailed      = "fork worker failed"
)

// ErrorKind classifies failed report entries.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindSetup         ErrorKind = "setup"
	KindBenchmark     ErrorKind = "benchmark"
	KindFork          ErrorKind = "fork"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// NewErrInvalidConfig creates an error for a Config that failed validation.
func NewErrInvalidConfig(fields string, cause error) error {
	if cause == nil {
		return errors.NewWithField(ErrCodeConfiguration, msgInvalidConfig, "fields", fields)
	}
	return errors.Wrap(cause, ErrCodeConfiguration, msgInvalidConfig).
		WithContext("fields", fields)
}

// NewErrInvalidOption creates an error for an unparseable option value.
func NewErrInvalidOption(option, value, allowed string) error {
	return errors.NewWithContext(ErrCodeConfiguration, msgInvalidOption, map[string]interface{}{
		"option":  option,
		"value":   value,
		"allowed": allowed,
	})
}

// NewErrInvalidSuite creates an error for a malformed suite declaration.
func NewErrInvalidSuite(suite, reason string) error {
	return errors.NewWithContext(ErrCodeConfiguration, msgInvalidSuite, map[string]interface{}{
		"suite":  suite,
		"reason": reason,
	})
}

// NewErrDuplicateSuite creates an error for a second registration under one name.
func NewErrDuplicateSuite(suite string) error {
	return errors.NewWithField(ErrCodeConfiguration, msgDuplicateSuite, "suite", suite)
}

// NewErrUnknownSuite creates an error for a lookup of an unregistered suite.
func NewErrUnknownSuite(suite string) error {
	return errors.NewWithField(ErrCodeConfiguration, msgUnknownSuite, "suite", suite)
}

// NewErrInvalidParam creates an error for a parameter value outside its enumeration.
func NewErrInvalidParam(suite, param, value string, allowed []string) error {
	return errors.NewWithContext(ErrCodeConfiguration, msgInvalidParam, map[string]interface{}{
		"suite":   suite,
		"param":   param,
		"value":   value,
		"allowed": strings.Join(allowed, ","),
	})
}

// NewErrMissingParam creates an error for a lookup of a parameter the
// binding does not carry.
func NewErrMissingParam(param string, binding Binding) error {
	return errors.NewWithContext(ErrCodeConfiguration, msgMissingParam, map[string]interface{}{
		"param":   param,
		"binding": binding.String(),
	})
}

// NewErrUnknownParam creates an error for a requested parameter that no
// selected suite declares.
func NewErrUnknownParam(param string) error {
	return errors.NewWithField(ErrCodeConfiguration, msgUnknownParam, "param", param)
}

// NewErrInvalidFilter creates an error for a filter pattern that does not compile.
func NewErrInvalidFilter(pattern string, cause error) error {
	return errors.Wrap(cause, ErrCodeConfiguration, msgInvalidFilter).
		WithContext("pattern", pattern)
}

// NewErrNoMatch creates an error for a filter that selected nothing.
func NewErrNoMatch(patterns []string) error {
	return errors.NewWithField(ErrCodeConfiguration, msgNoMatch, "patterns", strings.Join(patterns, " "))
}

// =============================================================================
// RUN ERRORS
// =============================================================================

// NewErrSetup creates an error for a setup callback that failed or panicked.
func NewErrSetup(suite string, binding Binding, cause error) error {
	return errors.Wrap(cause, ErrCodeSetup, msgSetupFailed).
		WithContext("suite", suite).
		WithContext("binding", binding.String())
}

// NewErrBenchmark creates an error for a benchmark function that failed or
// panicked during the named phase.
func NewErrBenchmark(suite, function string, binding Binding, phase string, cause error) error {
	return errors.Wrap(cause, ErrCodeBenchmark, msgBenchmarkFailed).
		WithContext("suite", suite).
		WithContext("function", function).
		WithContext("binding", binding.String()).
		WithContext("phase", phase)
}

// NewErrFork creates an error for a worker process that did not return a result.
func NewErrFork(suite string, binding Binding, fork int, cause error) error {
	return errors.Wrap(cause, ErrCodeFork, msgForkFailed).
		WithContext("suite", suite).
		WithContext("binding", binding.String()).
		WithContext("fork", fork).
		WithSeverity("critical")
}

// errPanic converts a recovered panic value into an error.
func errPanic(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// The Is helpers classify by the outermost harness code in the chain, so a
// setup error caused by a configuration error is a setup error.

// IsConfigurationError reports whether err aborts a whole run.
func IsConfigurationError(err error) bool {
	return GetErrorCode(err) == ErrCodeConfiguration
}

// IsSetupError reports whether err came from a setup callback.
func IsSetupError(err error) bool {
	return GetErrorCode(err) == ErrCodeSetup
}

// IsBenchmarkError reports whether err came from a benchmark function.
func IsBenchmarkError(err error) bool {
	return GetErrorCode(err) == ErrCodeBenchmark
}

// IsForkError reports whether err came from a failed worker process.
func IsForkError(err error) bool {
	return GetErrorCode(err) == ErrCodeFork
}

// KindOf maps an error to the ErrorKind recorded in report entries.
// Errors without a harness code are treated as benchmark failures.
func KindOf(err error) ErrorKind {
	switch GetErrorCode(err) {
	case ErrCodeConfiguration:
		return KindConfiguration
	case ErrCodeSetup:
		return KindSetup
	case ErrCodeFork:
		return KindFork
	default:
		return KindBenchmark
	}
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts the context map from a harness error.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var herr *errors.Error
	if goerrors.As(err, &herr) {
		return herr.Context
	}
	return nil
}

// Describe renders err with every cause in its chain.
//
// Description:
//
//	(*errors.Error).Error only prints the code and message, so the cause
//	and the context would be lost in reports and on the command line.
//	Describe prints each coded link as "[CODE]: message (key=value, ...)"
//	and joins the links with ": ". The first uncoded link ends the chain,
//	since its own Error text already includes whatever it wraps; a coded
//	error at the end of that text is expanded in place.
//
// Example:
//
//	[MICROBENCH_SETUP]: fixture setup failed (binding=testCase=NULL, suite=NullDefaults): connection refused
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var parts []string
	for err != nil {
		herr, ok := err.(*errors.Error)
		if !ok {
			parts = append(parts, describeWrapped(err))
			break
		}
		parts = append(parts, describeLink(herr))
		err = herr.Cause
	}
	return strings.Join(parts, ": ")
}

func describeLink(e *errors.Error) string {
	fields := make([]string, 0, len(e.Context)+1)
	if e.Field != "" {
		fields = append(fields, e.Field+"="+e.Value)
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	if len(fields) == 0 {
		return e.Error()
	}
	return e.Error() + " (" + strings.Join(fields, ", ") + ")"
}

// describeWrapped expands a coded error that an uncoded wrapper such as
// fmt.Errorf("...: %w") printed as the tail of its message.
func describeWrapped(err error) string {
	text := err.Error()
	var inner *errors.Error
	if goerrors.As(err, &inner) && strings.HasSuffix(text, inner.Error()) {
		return strings.TrimSuffix(text, inner.Error()) + Describe(inner)
	}
	return text
}
