// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package suites holds the benchmark suites shipped with the microbench
// binary.
//
// Each suite compares a handful of ways to do the same small thing: picking
// a default for a nil value, testing a string for blankness, formatting an
// identifier, validating a UUID, or checking that exactly one of several
// optional fields is set. Suites are plain harness declarations; Register
// adds all of them to a registry.
package suites

import (
	"fmt"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// All returns a fresh copy of every built-in suite in registration order.
func All() []*harness.Suite {
	return []*harness.Suite{
		NullDefaults(),
		NullDefaultsAllocation(),
		StringUtils(),
		StringFormatVsJoin(),
		UuidRegexValidation(),
		RegexValidationPregenerate(),
		OnlyOneNotNull(),
	}
}

// Register adds every built-in suite to registry. It stops at the first
// suite the registry rejects and returns the registry's error unchanged.
func Register(registry *harness.Registry) error {
	for _, s := range All() {
		if err := registry.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding every built-in suite.
func NewRegistry() *harness.Registry {
	registry := harness.NewRegistry()
	for _, s := range All() {
		registry.MustRegister(s)
	}
	return registry
}

// unknownCase is returned by setup routines for a value outside the
// declared enumeration.
func unknownCase(param, value string) error {
	return fmt.Errorf("invalid %s %q", param, value)
}
