// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harness runs micro-benchmark suites under controlled warmup,
// measurement, thread and fork settings and reduces the timings to a Report.
//
// # Overview
//
// A Suite groups benchmark functions that share one setup routine and one set
// of enumerated parameters. The Runner executes every selected function once
// per parameter binding and fork:
//
//	┌──────────────┐     ┌──────────────┐     ┌──────────────┐
//	│   Registry   │────▶│    Runner    │────▶│    Report    │
//	│              │     │              │     │              │
//	│ • Suites     │     │ • Bindings   │     │ • Entries    │
//	│ • Select()   │     │ • Forks      │     │ • Failures   │
//	└──────────────┘     │ • Threads    │     └──────────────┘
//	                     └──────┬───────┘
//	                            │ per fork
//	                            ▼
//	              setup → warmup → measurement → teardown
//
// # Declaring a suite
//
//	type testCase string
//
//	const (
//	    caseString testCase = "STRING"
//	    caseNull   testCase = "NULL"
//	)
//
//	suite := harness.NewSuite[*fixture]("NullDefaults").
//	    Param(harness.EnumParam("testCase", caseString, caseNull)).
//	    Setup(func(b harness.Binding) (*fixture, error) {
//	        tc, err := harness.Enum[testCase](b, "testCase")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return newFixture(tc), nil
//	    }).
//	    Benchmark("ternary", func(f *fixture) any { return f.orDefault() }).
//	    MustBuild()
//
// # Forks
//
// With Forks == 0 everything runs in the calling process. With Forks >= 1 each
// fork is handed to a Forker; ProcessForker re-executes the current binary and
// exchanges a JSON ForkRequest/ForkResult over stdin/stdout so that every fork
// starts from a fresh runtime.
//
// # Thread Safety
//
// Registry and Runner are safe for concurrent use. Fixtures are shared across
// benchmark threads without locking; suites that mutate their fixture must use
// ScopeThread.
package harness
