// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suites

import (
	"cmp"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// nullCase selects the value a null-default fixture starts from.
type nullCase string

const (
	nullCaseString nullCase = "STRING"
	nullCaseRecord nullCase = "RECORD"
	nullCaseObject nullCase = "OBJECT"
	nullCaseNull   nullCase = "NULL"
)

// car is the record-like value the null-default suites hand around.
type car struct {
	Make       string
	Model      string
	HorsePower int
}

// bestCar allocates the default car on every call.
//
//go:noinline
func bestCar() *car {
	return &car{Make: "Volvo", Model: "XC70", HorsePower: 308}
}

// fallback is the pre-built default returned for a nil input.
type fallback struct{}

func (fallback) String() string { return "fallback{}" }

// -----------------------------------------------------------------------------
// Optional
// -----------------------------------------------------------------------------

// optional is a minimal maybe-value wrapper.
type optional[T any] struct {
	value T
	ok    bool
}

func optionalOf(v any) optional[any] {
	return optional[any]{value: v, ok: v != nil}
}

func (o optional[T]) orElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// =============================================================================
// NullDefaults
// =============================================================================

type nullDefaultsFixture struct {
	value any
	def   any
}

func newNullDefaultsFixture(b harness.Binding) (*nullDefaultsFixture, error) {
	tc, err := harness.Enum[nullCase](b, "testCase")
	if err != nil {
		return nil, err
	}
	f := &nullDefaultsFixture{def: fallback{}}
	switch tc {
	case nullCaseString:
		f.value = "some string"
	case nullCaseRecord:
		f.value = car{Make: "Volvo", Model: "XC70", HorsePower: 308}
	case nullCaseNull:
		f.value = nil
	default:
		return nil, unknownCase("testCase", string(tc))
	}
	return f, nil
}

func (f *nullDefaultsFixture) ternaryNullCheck() any {
	if f.value == nil {
		return f.def
	}
	return f.value
}

func (f *nullDefaultsFixture) cmpOr() any {
	return cmp.Or(f.value, f.def)
}

func (f *nullDefaultsFixture) optionalOrElse() any {
	return optionalOf(f.value).orElse(f.def)
}

// NullDefaults compares ways to substitute a default for a nil value.
func NullDefaults() *harness.Suite {
	return harness.NewSuite[*nullDefaultsFixture]("NullDefaults").
		Param(harness.EnumParam("testCase", nullCaseString, nullCaseRecord, nullCaseNull)).
		Setup(newNullDefaultsFixture).
		Benchmark("ternaryNullCheck", (*nullDefaultsFixture).ternaryNullCheck).
		Benchmark("cmpOr", (*nullDefaultsFixture).cmpOr).
		Benchmark("optionalOrElse", (*nullDefaultsFixture).optionalOrElse).
		MustBuild()
}

// =============================================================================
// NullDefaultsAllocation
// =============================================================================

type nullAllocFixture struct {
	value        *car
	preAllocated *car
}

func newNullAllocFixture(b harness.Binding) (*nullAllocFixture, error) {
	tc, err := harness.Enum[nullCase](b, "testCase")
	if err != nil {
		return nil, err
	}
	f := &nullAllocFixture{preAllocated: bestCar()}
	switch tc {
	case nullCaseObject:
		f.value = &car{Make: "Polestar", Model: "2", HorsePower: 400}
	case nullCaseNull:
		f.value = nil
	default:
		return nil, unknownCase("testCase", string(tc))
	}
	return f, nil
}

func (f *nullAllocFixture) baselineAllocation() any {
	return bestCar()
}

func (f *nullAllocFixture) ternaryNullCheck() any {
	if f.value == nil {
		return f.preAllocated
	}
	return f.value
}

func (f *nullAllocFixture) ternaryNullCheckWithAllocation() any {
	if f.value == nil {
		return bestCar()
	}
	return f.value
}

func (f *nullAllocFixture) cmpOr() any {
	return cmp.Or(f.value, f.preAllocated)
}

// cmpOrWithAllocation builds the default eagerly, like any argument.
func (f *nullAllocFixture) cmpOrWithAllocation() any {
	return cmp.Or(f.value, bestCar())
}

func (f *nullAllocFixture) optionalOrElse() any {
	return optional[*car]{value: f.value, ok: f.value != nil}.orElse(f.preAllocated)
}

func (f *nullAllocFixture) optionalOrElseWithAllocation() any {
	return optional[*car]{value: f.value, ok: f.value != nil}.orElse(bestCar())
}

// NullDefaultsAllocation measures what allocating the default costs each
// nil-default idiom.
func NullDefaultsAllocation() *harness.Suite {
	return harness.NewSuite[*nullAllocFixture]("NullDefaultsAllocation").
		Param(harness.EnumParam("testCase", nullCaseObject, nullCaseNull)).
		Setup(newNullAllocFixture).
		Benchmark("baselineAllocation", (*nullAllocFixture).baselineAllocation).
		Benchmark("ternaryNullCheck", (*nullAllocFixture).ternaryNullCheck).
		Benchmark("ternaryNullCheckWithAllocation", (*nullAllocFixture).ternaryNullCheckWithAllocation).
		Benchmark("cmpOr", (*nullAllocFixture).cmpOr).
		Benchmark("cmpOrWithAllocation", (*nullAllocFixture).cmpOrWithAllocation).
		Benchmark("optionalOrElse", (*nullAllocFixture).optionalOrElse).
		Benchmark("optionalOrElseWithAllocation", (*nullAllocFixture).optionalOrElseWithAllocation).
		MustBuild()
}
