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
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

func binding(name, value string) harness.Binding {
	return harness.Binding{{Name: name, Value: value}}
}

func intPtr(v int) *int { return &v }

func durPtr(v time.Duration) *time.Duration { return &v }

func TestRegister(t *testing.T) {
	registry := harness.NewRegistry()
	require.NoError(t, Register(registry))
	assert.Equal(t, []string{
		"NullDefaults",
		"NullDefaultsAllocation",
		"OnlyOneNotNull",
		"RegexValidationPregenerate",
		"StringFormatVsJoin",
		"StringUtils",
		"UuidRegexValidation",
	}, registry.List())

	err := Register(registry)
	require.Error(t, err, "registering twice collides")
	assert.True(t, harness.IsConfigurationError(err))
}

func TestSuiteDeclarations(t *testing.T) {
	registry := NewRegistry()

	pregen, ok := registry.Get("RegexValidationPregenerate")
	require.True(t, ok)
	assert.Equal(t, 4, pregen.Config().Threads)
	assert.Equal(t, 2, pregen.Config().Forks)
	assert.Equal(t, harness.ScopeThread, pregen.Scope())
	assert.Len(t, pregen.Benchmarks(), 9)

	uuidSuite, ok := registry.Get("UuidRegexValidation")
	require.True(t, ok)
	assert.Len(t, uuidSuite.Bindings(), 3)
	assert.Equal(t, harness.DefaultConfig(), uuidSuite.Config())

	stringUtils, ok := registry.Get("StringUtils")
	require.True(t, ok)
	assert.Len(t, stringUtils.Bindings(), 4)
}

func TestNullDefaults(t *testing.T) {
	for _, tc := range []string{"STRING", "RECORD"} {
		f, err := newNullDefaultsFixture(binding("testCase", tc))
		require.NoError(t, err)
		assert.Equal(t, f.value, f.ternaryNullCheck(), tc)
		assert.Equal(t, f.value, f.cmpOr(), tc)
		assert.Equal(t, f.value, f.optionalOrElse(), tc)
	}

	f, err := newNullDefaultsFixture(binding("testCase", "NULL"))
	require.NoError(t, err)
	assert.Equal(t, fallback{}, f.ternaryNullCheck())
	assert.Equal(t, fallback{}, f.cmpOr())
	assert.Equal(t, fallback{}, f.optionalOrElse())

	_, err = newNullDefaultsFixture(binding("testCase", "OBJECT"))
	assert.Error(t, err)
	_, err = newNullDefaultsFixture(nil)
	assert.Error(t, err)
}

func TestNullDefaultsAllocation(t *testing.T) {
	obj, err := newNullAllocFixture(binding("testCase", "OBJECT"))
	require.NoError(t, err)
	for _, got := range []any{
		obj.ternaryNullCheck(), obj.ternaryNullCheckWithAllocation(),
		obj.cmpOr(), obj.cmpOrWithAllocation(),
		obj.optionalOrElse(), obj.optionalOrElseWithAllocation(),
	} {
		assert.Same(t, obj.value, got)
	}

	null, err := newNullAllocFixture(binding("testCase", "NULL"))
	require.NoError(t, err)
	assert.Same(t, null.preAllocated, null.ternaryNullCheck())
	assert.Same(t, null.preAllocated, null.cmpOr())
	assert.Same(t, null.preAllocated, null.optionalOrElse())

	fresh := null.ternaryNullCheckWithAllocation().(*car)
	assert.NotSame(t, null.preAllocated, fresh)
	assert.Equal(t, *null.preAllocated, *fresh)
	assert.Equal(t, "Volvo", null.baselineAllocation().(*car).Make)
}

func TestStringUtils(t *testing.T) {
	tests := []struct {
		testCase string
		isEmpty  bool // present and empty
		emptyLen bool // nil counts as empty
		blankTS  bool // present and blank
		blank    bool // nil counts as blank
	}{
		{"STRING", false, false, false, false},
		{"BLANK", false, false, true, true},
		{"EMPTY", true, true, true, true},
		{"NULL", false, true, false, true},
	}
	for _, tt := range tests {
		f, err := newStringFixture(binding("testCase", tt.testCase))
		require.NoError(t, err)
		assert.Equal(t, tt.isEmpty, f.isEmptyString(), tt.testCase)
		assert.Equal(t, tt.emptyLen, f.isEmptyLen(), tt.testCase)
		assert.Equal(t, tt.blankTS, f.isBlankTrimSpace(), tt.testCase)
		assert.Equal(t, tt.blank, f.isBlankFieldsFunc(), tt.testCase)
		assert.Equal(t, tt.blank, f.isBlankLoop(), tt.testCase)
	}

	f, err := newStringFixture(binding("testCase", "BLANK"))
	require.NoError(t, err)
	assert.Len(t, *f.s, blankWidth)

	s := "\t  \n"
	assert.Equal(t, true, (&stringFixture{s: &s}).isBlankLoop())
	s = "  x"
	assert.Equal(t, false, (&stringFixture{s: &s}).isBlankLoop())
}

func TestStringFormatVsJoin(t *testing.T) {
	f, err := newEmployeeFixture(nil)
	require.NoError(t, err)

	const want = "Corp-Dept-12345"
	assert.Equal(t, want, f.sprintf())
	assert.Equal(t, want, f.stringsJoin())
	assert.Equal(t, want, f.stringsBuilder())
	assert.Equal(t, want, f.plus())
	assert.Equal(t, want, f.bytesBuffer())
	assert.Equal(t, want, f.appendBytes())
	assert.True(t, strings.HasPrefix(f.plusDynamic().(string), "Corp-Dept-"))
}

func TestUuidRegexValidation(t *testing.T) {
	valid, err := newUUIDFixture(binding("testCase", "VALID"))
	require.NoError(t, err)
	invalid, err := newUUIDFixture(binding("testCase", "INVALID"))
	require.NoError(t, err)
	large, err := newUUIDFixture(binding("testCase", "INVALID_LARGE"))
	require.NoError(t, err)

	assert.Len(t, large.input, largeInputUUIDs*uuidLength)
	assert.Contains(t, invalid.input, "::")

	type check struct {
		name string
		fn   func(*uuidFixture) any
	}
	checks := []check{
		{"strfmt", (*uuidFixture).measureStrfmtIsUUID},
		{"pattern1", (*uuidFixture).measurePattern1},
		{"pattern2", (*uuidFixture).measurePattern2},
		{"pattern3", (*uuidFixture).measurePattern3},
		{"pattern4", (*uuidFixture).measurePattern4},
		{"pattern5", (*uuidFixture).measurePattern5},
		{"pattern6", (*uuidFixture).measurePattern6},
		{"pattern4Length", (*uuidFixture).measurePattern4WithLengthCheck},
		{"pattern4Empty", (*uuidFixture).measurePattern4WithEmptyCheck},
		{"regexp2Pattern1", (*uuidFixture).measureRegexp2Pattern1},
		{"regexp2Pattern4", (*uuidFixture).measureRegexp2Pattern4},
	}
	for _, c := range checks {
		assert.Equal(t, true, c.fn(valid), "%s on VALID", c.name)
		assert.Equal(t, false, c.fn(invalid), "%s on INVALID", c.name)
		assert.Equal(t, false, c.fn(large), "%s on INVALID_LARGE", c.name)
	}

	parsed, ok := valid.measureUUIDParse().(uuid.UUID)
	require.True(t, ok)
	assert.Equal(t, valid.input, parsed.String())
	assert.Equal(t, invalid.input, invalid.measureUUIDParse())
}

func TestUuidPatterns_CaseAndVersion(t *testing.T) {
	upper := strings.ToUpper(uuid.NewString())
	f := &uuidFixture{input: upper}
	assert.Equal(t, false, f.measurePattern4())
	assert.Equal(t, true, f.measurePattern5())
	assert.Equal(t, true, f.measurePattern6())

	// Version nibble 0 fails only the strict pattern.
	f.input = "123e4567-e89b-02d3-a456-426614174000"
	assert.Equal(t, true, f.measurePattern5())
	assert.Equal(t, false, f.measurePattern6())
}

func TestRegexValidationPregenerate(t *testing.T) {
	f, err := newPregenFixture(nil)
	require.NoError(t, err)
	require.Len(t, f.valid, pregenerated)
	require.Len(t, f.invalid, pregenerated)
	assert.Len(t, f.invalid[0], 32)

	for range 100 {
		assert.Equal(t, true, f.measurePattern1())
		assert.Equal(t, true, f.measurePattern4())
		assert.Equal(t, true, f.measurePattern6())
		assert.Equal(t, true, f.measurePattern4WithLengthCheckValidLength())
		assert.Equal(t, false, f.measurePattern4WithLengthCheckInvalidLength())
	}
	assert.Len(t, f.baseLine(), uuidLength)
}

func TestOnlyOneNotNull(t *testing.T) {
	c, err := newBodyStyles(nil)
	require.NoError(t, err)

	fns := map[string]func(*bodyStyles) any{
		"xorSlice":   (*bodyStyles).xorSlice,
		"countLoop":  (*bodyStyles).countLoop,
		"count":      (*bodyStyles).count,
		"logicalXor": (*bodyStyles).logicalXor,
		"countTrue":  (*bodyStyles).countTrue,
	}
	for name, fn := range fns {
		assert.Equal(t, true, fn(c), name)
	}

	s := "x"
	all := &bodyStyles{suv: &s, sedan: &s, estate: &s}
	two := &bodyStyles{suv: &s, estate: &s}
	none := &bodyStyles{}
	for name, fn := range fns {
		assert.Equal(t, false, fn(all), "%s with all set", name)
		assert.Equal(t, false, fn(two), "%s with two set", name)
		assert.Equal(t, false, fn(none), "%s with none set", name)
	}
}

// TestAllSuitesRun runs every built-in suite in-process with a handful of
// single-invocation iterations and expects no error entries.
func TestAllSuitesRun(t *testing.T) {
	runner := harness.NewRunner(NewRegistry())
	runner.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rep, err := runner.Run(context.Background(), harness.WithOverrides(harness.Overrides{
		WarmupIterations:      intPtr(1),
		WarmupTime:            durPtr(0),
		MeasurementIterations: intPtr(3),
		MeasurementTime:       durPtr(0),
		Forks:                 intPtr(0),
		Threads:               intPtr(2),
	}))
	require.NoError(t, err)

	// bindings × functions, in registration order
	assert.Len(t, rep.Entries, 3*3+2*7+4*5+7+3*12+9+5)
	for _, e := range rep.Failures() {
		t.Errorf("%s failed: %s", e.Key(), e.Error.Message)
	}
}
