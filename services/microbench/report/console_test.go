// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

func TestConsole_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainConsole(&buf).Render(sampleReport()))

	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)

	header := lines[0]
	assert.True(t, strings.HasPrefix(header, "Benchmark"))
	assert.Contains(t, header, "(testCase)")
	assert.Contains(t, header, "Mode")
	assert.Contains(t, header, "Cnt")
	assert.Contains(t, header, "Score")
	assert.Contains(t, header, "Units")

	assert.Contains(t, lines[1], "UuidRegexValidation.uuidRegex1")
	assert.Contains(t, lines[1], "VALID")
	assert.Contains(t, lines[1], "1234.568")
	assert.Contains(t, lines[1], "± ")
	assert.Contains(t, lines[1], "ops/ms")

	// Columns line up: the score column ends at the same offset on every row.
	end1 := strings.Index(lines[1], "1234.568") + len("1234.568")
	end2 := strings.Index(lines[2], "98.700") + len("98.700")
	assert.Equal(t, end1, end2)

	out := buf.String()
	assert.Contains(t, out, "Failures (1):")
	assert.Contains(t, out, "UuidRegexValidation.uuidRegex1(testCase=NULL) [setup] MICROBENCH_SETUP fork 1: fixture setup failed: boom")
	assert.Contains(t, out, "3 benchmarks, 1 failed, took 2.5s")
}

func TestConsole_RenderOnlyFailures(t *testing.T) {
	rep := sampleReport()
	rep.Entries = rep.Entries[2:]

	var buf bytes.Buffer
	require.NoError(t, NewPlainConsole(&buf).Render(rep))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Failures (1):"))
	assert.NotContains(t, out, "Benchmark")
}

func TestConsole_NaNErrorLeftBlank(t *testing.T) {
	rep := sampleReport()
	rep.Entries = rep.Entries[:1]
	rep.Entries[0].ScoreError = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, NewPlainConsole(&buf).Render(rep))

	assert.NotContains(t, buf.String(), "±")
	assert.NotContains(t, buf.String(), "NaN")
}

func TestNewConsole_BufferIsNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.False(t, NewConsole(&buf).color)
}

func TestParamNames_FirstAppearanceOrder(t *testing.T) {
	entries := []*harness.Entry{
		{Binding: harness.Binding{{Name: "b", Value: "1"}}},
		{Binding: harness.Binding{{Name: "a", Value: "2"}, {Name: "b", Value: "3"}}},
	}
	assert.Equal(t, []string{"b", "a"}, paramNames(entries))
}
