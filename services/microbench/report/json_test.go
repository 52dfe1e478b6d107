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
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

func TestFloat_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, `1.5`},
		{0, `0`},
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(Float(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))
	}
}

func TestFloat_UnmarshalJSON(t *testing.T) {
	var f Float
	require.NoError(t, json.Unmarshal([]byte(`"NaN"`), &f))
	assert.True(t, math.IsNaN(float64(f)))

	require.NoError(t, json.Unmarshal([]byte(`"-Infinity"`), &f))
	assert.True(t, math.IsInf(float64(f), -1))

	require.NoError(t, json.Unmarshal([]byte(`42.25`), &f))
	assert.Equal(t, Float(42.25), f)

	assert.Error(t, json.Unmarshal([]byte(`"fast"`), &f))
}

func TestNewResult_Success(t *testing.T) {
	e := sampleReport().Entries[0]
	r := NewResult(e)

	assert.Equal(t, "UuidRegexValidation.uuidRegex1", r.Benchmark)
	assert.Equal(t, "thrpt", r.Mode)
	assert.Equal(t, 5, r.WarmupIterations)
	assert.Equal(t, "1 s", r.WarmupTime)
	assert.Equal(t, 10, r.MeasurementIterations)
	assert.Equal(t, map[string]string{"testCase": "VALID"}, r.Params)
	assert.Equal(t, Float(1234.5678), r.PrimaryMetric.Score)
	assert.Equal(t, Float(1.5), r.PrimaryMetric.ScoreError)
	assert.Equal(t, "ops/ms", r.PrimaryMetric.ScoreUnit)
	assert.Len(t, r.PrimaryMetric.ScorePercentiles, 3)
	assert.Len(t, r.PrimaryMetric.RawData, 1)
	assert.Nil(t, r.Error)
}

func TestNewResult_Failure(t *testing.T) {
	e := sampleReport().Entries[2]
	r := NewResult(e)

	require.NotNil(t, r.Error)
	assert.Equal(t, harness.KindSetup, r.Error.Kind)
	assert.True(t, math.IsNaN(float64(r.PrimaryMetric.Score)))
	assert.True(t, math.IsNaN(float64(r.PrimaryMetric.ScoreConfidence[1])))
	assert.Empty(t, r.PrimaryMetric.ScorePercentiles)
	assert.NotNil(t, r.PrimaryMetric.RawData)
}

func TestPhaseTime(t *testing.T) {
	assert.Equal(t, "single-shot", phaseTime(0))
	assert.Equal(t, "2 s", phaseTime(2*time.Second))
	assert.Equal(t, "200 ms", phaseTime(200*time.Millisecond))
	assert.Equal(t, "50 us", phaseTime(50*time.Microsecond))
	assert.Equal(t, "7 ns", phaseTime(7))
}

func TestWriteJSON_ReadJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	// The raw text must stay valid JSON even with NaN scores.
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 3)
	metric := raw[2]["primaryMetric"].(map[string]any)
	assert.Equal(t, "NaN", metric["score"])

	results, err := ReadJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, Float(98.7), results[1].PrimaryMetric.Score)
	assert.Equal(t, "fixture setup failed: boom", results[2].Error.Message)
	assert.Equal(t, 1, results[2].Error.Fork)
}

func TestReadJSON_Invalid(t *testing.T) {
	_, err := ReadJSON(bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
