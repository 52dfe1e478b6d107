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
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// mockPointWriter records published points.
type mockPointWriter struct {
	points []*write.Point
	err    error
}

func (m *mockPointWriter) WritePoint(_ context.Context, points ...*write.Point) error {
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, points...)
	return nil
}

func tagMap(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fieldMap(p *write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestPoints(t *testing.T) {
	rep := sampleReport()
	points := Points(rep)
	require.Len(t, points, 3)

	ok := points[0]
	assert.Equal(t, Measurement, ok.Name())
	assert.Equal(t, rep.FinishedAt, ok.Time())
	tags := tagMap(ok)
	assert.Equal(t, "UuidRegexValidation", tags["suite"])
	assert.Equal(t, "uuidRegex1", tags["function"])
	assert.Equal(t, "thrpt", tags["mode"])
	assert.Equal(t, "VALID", tags["param_testCase"])
	assert.Equal(t, "ok", tags["status"])

	fields := fieldMap(ok)
	assert.Equal(t, 1234.5678, fields["score"])
	assert.Equal(t, 1.5, fields["score_error"])
	assert.Contains(t, fields, "p50_0")
	assert.Contains(t, fields, "p100_0")

	failed := points[2]
	assert.Equal(t, "failed", tagMap(failed)["status"])
	assert.Equal(t, "setup", tagMap(failed)["error_kind"])
	failedFields := fieldMap(failed)
	assert.Equal(t, "fixture setup failed: boom", failedFields["error"])
	assert.NotContains(t, failedFields, "score")
}

func TestWriteLineProtocol(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLineProtocol(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, Measurement+","), line)
		assert.NotContains(t, line, "NaN")
	}
	assert.Contains(t, lines[0], "suite=UuidRegexValidation")
	assert.Contains(t, lines[0], "score=1234.5678")
	assert.True(t, strings.HasSuffix(lines[0], " 1740830402500000000"), lines[0])
}

func TestPublish(t *testing.T) {
	w := &mockPointWriter{}
	require.NoError(t, Publish(context.Background(), w, sampleReport()))
	assert.Len(t, w.points, 3)

	require.NoError(t, Publish(context.Background(), w, &harness.Report{}))
	assert.Len(t, w.points, 3, "empty report publishes nothing")

	w.err = errors.New("unauthorized")
	err := Publish(context.Background(), w, sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestPublishInflux_RequiresConfig(t *testing.T) {
	err := PublishInflux(context.Background(), InfluxConfig{URL: "http://localhost:8086"}, sampleReport())
	assert.ErrorIs(t, err, ErrInfluxConfig)
	assert.False(t, InfluxConfig{}.Enabled())
}
