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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// Result is one element of the JSON result file.
//
// The field names follow the JMH result format so existing visualizers and
// comparison scripts can read the file. Failed entries carry Error and NaN
// scores.
type Result struct {
	Benchmark             string              `json:"benchmark"`
	Mode                  string              `json:"mode"`
	Threads               int                 `json:"threads"`
	Forks                 int                 `json:"forks"`
	WarmupIterations      int                 `json:"warmupIterations"`
	WarmupTime            string              `json:"warmupTime"`
	WarmupBatchSize       int                 `json:"warmupBatchSize"`
	MeasurementIterations int                 `json:"measurementIterations"`
	MeasurementTime       string              `json:"measurementTime"`
	MeasurementBatchSize  int                 `json:"measurementBatchSize"`
	Params                map[string]string   `json:"params,omitempty"`
	PrimaryMetric         Metric              `json:"primaryMetric"`
	Error                 *harness.EntryError `json:"error,omitempty"`
}

// Metric is the JMH primaryMetric object.
type Metric struct {
	Score            Float            `json:"score"`
	ScoreError       Float            `json:"scoreError"`
	ScoreConfidence  [2]Float         `json:"scoreConfidence"`
	ScorePercentiles map[string]Float `json:"scorePercentiles"`
	ScoreUnit        string           `json:"scoreUnit"`
	RawData          [][]float64      `json:"rawData"`
}

// Float encodes NaN and infinities as strings, which plain JSON numbers
// cannot represent.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"NaN"`:
		*f = Float(math.NaN())
		return nil
	case `"Infinity"`:
		*f = Float(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*f = Float(math.Inf(-1))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("decoding score %s: %w", data, err)
	}
	*f = Float(v)
	return nil
}

// NewResult converts one entry.
func NewResult(e *harness.Entry) Result {
	r := Result{
		Benchmark:             e.Suite + "." + e.Function,
		Mode:                  string(e.Mode),
		Threads:               e.Threads,
		Forks:                 e.Forks,
		WarmupIterations:      e.Config.WarmupIterations,
		WarmupTime:            phaseTime(e.Config.WarmupTime),
		WarmupBatchSize:       e.Config.BatchSize,
		MeasurementIterations: e.Config.MeasurementIterations,
		MeasurementTime:       phaseTime(e.Config.MeasurementTime),
		MeasurementBatchSize:  e.Config.BatchSize,
		Params:                e.Params,
		Error:                 e.Error,
	}
	r.PrimaryMetric.ScoreUnit = e.Unit
	r.PrimaryMetric.ScorePercentiles = map[string]Float{}
	r.PrimaryMetric.RawData = [][]float64{}
	if e.Failed() {
		nan := Float(math.NaN())
		r.PrimaryMetric.Score = nan
		r.PrimaryMetric.ScoreError = nan
		r.PrimaryMetric.ScoreConfidence = [2]Float{nan, nan}
		return r
	}

	r.PrimaryMetric.Score = Float(e.Score)
	r.PrimaryMetric.ScoreError = Float(e.ScoreError)
	r.PrimaryMetric.ScoreConfidence = [2]Float{Float(e.ScoreConfidence[0]), Float(e.ScoreConfidence[1])}
	for k, v := range e.Percentiles {
		r.PrimaryMetric.ScorePercentiles[k] = Float(v)
	}
	if e.RawData != nil {
		r.PrimaryMetric.RawData = e.RawData
	}
	return r
}

// phaseTime renders a phase budget the way JMH does ("1 s", "200 ms").
// Iteration-bounded phases render as "single-shot".
func phaseTime(d time.Duration) string {
	switch {
	case d <= 0:
		return "single-shot"
	case d%time.Second == 0:
		return fmt.Sprintf("%d s", d/time.Second)
	case d%time.Millisecond == 0:
		return fmt.Sprintf("%d ms", d/time.Millisecond)
	case d%time.Microsecond == 0:
		return fmt.Sprintf("%d us", d/time.Microsecond)
	default:
		return fmt.Sprintf("%d ns", d.Nanoseconds())
	}
}

// WriteJSON writes every entry of rep as an indented JSON array.
func WriteJSON(w io.Writer, rep *harness.Report) error {
	results := make([]Result, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		results = append(results, NewResult(e))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}

// ReadJSON decodes a result file written by WriteJSON.
func ReadJSON(r io.Reader) ([]Result, error) {
	var results []Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return results, nil
}
