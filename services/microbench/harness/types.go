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
	"time"
)

// Sample is one timed measurement iteration on one thread.
type Sample struct {
	// Thread is the zero-based invoker index.
	Thread int `json:"thread"`

	// Iteration is the zero-based measurement iteration.
	Iteration int `json:"iteration"`

	// Ops is the number of invocations completed.
	Ops int64 `json:"ops"`

	// Elapsed is the wall time spent on those invocations.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// EntryError describes why an entry has no performance data.
type EntryError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`

	// Fork is the one-based fork that failed. Zero when the run was in-process.
	Fork int `json:"fork,omitempty"`
}

// Entry is the result for one (suite, function, binding).
//
// Description:
//
//	A successful entry carries the reduced statistics over every
//	measurement-phase score from every fork. A failed entry carries an
//	EntryError and no statistics. Every selected function appears exactly
//	once per binding, so the report never drops a configured benchmark.
type Entry struct {
	Suite    string            `json:"suite"`
	Function string            `json:"function"`
	Params   map[string]string `json:"params,omitempty"`
	Binding  Binding           `json:"-"`

	Mode    Mode   `json:"mode"`
	Unit    string `json:"unit"`
	Threads int    `json:"threads"`
	Forks   int    `json:"forks"`

	// Samples is the number of raw per-thread samples behind the score.
	Samples int `json:"samples"`

	// Iterations is the number of scores, one per (fork, iteration).
	Iterations int `json:"iterations"`

	// Operations is the total number of measured invocations.
	Operations int64 `json:"operations"`

	Score           float64            `json:"score"`
	ScoreError      float64            `json:"score_error"`
	ScoreConfidence [2]float64         `json:"score_confidence"`
	Percentiles     map[string]float64 `json:"percentiles,omitempty"`
	Min             float64            `json:"min"`
	Max             float64            `json:"max"`
	StdDev          float64            `json:"stddev"`

	// RawData holds one slice of scores per fork.
	RawData [][]float64 `json:"raw_data,omitempty"`

	Config Config      `json:"config"`
	Error  *EntryError `json:"error,omitempty"`
}

// Key returns "<suite>.<function>" followed by the binding, if any.
func (e *Entry) Key() string {
	key := e.Suite + "." + e.Function
	if len(e.Binding) > 0 {
		key += "(" + e.Binding.String() + ")"
	}
	return key
}

// Failed reports whether the entry is an error entry.
func (e *Entry) Failed() bool {
	return e.Error != nil
}

// Report is the outcome of one run.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Entries    []*Entry  `json:"entries"`
}

// Failures returns the error entries in report order.
func (r *Report) Failures() []*Entry {
	var out []*Entry
	for _, e := range r.Entries {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

// Successes returns the entries with performance data in report order.
func (r *Report) Successes() []*Entry {
	var out []*Entry
	for _, e := range r.Entries {
		if !e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

// Suites returns the distinct suite names in report order.
func (r *Report) Suites() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range r.Entries {
		if _, ok := seen[e.Suite]; ok {
			continue
		}
		seen[e.Suite] = struct{}{}
		out = append(out, e.Suite)
	}
	return out
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
