// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"sync"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrNilContext is returned when a nil context is provided.
	ErrNilContext = errors.New("context must not be nil")

	// ErrNilEntry is returned when a nil entry is recorded.
	ErrNilEntry = errors.New("entry must not be nil")

	// ErrSinkClosed is returned when attempting to use a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")

	// ErrNoSinks is returned when creating a composite sink with no children.
	ErrNoSinks = errors.New("at least one sink is required")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Sink receives report entries as they complete.
//
// Thread Safety: All implementations must be safe for concurrent use.
//
// Example:
//
//	runner.Run(ctx, harness.WithEntryCallback(func(e *harness.Entry) {
//	    if err := sink.RecordEntry(ctx, e); err != nil {
//	        logger.Warn("telemetry error", "error", err)
//	    }
//	}))
type Sink interface {
	// RecordEntry records one successful or failed entry.
	RecordEntry(ctx context.Context, entry *harness.Entry) error

	// Flush pushes buffered data to the backend.
	Flush(ctx context.Context) error

	// Close releases resources. Idempotent.
	Close() error
}

// RecordReport records every entry of rep and flushes the sink.
func RecordReport(ctx context.Context, sink Sink, rep *harness.Report) error {
	var errs []error
	for _, e := range rep.Entries {
		if err := sink.RecordEntry(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	if err := sink.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// entryLabels holds the label values shared by every sink.
type entryLabels struct {
	suite    string
	function string
	params   string
	mode     string
	unit     string
	status   string
	kind     string
}

func labelsFor(e *harness.Entry) entryLabels {
	l := entryLabels{
		suite:    e.Suite,
		function: e.Function,
		params:   e.Binding.String(),
		mode:     string(e.Mode),
		unit:     e.Unit,
		status:   "ok",
	}
	if l.params == "" {
		l.params = "none"
	}
	if e.Failed() {
		l.status = "failed"
		l.kind = string(e.Error.Kind)
	}
	return l
}

// -----------------------------------------------------------------------------
// Composite Sink
// -----------------------------------------------------------------------------

// CompositeSink forwards entries to several sinks.
//
// Description:
//
//	Errors from individual sinks are joined; one sink's failure does not
//	prevent the others from receiving the entry.
//
// Thread Safety: Safe for concurrent use.
type CompositeSink struct {
	sinks  []Sink
	mu     sync.RWMutex
	closed bool
}

// NewCompositeSink creates a sink that forwards to every non-nil sink.
//
// Outputs:
//   - *CompositeSink: Never nil on success.
//   - error: ErrNoSinks if no non-nil sink was provided.
func NewCompositeSink(sinks ...Sink) (*CompositeSink, error) {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoSinks
	}
	return &CompositeSink{sinks: valid}, nil
}

// RecordEntry forwards entry to every child sink.
func (c *CompositeSink) RecordEntry(ctx context.Context, entry *harness.Entry) error {
	if ctx == nil {
		return ErrNilContext
	}
	if entry == nil {
		return ErrNilEntry
	}
	return c.each(func(s Sink) error { return s.RecordEntry(ctx, entry) })
}

// Flush flushes every child sink.
func (c *CompositeSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return c.each(func(s Sink) error { return s.Flush(ctx) })
}

// Close closes every child sink. Idempotent.
func (c *CompositeSink) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sinks := c.sinks
	c.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *CompositeSink) each(fn func(Sink) error) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrSinkClosed
	}
	sinks := c.sinks
	c.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------
// No-Op Sink
// -----------------------------------------------------------------------------

// NoOpSink accepts and discards every entry. It is the sink used when
// metrics are disabled.
type NoOpSink struct{}

// NewNoOpSink creates a new no-op sink.
func NewNoOpSink() *NoOpSink {
	return &NoOpSink{}
}

// RecordEntry discards the entry.
func (n *NoOpSink) RecordEntry(ctx context.Context, entry *harness.Entry) error {
	if ctx == nil {
		return ErrNilContext
	}
	if entry == nil {
		return ErrNilEntry
	}
	return nil
}

// Flush does nothing.
func (n *NoOpSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// Close does nothing.
func (n *NoOpSink) Close() error {
	return nil
}

// Verify interface compliance at compile time.
var (
	_ Sink = (*CompositeSink)(nil)
	_ Sink = (*NoOpSink)(nil)
)
