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
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

var (
	// ErrInvalidConfig is returned when the Prometheus configuration is invalid.
	ErrInvalidConfig = errors.New("invalid prometheus configuration")

	// ErrRegistrationFailed is returned when metric registration fails.
	ErrRegistrationFailed = errors.New("metric registration failed")
)

// PrometheusConfig configures the Prometheus sink.
//
// Thread Safety: Immutable after creation; safe for concurrent read access.
type PrometheusConfig struct {
	// Namespace is the metrics namespace. Required.
	Namespace string

	// Subsystem is the metrics subsystem. Required.
	Subsystem string

	// Registry is the Prometheus registry to use.
	// If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// MaxLabelCardinality caps the distinct values tracked per label.
	// Values beyond the cap are reported as "_other".
	// Default: 1000
	MaxLabelCardinality int
}

// DefaultPrometheusConfig returns the "microbench_benchmark" configuration.
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace:           "microbench",
		Subsystem:           "benchmark",
		MaxLabelCardinality: 1000,
	}
}

// Validate checks that the configuration is valid.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// PrometheusSink exposes report entries as Prometheus metrics.
//
// Description:
//
//	Successful entries set the score, score error and percentile gauges and
//	add to the operations counter. Every entry increments entries_total by
//	status; failed entries also increment failures_total by error kind.
//	Metrics are registered on creation and unregistered on Close when the
//	registry supports it.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	cfg := telemetry.DefaultPrometheusConfig()
//	cfg.Registry = reg
//	sink, err := telemetry.NewPrometheusSink(cfg)
//	if err != nil {
//	    return fmt.Errorf("create prometheus sink: %w", err)
//	}
//	defer sink.Close()
type PrometheusSink struct {
	config   *PrometheusConfig
	registry prometheus.Registerer

	score      *prometheus.GaugeVec
	scoreError *prometheus.GaugeVec
	percentile *prometheus.GaugeVec
	operations *prometheus.CounterVec
	entries    *prometheus.CounterVec
	failures   *prometheus.CounterVec

	mu         sync.RWMutex
	closed     bool
	collectors []prometheus.Collector

	labelMu        sync.RWMutex
	seenLabels     map[string]map[string]struct{}
	maxCardinality int
}

// NewPrometheusSink creates and registers the sink's collectors.
//
// Inputs:
//   - config: Prometheus configuration. Must not be nil.
//
// Outputs:
//   - *PrometheusSink: Never nil on success.
//   - error: ErrInvalidConfig or ErrRegistrationFailed.
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	cfg := *config
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	maxCard := cfg.MaxLabelCardinality
	if maxCard <= 0 {
		maxCard = 1000
	}

	sink := &PrometheusSink{
		config:         &cfg,
		registry:       registry,
		seenLabels:     make(map[string]map[string]struct{}),
		maxCardinality: maxCard,
	}

	scoreLabels := []string{"suite", "function", "params", "mode", "unit"}

	sink.score = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "score",
			Help:      "Benchmark score in the entry's unit",
		},
		scoreLabels,
	)

	sink.scoreError = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "score_error",
			Help:      "Half-width of the 99% confidence interval of the score",
		},
		scoreLabels,
	)

	sink.percentile = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "score_percentile",
			Help:      "Score percentiles across measurement iterations",
		},
		append(append([]string{}, scoreLabels...), "percentile"),
	)

	sink.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "operations_total",
			Help:      "Measured benchmark invocations",
		},
		[]string{"suite", "function", "params"},
	)

	sink.entries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "entries_total",
			Help:      "Report entries by status",
		},
		[]string{"suite", "status"},
	)

	sink.failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "failures_total",
			Help:      "Failed report entries by error kind",
		},
		[]string{"suite", "kind"},
	)

	sink.collectors = []prometheus.Collector{
		sink.score,
		sink.scoreError,
		sink.percentile,
		sink.operations,
		sink.entries,
		sink.failures,
	}

	for _, c := range sink.collectors {
		if err := registry.Register(c); err != nil {
			var alreadyErr prometheus.AlreadyRegisteredError
			if !errors.As(err, &alreadyErr) {
				return nil, errors.Join(ErrRegistrationFailed, err)
			}
		}
	}

	return sink, nil
}

// RecordEntry records one entry.
//
// Outputs:
//   - error: Non-nil if the sink is closed or inputs are nil.
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) RecordEntry(ctx context.Context, entry *harness.Entry) error {
	if ctx == nil {
		return ErrNilContext
	}
	if entry == nil {
		return ErrNilEntry
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	l := labelsFor(entry)
	suite := s.sanitizeLabel("suite", l.suite)
	s.entries.WithLabelValues(suite, l.status).Inc()

	if entry.Failed() {
		s.failures.WithLabelValues(suite, l.kind).Inc()
		return nil
	}

	function := s.sanitizeLabel("function", l.function)
	params := s.sanitizeLabel("params", l.params)
	values := []string{suite, function, params, l.mode, l.unit}

	s.score.WithLabelValues(values...).Set(entry.Score)
	if !math.IsNaN(entry.ScoreError) {
		s.scoreError.WithLabelValues(values...).Set(entry.ScoreError)
	}
	for key, v := range entry.Percentiles {
		s.percentile.WithLabelValues(append(values, key)...).Set(v)
	}
	s.operations.WithLabelValues(suite, function, params).Add(float64(entry.Operations))

	return nil
}

// Flush is a no-op; Prometheus metrics are pull-based.
func (s *PrometheusSink) Flush(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	return nil
}

// Close unregisters the collectors from a *prometheus.Registry.
// After Close, RecordEntry returns ErrSinkClosed.
//
// Thread Safety: Safe for concurrent use. Idempotent.
func (s *PrometheusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	// DefaultRegisterer is left alone.
	if reg, ok := s.registry.(*prometheus.Registry); ok {
		for _, c := range s.collectors {
			reg.Unregister(c)
		}
	}
	return nil
}

// sanitizeLabel replaces values beyond MaxLabelCardinality with "_other".
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) sanitizeLabel(labelName, labelValue string) string {
	s.labelMu.RLock()
	if seen := s.seenLabels[labelName]; seen != nil {
		if _, exists := seen[labelValue]; exists {
			s.labelMu.RUnlock()
			return labelValue
		}
		if len(seen) >= s.maxCardinality {
			s.labelMu.RUnlock()
			return "_other"
		}
	}
	s.labelMu.RUnlock()

	s.labelMu.Lock()
	defer s.labelMu.Unlock()

	if s.seenLabels[labelName] == nil {
		s.seenLabels[labelName] = make(map[string]struct{})
	}
	if _, exists := s.seenLabels[labelName][labelValue]; exists {
		return labelValue
	}
	if len(s.seenLabels[labelName]) >= s.maxCardinality {
		return "_other"
	}
	s.seenLabels[labelName][labelValue] = struct{}{}
	return labelValue
}

// Verify interface compliance at compile time.
var _ Sink = (*PrometheusSink)(nil)
