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
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Mode
// -----------------------------------------------------------------------------

// Mode selects the reduction applied to raw samples.
type Mode string

const (
	// ModeThroughput reports operations per time unit.
	ModeThroughput Mode = "thrpt"

	// ModeAverageTime reports time units per operation.
	ModeAverageTime Mode = "avgt"
)

// ParseMode converts a CLI or config value to a Mode.
//
// Accepts the short names ("thrpt", "avgt") and the long forms
// ("throughput", "averagetime", "average"). Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "thrpt", "throughput":
		return ModeThroughput, nil
	case "avgt", "averagetime", "average":
		return ModeAverageTime, nil
	default:
		return "", NewErrInvalidOption("mode", s, "thrpt, avgt")
	}
}

// UnmarshalYAML accepts every spelling ParseMode does.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// -----------------------------------------------------------------------------
// TimeUnit
// -----------------------------------------------------------------------------

// TimeUnit is the output unit for scores.
type TimeUnit string

const (
	Nanoseconds  TimeUnit = "ns"
	Microseconds TimeUnit = "us"
	Milliseconds TimeUnit = "ms"
	Seconds      TimeUnit = "s"
)

// ParseTimeUnit converts a CLI or config value to a TimeUnit.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ns", "nanoseconds":
		return Nanoseconds, nil
	case "us", "µs", "microseconds":
		return Microseconds, nil
	case "ms", "milliseconds":
		return Milliseconds, nil
	case "s", "seconds":
		return Seconds, nil
	default:
		return "", NewErrInvalidOption("unit", s, "ns, us, ms, s")
	}
}

// UnmarshalYAML accepts every spelling ParseTimeUnit does.
func (u *TimeUnit) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTimeUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Duration returns the length of one unit.
func (u TimeUnit) Duration() time.Duration {
	switch u {
	case Nanoseconds:
		return time.Nanosecond
	case Microseconds:
		return time.Microsecond
	case Seconds:
		return time.Second
	default:
		return time.Millisecond
	}
}

// ScoreUnit returns the unit label for scores reported in mode m.
//
// Example:
//
//	Milliseconds.ScoreUnit(ModeThroughput)  // "ops/ms"
//	Nanoseconds.ScoreUnit(ModeAverageTime)  // "ns/op"
func (u TimeUnit) ScoreUnit(m Mode) string {
	if m == ModeAverageTime {
		return string(u) + "/op"
	}
	return "ops/" + string(u)
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// Config holds the run configuration for one suite.
//
// Description:
//
//	Config controls warmup and measurement budgets, batch size, fork and
//	thread counts, and how samples are reduced. A phase time of zero makes the
//	phase iteration-bounded: each iteration is exactly BatchSize invocations.
//	A positive phase time makes each iteration run batches until the time
//	elapses.
//
// Thread Safety: Safe for concurrent read access after initialization.
type Config struct {
	// WarmupIterations is the number of untimed warmup iterations.
	// Default: 5
	WarmupIterations int `json:"warmup_iterations" yaml:"warmup_iterations" validate:"gte=0"`

	// WarmupTime is the duration of each warmup iteration.
	// Default: 1s
	WarmupTime time.Duration `json:"warmup_time" yaml:"warmup_time" validate:"gte=0"`

	// MeasurementIterations is the number of measured iterations.
	// Default: 10
	MeasurementIterations int `json:"measurement_iterations" yaml:"measurement_iterations" validate:"gte=1"`

	// MeasurementTime is the duration of each measured iteration.
	// Default: 1s
	MeasurementTime time.Duration `json:"measurement_time" yaml:"measurement_time" validate:"gte=0"`

	// BatchSize is the number of invocations timed together.
	// Default: 1
	BatchSize int `json:"batch_size" yaml:"batch_size" validate:"gte=1"`

	// Forks is the number of isolated worker processes. Zero runs in-process.
	// Default: 1
	Forks int `json:"forks" yaml:"forks" validate:"gte=0,lte=100"`

	// Threads is the number of concurrent invokers.
	// Default: 1
	Threads int `json:"threads" yaml:"threads" validate:"gte=1,lte=1024"`

	// Mode selects throughput or average time.
	// Default: ModeThroughput
	Mode Mode `json:"mode" yaml:"mode" validate:"oneof=thrpt avgt"`

	// TimeUnit is the output unit.
	// Default: Milliseconds
	TimeUnit TimeUnit `json:"time_unit" yaml:"time_unit" validate:"oneof=ns us ms s"`
}

// DefaultConfig returns the configuration every suite starts from.
//
// Outputs:
//   - Config: 5×1s warmup, 10×1s measurement, 1 fork, 1 thread, ops/ms.
func DefaultConfig() Config {
	return Config{
		WarmupIterations:      5,
		WarmupTime:            time.Second,
		MeasurementIterations: 10,
		MeasurementTime:       time.Second,
		BatchSize:             1,
		Forks:                 1,
		Threads:               1,
		Mode:                  ModeThroughput,
		TimeUnit:              Milliseconds,
	}
}

var configValidate = validator.New()

// Validate checks that the configuration is usable.
//
// Outputs:
//   - error: A configuration error naming the first invalid field, or nil.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
		}
		return NewErrInvalidConfig(strings.Join(fields, ", "), err)
	}
	return nil
}

// ScoreUnit returns the unit label for this configuration.
func (c Config) ScoreUnit() string {
	return c.TimeUnit.ScoreUnit(c.Mode)
}

// -----------------------------------------------------------------------------
// Overrides
// -----------------------------------------------------------------------------

// Overrides replaces individual Config fields. Nil fields keep the suite's
// declared value.
type Overrides struct {
	WarmupIterations      *int           `yaml:"warmup_iterations"`
	WarmupTime            *time.Duration `yaml:"warmup_time"`
	MeasurementIterations *int           `yaml:"measurement_iterations"`
	MeasurementTime       *time.Duration `yaml:"measurement_time"`
	BatchSize             *int           `yaml:"batch_size"`
	Forks                 *int           `yaml:"forks"`
	Threads               *int           `yaml:"threads"`
	Mode                  *Mode          `yaml:"mode"`
	TimeUnit              *TimeUnit      `yaml:"time_unit"`
}

// Apply returns c with every non-nil override applied.
func (o Overrides) Apply(c Config) Config {
	if o.WarmupIterations != nil {
		c.WarmupIterations = *o.WarmupIterations
	}
	if o.WarmupTime != nil {
		c.WarmupTime = *o.WarmupTime
	}
	if o.MeasurementIterations != nil {
		c.MeasurementIterations = *o.MeasurementIterations
	}
	if o.MeasurementTime != nil {
		c.MeasurementTime = *o.MeasurementTime
	}
	if o.BatchSize != nil {
		c.BatchSize = *o.BatchSize
	}
	if o.Forks != nil {
		c.Forks = *o.Forks
	}
	if o.Threads != nil {
		c.Threads = *o.Threads
	}
	if o.Mode != nil {
		c.Mode = *o.Mode
	}
	if o.TimeUnit != nil {
		c.TimeUnit = *o.TimeUnit
	}
	return c
}

// Merge returns o with every field set in other taking precedence.
func (o Overrides) Merge(other Overrides) Overrides {
	if other.WarmupIterations != nil {
		o.WarmupIterations = other.WarmupIterations
	}
	if other.WarmupTime != nil {
		o.WarmupTime = other.WarmupTime
	}
	if other.MeasurementIterations != nil {
		o.MeasurementIterations = other.MeasurementIterations
	}
	if other.MeasurementTime != nil {
		o.MeasurementTime = other.MeasurementTime
	}
	if other.BatchSize != nil {
		o.BatchSize = other.BatchSize
	}
	if other.Forks != nil {
		o.Forks = other.Forks
	}
	if other.Threads != nil {
		o.Threads = other.Threads
	}
	if other.Mode != nil {
		o.Mode = other.Mode
	}
	if other.TimeUnit != nil {
		o.TimeUnit = other.TimeUnit
	}
	return o
}
