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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"thrpt", ModeThroughput, false},
		{"Throughput", ModeThroughput, false},
		{"avgt", ModeAverageTime, false},
		{" AverageTime ", ModeAverageTime, false},
		{"sample", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeUnit(t *testing.T) {
	for in, want := range map[string]TimeUnit{
		"ns": Nanoseconds, "us": Microseconds, "µs": Microseconds,
		"ms": Milliseconds, "MILLISECONDS": Milliseconds, "s": Seconds,
	} {
		got, err := ParseTimeUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTimeUnit("minutes")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestTimeUnit_ScoreUnit(t *testing.T) {
	assert.Equal(t, "ops/ms", Milliseconds.ScoreUnit(ModeThroughput))
	assert.Equal(t, "ops/s", Seconds.ScoreUnit(ModeThroughput))
	assert.Equal(t, "ns/op", Nanoseconds.ScoreUnit(ModeAverageTime))
	assert.Equal(t, "us/op", Microseconds.ScoreUnit(ModeAverageTime))
	assert.Equal(t, time.Microsecond, Microseconds.Duration())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.WarmupIterations)
	assert.Equal(t, time.Second, cfg.WarmupTime)
	assert.Equal(t, 10, cfg.MeasurementIterations)
	assert.Equal(t, time.Second, cfg.MeasurementTime)
	assert.Equal(t, 1, cfg.Forks)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, ModeThroughput, cfg.Mode)
	assert.Equal(t, "ops/ms", cfg.ScoreUnit())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative warmup", func(c *Config) { c.WarmupIterations = -1 }},
		{"zero measurement", func(c *Config) { c.MeasurementIterations = 0 }},
		{"negative time", func(c *Config) { c.MeasurementTime = -time.Second }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"negative forks", func(c *Config) { c.Forks = -1 }},
		{"zero threads", func(c *Config) { c.Threads = 0 }},
		{"unknown mode", func(c *Config) { c.Mode = "sample" }},
		{"unknown unit", func(c *Config) { c.TimeUnit = "min" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}

	t.Run("zero warmup and zero forks are valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.WarmupIterations = 0
		cfg.Forks = 0
		cfg.WarmupTime = 0
		cfg.MeasurementTime = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestOverrides(t *testing.T) {
	threads := 4
	forks := 0
	mode := ModeAverageTime

	base := Overrides{Threads: &threads}
	merged := base.Merge(Overrides{Forks: &forks, Mode: &mode})

	cfg := merged.Apply(DefaultConfig())
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 0, cfg.Forks)
	assert.Equal(t, ModeAverageTime, cfg.Mode)
	assert.Equal(t, 10, cfg.MeasurementIterations, "unset fields keep the suite value")

	eight := 8
	cfg = merged.Merge(Overrides{Threads: &eight}).Apply(DefaultConfig())
	assert.Equal(t, 8, cfg.Threads, "later overrides win")
}

func TestModeAndTimeUnit_UnmarshalYAML(t *testing.T) {
	var o Overrides
	require.NoError(t, yaml.Unmarshal([]byte("mode: AverageTime\ntime_unit: microseconds\n"), &o))
	require.NotNil(t, o.Mode)
	require.NotNil(t, o.TimeUnit)
	assert.Equal(t, ModeAverageTime, *o.Mode)
	assert.Equal(t, Microseconds, *o.TimeUnit)

	var c Config
	require.NoError(t, yaml.Unmarshal([]byte("mode: throughput\ntime_unit: ns\n"), &c))
	assert.Equal(t, ModeThroughput, c.Mode)
	assert.Equal(t, Nanoseconds, c.TimeUnit)

	err := yaml.Unmarshal([]byte("mode: sample\n"), &o)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	err = yaml.Unmarshal([]byte("time_unit: fortnights\n"), &o)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}
