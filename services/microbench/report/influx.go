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
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// Measurement is the InfluxDB measurement every entry is written to.
const Measurement = "microbench"

// ErrInfluxConfig indicates incomplete InfluxDB connection settings.
var ErrInfluxConfig = goerrors.New("influx url, org and bucket are required")

// PointWriter is the subset of api.WriteAPIBlocking used to publish results.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxConfig locates the InfluxDB bucket that receives results.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether publishing was configured at all.
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

// Points converts every entry of rep to an InfluxDB point stamped with the
// run's finish time.
//
// Description:
//
//	Tags identify the entry (suite, function, mode, unit, status and one
//	"param_<name>" tag per parameter). Successful entries carry the score,
//	its error (omitted when NaN), the counts and the percentiles as fields;
//	failed entries carry the error kind as a tag and its message as a field.
func Points(rep *harness.Report) []*write.Point {
	ts := rep.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	points := make([]*write.Point, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		tags := map[string]string{
			"suite":    e.Suite,
			"function": e.Function,
			"mode":     string(e.Mode),
			"unit":     e.Unit,
			"status":   "ok",
		}
		for _, pv := range e.Binding {
			tags["param_"+pv.Name] = pv.Value
		}

		fields := map[string]interface{}{
			"threads": e.Threads,
			"forks":   e.Forks,
		}
		if e.Failed() {
			tags["status"] = "failed"
			tags["error_kind"] = string(e.Error.Kind)
			fields["error"] = e.Error.Message
		} else {
			fields["score"] = e.Score
			if !math.IsNaN(e.ScoreError) {
				fields["score_error"] = e.ScoreError
			}
			fields["iterations"] = e.Iterations
			fields["samples"] = e.Samples
			fields["operations"] = e.Operations
			for k, v := range e.Percentiles {
				fields["p"+strings.ReplaceAll(k, ".", "_")] = v
			}
		}

		points = append(points, influxdb2.NewPoint(Measurement, tags, fields, ts))
	}
	return points
}

// WriteLineProtocol writes rep as InfluxDB line protocol, one line per entry,
// with nanosecond timestamps.
func WriteLineProtocol(w io.Writer, rep *harness.Report) error {
	for _, p := range Points(rep) {
		line := strings.TrimRight(write.PointToLineProtocol(p, time.Nanosecond), "\n")
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("writing line protocol: %w", err)
		}
	}
	return nil
}

// Publish writes every entry of rep through w.
func Publish(ctx context.Context, w PointWriter, rep *harness.Report) error {
	points := Points(rep)
	if len(points) == 0 {
		return nil
	}
	if err := w.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("writing %d points: %w", len(points), err)
	}
	return nil
}

// PublishInflux sends rep to the InfluxDB bucket described by cfg.
func PublishInflux(ctx context.Context, cfg InfluxConfig, rep *harness.Report) error {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return ErrInfluxConfig
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	defer client.Close()

	return Publish(ctx, client.WriteAPIBlocking(cfg.Org, cfg.Bucket), rep)
}
