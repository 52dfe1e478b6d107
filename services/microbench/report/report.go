// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders a harness.Report for people and for tooling.
//
// The console table follows the familiar JMH layout. The result file is
// either a JSON array in the JMH result shape or InfluxDB line protocol.
package report

import (
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// ErrUnknownFormat indicates an unsupported result file format.
var ErrUnknownFormat = goerrors.New("unknown result format")

// Format selects the result file encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatInflux Format = "influx"
	FormatNone   Format = "none"
)

// ParseFormat converts a flag or config value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "influx", "line", "lineprotocol":
		return FormatInflux, nil
	case "none", "off":
		return FormatNone, nil
	default:
		return "", fmt.Errorf("%w: %q (want json, influx or none)", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	if f == FormatInflux {
		return ".lp"
	}
	return ".json"
}

// DefaultResultPath names the result file after the suite that ran, or
// "microbench" when the report covers several suites.
//
// Example:
//
//	DefaultResultPath(rep, FormatJSON) // "UuidRegexValidation-results.json"
func DefaultResultPath(rep *harness.Report, format Format) string {
	name := "microbench"
	if suites := rep.Suites(); len(suites) == 1 {
		name = suites[0]
	}
	return name + "-results" + format.Extension()
}

// Write encodes rep to w in format. FormatNone writes nothing.
func Write(w io.Writer, rep *harness.Report, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatInflux:
		return WriteLineProtocol(w, rep)
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile writes rep to path in format, creating parent directories.
// FormatNone writes nothing.
func WriteFile(path string, rep *harness.Report, format Format) error {
	if format == FormatNone {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating result dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating result file: %w", err)
	}
	if err := Write(f, rep, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
