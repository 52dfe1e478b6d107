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
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

var (
	colorTeal  = lipgloss.Color("#2CD7C7")
	colorError = lipgloss.Color("#E74C3C")
	colorMuted = lipgloss.Color("#2C4A54")
)

// consoleStyles holds the styles used when writing to a terminal.
var consoleStyles = struct {
	Header  lipgloss.Style
	Name    lipgloss.Style
	Failure lipgloss.Style
	Muted   lipgloss.Style
}{
	Header:  lipgloss.NewStyle().Bold(true).Foreground(colorTeal),
	Name:    lipgloss.NewStyle().Bold(true),
	Failure: lipgloss.NewStyle().Foreground(colorError),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
}

// Console renders a report as a JMH-style table followed by a failure list.
//
// Thread Safety: Not safe for concurrent use.
type Console struct {
	w     io.Writer
	color bool
}

// NewConsole creates a Console for w. Styling is enabled only when w is a
// terminal and NO_COLOR is unset.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, color: IsTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// NewPlainConsole creates a Console that never styles its output.
func NewPlainConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type column struct {
	title     string
	leftAlign bool
}

// Render writes the table, the failures section and a summary line.
func (c *Console) Render(rep *harness.Report) error {
	var b strings.Builder

	if ok := rep.Successes(); len(ok) > 0 {
		c.renderTable(&b, ok)
	}

	if failed := rep.Failures(); len(failed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.style(consoleStyles.Failure, fmt.Sprintf("Failures (%d):", len(failed))))
		b.WriteString("\n")
		for _, e := range failed {
			b.WriteString("  ")
			b.WriteString(c.style(consoleStyles.Name, e.Key()))
			b.WriteString(" ")
			b.WriteString(c.style(consoleStyles.Failure, failureText(e)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(c.style(consoleStyles.Muted, fmt.Sprintf("%d benchmarks, %d failed, took %s",
		len(rep.Entries), len(rep.Failures()), rep.Duration().Round(time.Millisecond))))
	b.WriteString("\n")

	_, err := io.WriteString(c.w, b.String())
	return err
}

func failureText(e *harness.Entry) string {
	text := "[" + string(e.Error.Kind) + "]"
	if e.Error.Code != "" {
		text += " " + e.Error.Code
	}
	if e.Error.Fork > 0 {
		text += " fork " + strconv.Itoa(e.Error.Fork)
	}
	return text + ": " + e.Error.Message
}

func (c *Console) renderTable(b *strings.Builder, entries []*harness.Entry) {
	params := paramNames(entries)

	cols := []column{{title: "Benchmark", leftAlign: true}}
	for _, p := range params {
		cols = append(cols, column{title: "(" + p + ")"})
	}
	cols = append(cols,
		column{title: "Mode"},
		column{title: "Cnt"},
		column{title: "Score"},
		column{title: ""},
		column{title: "Error"},
		column{title: "Units", leftAlign: true},
	)

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.Suite + "." + e.Function}
		for _, p := range params {
			row = append(row, e.Params[p])
		}
		scoreErr, pm := "", ""
		if !math.IsNaN(e.ScoreError) {
			scoreErr, pm = formatScore(e.ScoreError), "±"
		}
		row = append(row,
			string(e.Mode),
			strconv.Itoa(e.Iterations),
			formatScore(e.Score),
			pm,
			scoreErr,
			e.Unit,
		)
		rows = append(rows, row)
	}

	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = lipgloss.Width(col.title)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = pad(col.title, widths[i], col.leftAlign)
	}
	b.WriteString(c.style(consoleStyles.Header, strings.TrimRight(strings.Join(header, "  "), " ")))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i], cols[i].leftAlign)
		}
		cells[0] = c.style(consoleStyles.Name, cells[0])
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}
}

// paramNames returns every parameter name in order of first appearance.
func paramNames(entries []*harness.Entry) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		for _, pv := range e.Binding {
			if _, ok := seen[pv.Name]; ok {
				continue
			}
			seen[pv.Name] = struct{}{}
			names = append(names, pv.Name)
		}
	}
	return names
}

func pad(s string, width int, left bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if left {
		return s + strings.Repeat(" ", gap)
	}
	return strings.Repeat(" ", gap) + s
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func (c *Console) style(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}
