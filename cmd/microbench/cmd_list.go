// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/microbench/services/microbench/harness"
	"github.com/AleutianAI/microbench/services/microbench/suites"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern...]",
		Short: "List benchmarks, their parameters and declared configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			selections, err := suites.NewRegistry().Select(args)
			if err != nil {
				return err
			}
			return writeListing(cmd.OutOrStdout(), selections)
		},
	}
}

func writeListing(w io.Writer, selections []harness.Selection) error {
	var b strings.Builder
	for i, sel := range selections {
		if i > 0 {
			b.WriteByte('\n')
		}
		s := sel.Suite
		fmt.Fprintf(&b, "%s  (%s)\n", s.Name(), describeConfig(s))
		for _, p := range s.Params() {
			fmt.Fprintf(&b, "  param %s: %s\n", p.Name, strings.Join(p.Values, ", "))
		}
		for _, fn := range sel.Functions {
			fmt.Fprintf(&b, "  %s\n", s.FullName(fn))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func describeConfig(s *harness.Suite) string {
	c := s.Config()
	return fmt.Sprintf("%s, warmup %d×%s, measure %d×%s, batch %d, forks %d, threads %d, %s scope",
		c.ScoreUnit(),
		c.WarmupIterations, c.WarmupTime,
		c.MeasurementIterations, c.MeasurementTime,
		c.BatchSize, c.Forks, c.Threads, s.Scope())
}
