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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/microbench/cmd/microbench/config"
	"github.com/AleutianAI/microbench/services/microbench/harness"
	"github.com/AleutianAI/microbench/services/microbench/suites"
)

// newWorkerCmd is the child side of a forked run. It reads one fork
// request on stdin and writes the result on stdout, so it must never log
// to stdout. It ignores the config file; the parent passes what it needs.
func newWorkerCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:    harness.WorkerCommand,
		Short:  "Serve one benchmark fork over stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(config.LoggingConfig{
				Level: global.logLevel,
				Dir:   global.logDir,
				JSON:  global.logJSON,
			}, "microbench-fork", cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logger.Close()

			return harness.ServeFork(cmd.Context(), suites.NewRegistry(),
				cmd.InOrStdin(), cmd.OutOrStdout(), logger.Slog())
		},
	}
}
