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

	"github.com/AleutianAI/microbench/cmd/microbench/config"
	"github.com/AleutianAI/microbench/pkg/logging"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logDir     string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "microbench",
		Short: "Run micro-benchmark suites and report their scores",
		Long: `microbench runs registered benchmark suites through warmup and
measurement iterations, optionally in forked worker processes, and reports
a score with a 99% confidence error for every function and parameter
binding.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Path to a YAML config file (default ./"+config.DefaultFileName+" when present)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "Also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "Write console logs as JSON")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWorkerCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	return rootCmd
}

// applyLogFlags overlays explicitly set logging flags on the config file's
// logging section.
func applyLogFlags(cmd *cobra.Command, opts *globalOptions, cfg *config.LoggingConfig) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Level = opts.logLevel
	}
	if flags.Changed("log-dir") {
		cfg.Dir = opts.logDir
	}
	if flags.Changed("log-json") {
		cfg.JSON = opts.logJSON
	}
}

func newLogger(cfg config.LoggingConfig, service string, out io.Writer) (*logging.Logger, error) {
	level := logging.LevelInfo
	if cfg.Level != "" {
		var err error
		if level, err = logging.ParseLevel(cfg.Level); err != nil {
			return nil, err
		}
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: service,
		JSON:    cfg.JSON,
		Output:  out,
	}), nil
}

// jmhAliases maps JMH's multi-letter single-dash options to their long
// flags. pflag only supports one-letter shorthands.
var jmhAliases = map[string]string{
	"-wi":  "--warmup",
	"-w":   "--warmup-time",
	"-r":   "--time",
	"-bs":  "--batch-size",
	"-bm":  "--mode",
	"-tu":  "--unit",
	"-rf":  "--format",
	"-rff": "--result",
}

// normalizeArgs rewrites JMH-style options ("-wi 3", "-wi=3") to long flags.
// Arguments after "--" are left untouched.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, value, hasValue := strings.Cut(arg, "=")
		if long, ok := jmhAliases[name]; ok {
			if hasValue {
				arg = fmt.Sprintf("%s=%s", long, value)
			} else {
				arg = long
			}
		}
		out = append(out, arg)
	}
	return out
}
