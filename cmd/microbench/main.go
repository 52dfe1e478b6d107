// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command microbench runs the built-in micro-benchmark suites and reports
// their scores.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("microbench: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(normalizeArgs(os.Args[1:]))
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(harness.Describe(err))
	}
}
