// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports benchmark runs to tracing and metrics backends.
//
// # Overview
//
// Init installs the global OpenTelemetry tracer and meter providers. The
// harness creates its spans through otel.Tracer, so enabling a trace
// exporter here is all that is needed to see one span per run and one per
// parameter binding.
//
// Report entries reach metrics backends through a Sink:
//
//	┌──────────────┐     RecordEntry      ┌────────────────┐
//	│ harness.Run  │ ───────────────────▶ │ Sink           │
//	└──────────────┘                      ├────────────────┤
//	                                      │ PrometheusSink │──▶ textfile (.prom)
//	                                      │ OTelSink       │──▶ otel meter / spans
//	                                      │ CompositeSink  │──▶ both
//	                                      └────────────────┘
//
// A benchmark CLI has nothing to scrape, so Prometheus output is written
// once at the end of the run with WriteTextfile, in the format the
// node_exporter textfile collector reads.
//
// # Metric Naming Convention
//
// Metrics follow the pattern: <namespace>_<subsystem>_<metric>_<unit>
//
// Examples:
//   - microbench_benchmark_score
//   - microbench_benchmark_operations_total
//   - microbench_benchmark_failures_total
//
// # Thread Safety
//
// All Sink implementations are safe for concurrent use.
package telemetry
