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
	"context"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
	"golang.org/x/sync/errgroup"
)

// Phase names used in logs and BenchmarkError context.
const (
	PhaseWarmup      = "warmup"
	PhaseMeasurement = "measurement"
)

// blackhole keeps benchmark results reachable so the work producing them
// cannot be optimized away.
var blackhole struct {
	mu sync.Mutex
	v  any
}

func consume(v any) {
	blackhole.mu.Lock()
	blackhole.v = v
	blackhole.mu.Unlock()
}

// runIteration times one iteration on the calling goroutine.
//
// With budget == 0 the iteration is exactly batchSize invocations. Otherwise
// batches run until budget elapses; the deadline is polled once per batch
// through the cached clock so the loop never calls time.Now.
//
// A panic in fn is recovered and returned as an error.
func runIteration(fn benchFunc, fixture any, batchSize int, budget time.Duration) (ops int64, elapsed time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errPanic(r)
		}
	}()

	var last any
	start := time.Now()
	if budget <= 0 {
		for i := 0; i < batchSize; i++ {
			v, ferr := fn(fixture)
			if ferr != nil {
				return ops, time.Since(start), ferr
			}
			last = v
			ops++
		}
	} else {
		deadline := timecache.CachedTimeNano() + budget.Nanoseconds()
		for {
			for i := 0; i < batchSize; i++ {
				v, ferr := fn(fixture)
				if ferr != nil {
					return ops, time.Since(start), ferr
				}
				last = v
			}
			ops += int64(batchSize)
			if timecache.CachedTimeNano() >= deadline {
				break
			}
		}
	}
	elapsed = time.Since(start)
	consume(last)
	return ops, elapsed, nil
}

// phaseSpec describes one warmup or measurement phase.
type phaseSpec struct {
	name       string
	iterations int
	budget     time.Duration
	batchSize  int
}

func warmupPhase(cfg Config) phaseSpec {
	return phaseSpec{
		name:       PhaseWarmup,
		iterations: cfg.WarmupIterations,
		budget:     cfg.WarmupTime,
		batchSize:  cfg.BatchSize,
	}
}

func measurementPhase(cfg Config) phaseSpec {
	return phaseSpec{
		name:       PhaseMeasurement,
		iterations: cfg.MeasurementIterations,
		budget:     cfg.MeasurementTime,
		batchSize:  cfg.BatchSize,
	}
}

// runPhase runs every iteration of a phase on len(fixtures) threads.
//
// Description:
//
//	Each iteration starts all threads together and waits for all of them
//	before the next iteration begins, so iterations of different threads
//	overlap and phases never do. Thread t invokes fn on fixtures[t]; with
//	ScopeBinding every element is the same fixture. ctx is checked only
//	between iterations.
//
// Outputs:
//   - []Sample: One sample per (iteration, thread), ordered by iteration.
//   - error: The first invocation failure, or ctx.Err().
func runPhase(ctx context.Context, fn benchFunc, fixtures []any, spec phaseSpec) ([]Sample, error) {
	threads := len(fixtures)
	samples := make([]Sample, 0, spec.iterations*threads)

	for iter := 0; iter < spec.iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}

		batch := make([]Sample, threads)
		var g errgroup.Group
		for t := 0; t < threads; t++ {
			t := t
			g.Go(func() error {
				ops, elapsed, err := runIteration(fn, fixtures[t], spec.batchSize, spec.budget)
				if err != nil {
					return err
				}
				batch[t] = Sample{Thread: t, Iteration: iter, Ops: ops, Elapsed: elapsed}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return samples, err
		}
		samples = append(samples, batch...)
	}
	return samples, nil
}
