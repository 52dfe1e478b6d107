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
	goerrors "errors"
	"math"
	"sort"
	"strconv"
	"time"
)

// ErrNoScores indicates statistics were requested for an empty score set.
var ErrNoScores = goerrors.New("no scores to reduce")

// ConfidenceLevel is the level used for score errors.
const ConfidenceLevel = 0.99

// PercentileLevels are the percentiles reported for every entry.
var PercentileLevels = []float64{0, 50, 90, 95, 99, 99.9, 100}

// PercentileKey formats a percentile level as a map key, e.g. "99.9" or "50.0".
func PercentileKey(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}

// ScoreStats summarizes the per-iteration scores of one entry.
type ScoreStats struct {
	N      int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64

	// Error is the half-width of the confidence interval. NaN when N < 2.
	Error float64
	Lower float64
	Upper float64

	Percentiles map[string]float64
}

// ComputeScoreStats reduces scores to summary statistics.
//
// Description:
//
//	Computes mean, min, max, sample standard deviation, the percentiles in
//	PercentileLevels (linear interpolation), and a ConfidenceLevel interval
//	around the mean. With a single score the error and bounds are NaN.
//
// Inputs:
//   - scores: Per-iteration scores. Must not be empty.
//
// Outputs:
//   - ScoreStats: The summary.
//   - error: ErrNoScores if scores is empty.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func ComputeScoreStats(scores []float64) (ScoreStats, error) {
	if len(scores) == 0 {
		return ScoreStats{}, ErrNoScores
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	st := ScoreStats{
		N:           len(scores),
		Mean:        mean(scores),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		Percentiles: make(map[string]float64, len(PercentileLevels)),
	}
	for _, p := range PercentileLevels {
		st.Percentiles[PercentileKey(p)] = percentile(sorted, p/100)
	}

	if st.N < 2 {
		st.Error = math.NaN()
		st.Lower = math.NaN()
		st.Upper = math.NaN()
		return st, nil
	}

	st.StdDev = math.Sqrt(sampleVariance(scores, st.Mean))
	st.Error = ConfidenceHalfWidth(scores, ConfidenceLevel)
	st.Lower = st.Mean - st.Error
	st.Upper = st.Mean + st.Error
	return st, nil
}

// ConfidenceHalfWidth returns the half-width of the confidence interval for
// the mean of samples. Returns NaN for fewer than 2 samples.
//
// Uses Student-t critical values below 30 samples and z-scores above.
// Supported levels: 0.90, 0.95, 0.99.
func ConfidenceHalfWidth(samples []float64, confidenceLevel float64) float64 {
	n := len(samples)
	if n < 2 {
		return math.NaN()
	}

	m := mean(samples)
	stdErr := math.Sqrt(sampleVariance(samples, m) / float64(n))

	var criticalValue float64
	if n >= 30 {
		criticalValue = zCriticalValue(confidenceLevel)
	} else {
		criticalValue = tCriticalValue(n-1, confidenceLevel)
	}
	return criticalValue * stdErr
}

// percentile calculates the p-th percentile of sorted values using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := p * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleVariance uses Bessel's correction (n-1).
func sampleVariance(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - m
		sumSquaredDiff += diff * diff
	}
	return sumSquaredDiff / float64(len(values)-1)
}

func zCriticalValue(confidenceLevel float64) float64 {
	switch {
	case confidenceLevel >= 0.99:
		return 2.576
	case confidenceLevel >= 0.95:
		return 1.96
	default:
		return 1.645
	}
}

// tCriticalValue returns the two-tailed t-distribution critical value.
//
// Inputs:
//   - df: Degrees of freedom (n-1 for sample CI).
//   - confidenceLevel: Confidence level (0.90, 0.95, or 0.99).
func tCriticalValue(df int, confidenceLevel float64) float64 {
	t90 := []float64{6.314, 2.920, 2.353, 2.132, 2.015, 1.943, 1.895, 1.860, 1.833, 1.812,
		1.796, 1.782, 1.771, 1.761, 1.753, 1.746, 1.740, 1.734, 1.729, 1.725,
		1.721, 1.717, 1.714, 1.711, 1.708, 1.706, 1.703, 1.701, 1.699, 1.697}
	t95 := []float64{12.706, 4.303, 3.182, 2.776, 2.571, 2.447, 2.365, 2.306, 2.262, 2.228,
		2.201, 2.179, 2.160, 2.145, 2.131, 2.120, 2.110, 2.101, 2.093, 2.086,
		2.080, 2.074, 2.069, 2.064, 2.060, 2.056, 2.052, 2.048, 2.045, 2.042}
	t99 := []float64{63.657, 9.925, 5.841, 4.604, 4.032, 3.707, 3.499, 3.355, 3.250, 3.169,
		3.106, 3.055, 3.012, 2.977, 2.947, 2.921, 2.898, 2.878, 2.861, 2.845,
		2.831, 2.819, 2.807, 2.797, 2.787, 2.779, 2.771, 2.763, 2.756, 2.750}

	var table []float64
	switch {
	case confidenceLevel >= 0.99:
		table = t99
	case confidenceLevel >= 0.95:
		table = t95
	default:
		table = t90
	}

	if df < 1 {
		df = 1
	}
	if df > len(table) {
		return zCriticalValue(confidenceLevel)
	}
	return table[df-1]
}

// -----------------------------------------------------------------------------
// Mode reductions
// -----------------------------------------------------------------------------

// IterationScore reduces the per-thread samples of one iteration to a score.
//
// Description:
//
//	ModeThroughput sums ops/elapsed over threads, so the score is the
//	aggregate rate of all invokers. ModeAverageTime averages elapsed/ops
//	over threads. Both are expressed in unit. Samples with zero ops are
//	ignored by the average.
//
// Example:
//
//	// one thread, 2000 ops in 1ms
//	IterationScore(ModeThroughput, Milliseconds, samples) // 2000 ops/ms
func IterationScore(mode Mode, unit TimeUnit, samples []Sample) float64 {
	unitNanos := float64(unit.Duration())
	switch mode {
	case ModeAverageTime:
		var sum float64
		var n int
		for _, s := range samples {
			if s.Ops == 0 {
				continue
			}
			sum += float64(clampElapsed(s.Elapsed)) / unitNanos / float64(s.Ops)
			n++
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	default:
		var total float64
		for _, s := range samples {
			total += float64(s.Ops) / (float64(clampElapsed(s.Elapsed)) / unitNanos)
		}
		return total
	}
}

// clampElapsed keeps a sub-resolution timing from dividing by zero.
func clampElapsed(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Nanosecond
	}
	return d
}

// iterationScores groups samples by iteration and reduces each group.
// The result is ordered by iteration.
func iterationScores(mode Mode, unit TimeUnit, samples []Sample) []float64 {
	byIteration := make(map[int][]Sample)
	maxIter := -1
	for _, s := range samples {
		byIteration[s.Iteration] = append(byIteration[s.Iteration], s)
		if s.Iteration > maxIter {
			maxIter = s.Iteration
		}
	}
	scores := make([]float64, 0, len(byIteration))
	for i := 0; i <= maxIter; i++ {
		group, ok := byIteration[i]
		if !ok {
			continue
		}
		scores = append(scores, IterationScore(mode, unit, group))
	}
	return scores
}
