// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package suites

import (
	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// bodyStyles has at most one style set.
type bodyStyles struct {
	suv    *string
	sedan  *string
	estate *string
}

func newBodyStyles(harness.Binding) (*bodyStyles, error) {
	estate := "V60"
	return &bodyStyles{estate: &estate}, nil
}

func xor(bs ...bool) bool {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n == 1
}

func countTrue(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func (c *bodyStyles) xorSlice() any {
	return xor([]bool{c.sedan != nil, c.suv != nil, c.estate != nil}...)
}

func (c *bodyStyles) countLoop() any {
	n := 0
	for _, p := range [...]*string{c.sedan, c.suv, c.estate} {
		if p != nil {
			n++
		}
	}
	return n == 1
}

func (c *bodyStyles) count() any {
	n := 0
	if c.sedan != nil {
		n++
	}
	if c.suv != nil {
		n++
	}
	if c.estate != nil {
		n++
	}
	return n == 1
}

func (c *bodyStyles) logicalXor() any {
	a, b, d := c.sedan != nil, c.suv != nil, c.estate != nil
	return (a != b != d) && !(a && b && d)
}

func (c *bodyStyles) countTrue() any {
	return countTrue(c.sedan != nil, c.suv != nil, c.estate != nil) == 1
}

// OnlyOneNotNull compares ways to check that exactly one of three optional
// fields is set.
func OnlyOneNotNull() *harness.Suite {
	return harness.NewSuite[*bodyStyles]("OnlyOneNotNull").
		Setup(newBodyStyles).
		Benchmark("xorSlice", (*bodyStyles).xorSlice).
		Benchmark("countLoop", (*bodyStyles).countLoop).
		Benchmark("count", (*bodyStyles).count).
		Benchmark("logicalXor", (*bodyStyles).logicalXor).
		Benchmark("countTrue", (*bodyStyles).countTrue).
		MustBuild()
}
