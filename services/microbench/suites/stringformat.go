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
	"bytes"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// employeeFixture holds the parts of an employee identifier.
//
// The random source is per fixture; the suite uses thread scope so
// plusDynamic never contends on it.
type employeeFixture struct {
	corporation    string
	department     string
	employeeNumber int
	rng            *rand.Rand
}

func newEmployeeFixture(harness.Binding) (*employeeFixture, error) {
	return &employeeFixture{
		corporation:    "Corp",
		department:     "Dept",
		employeeNumber: 12345,
		rng:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

func (f *employeeFixture) sprintf() any {
	return fmt.Sprintf("%s-%s-%d", f.corporation, f.department, f.employeeNumber)
}

func (f *employeeFixture) stringsJoin() any {
	return strings.Join([]string{f.corporation, f.department, strconv.Itoa(f.employeeNumber)}, "-")
}

func (f *employeeFixture) stringsBuilder() any {
	var sb strings.Builder
	sb.WriteString(f.corporation)
	sb.WriteByte('-')
	sb.WriteString(f.department)
	sb.WriteByte('-')
	sb.WriteString(strconv.Itoa(f.employeeNumber))
	return sb.String()
}

func (f *employeeFixture) plus() any {
	return f.corporation + "-" + f.department + "-" + strconv.Itoa(f.employeeNumber)
}

func (f *employeeFixture) plusDynamic() any {
	return f.corporation + "-" + f.department + "-" + strconv.Itoa(f.rng.Int())
}

func (f *employeeFixture) bytesBuffer() any {
	var buf bytes.Buffer
	buf.WriteString(f.corporation)
	buf.WriteByte('-')
	buf.WriteString(f.department)
	buf.WriteByte('-')
	buf.WriteString(strconv.Itoa(f.employeeNumber))
	return buf.String()
}

func (f *employeeFixture) appendBytes() any {
	b := make([]byte, 0, 32)
	b = append(b, f.corporation...)
	b = append(b, '-')
	b = append(b, f.department...)
	b = append(b, '-')
	b = strconv.AppendInt(b, int64(f.employeeNumber), 10)
	return string(b)
}

// StringFormatVsJoin compares ways to build "corporation-department-number".
func StringFormatVsJoin() *harness.Suite {
	return harness.NewSuite[*employeeFixture]("StringFormatVsJoin").
		Setup(newEmployeeFixture).
		Scope(harness.ScopeThread).
		Benchmark("sprintf", (*employeeFixture).sprintf).
		Benchmark("stringsJoin", (*employeeFixture).stringsJoin).
		Benchmark("stringsBuilder", (*employeeFixture).stringsBuilder).
		Benchmark("plus", (*employeeFixture).plus).
		Benchmark("plusDynamic", (*employeeFixture).plusDynamic).
		Benchmark("bytesBuffer", (*employeeFixture).bytesBuffer).
		Benchmark("appendBytes", (*employeeFixture).appendBytes).
		MustBuild()
}
