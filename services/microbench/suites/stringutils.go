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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

type stringCase string

const (
	stringCaseString stringCase = "STRING"
	stringCaseBlank  stringCase = "BLANK"
	stringCaseEmpty  stringCase = "EMPTY"
	stringCaseNull   stringCase = "NULL"
)

// blankWidth is the length of the all-space input.
const blankWidth = 128

type stringFixture struct {
	// s is nil for the NULL case.
	s *string
}

func newStringFixture(b harness.Binding) (*stringFixture, error) {
	tc, err := harness.Enum[stringCase](b, "testCase")
	if err != nil {
		return nil, err
	}
	var s string
	switch tc {
	case stringCaseString:
		s = uuid.NewString()
	case stringCaseBlank:
		s = strings.Repeat(" ", blankWidth)
	case stringCaseEmpty:
		s = ""
	case stringCaseNull:
		return &stringFixture{}, nil
	default:
		return nil, unknownCase("testCase", string(tc))
	}
	return &stringFixture{s: &s}, nil
}

// isEmptyString reports a present, zero-length string. Nil is not empty.
func (f *stringFixture) isEmptyString() any {
	return f.s != nil && *f.s == ""
}

// isEmptyLen treats nil as empty.
func (f *stringFixture) isEmptyLen() any {
	return f.s == nil || len(*f.s) == 0
}

func (f *stringFixture) isBlankTrimSpace() any {
	return f.s != nil && strings.TrimSpace(*f.s) == ""
}

// isBlankFieldsFunc treats nil as blank.
func (f *stringFixture) isBlankFieldsFunc() any {
	return f.s == nil || len(strings.FieldsFunc(*f.s, unicode.IsSpace)) == 0
}

// isBlankLoop treats nil as blank and stops at the first non-space rune.
func (f *stringFixture) isBlankLoop() any {
	if f.s == nil {
		return true
	}
	s := *f.s
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c != ' ' && (c < '\t' || c > '\r') {
				return false
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			return false
		}
		i += size
	}
	return true
}

// StringUtils compares emptiness and blankness checks on an optional string.
func StringUtils() *harness.Suite {
	return harness.NewSuite[*stringFixture]("StringUtils").
		Param(harness.EnumParam("testCase", stringCaseString, stringCaseBlank, stringCaseEmpty, stringCaseNull)).
		Setup(newStringFixture).
		Benchmark("isEmpty_String", (*stringFixture).isEmptyString).
		Benchmark("isEmpty_Len", (*stringFixture).isEmptyLen).
		Benchmark("isBlank_TrimSpace", (*stringFixture).isBlankTrimSpace).
		Benchmark("isBlank_FieldsFunc", (*stringFixture).isBlankFieldsFunc).
		Benchmark("isBlank_Loop", (*stringFixture).isBlankLoop).
		MustBuild()
}
