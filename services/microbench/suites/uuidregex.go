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
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"

	"github.com/AleutianAI/microbench/services/microbench/harness"
)

// uuidLength is the length of the canonical 8-4-4-4-12 form.
const uuidLength = 36

// UUID patterns, from the one found in a real application (1) through
// successive tuning steps. Pattern 5 accepts upper case; pattern 6 also
// checks the version and variant nibbles.
const (
	uuidPattern1 = `(:?[a-f0-9]){8,8}-(:?[a-f0-9]){4,4}-(:?[a-f0-9]){4,4}-(:?[a-f0-9]){4,4}-(:?[a-f0-9]){12,12}`
	uuidPattern2 = `(:?[a-f0-9]){8}-(:?[a-f0-9]){4}-(:?[a-f0-9]){4}-(:?[a-f0-9]){4}-(:?[a-f0-9]){12}`
	uuidPattern3 = `[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`
	uuidPattern4 = `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	uuidPattern5 = `(?i)^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	uuidPattern6 = `(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`
)

var (
	uuidRE1 = regexp.MustCompile(uuidPattern1)
	uuidRE2 = regexp.MustCompile(uuidPattern2)
	uuidRE3 = regexp.MustCompile(uuidPattern3)
	uuidRE4 = regexp.MustCompile(uuidPattern4)
	uuidRE5 = regexp.MustCompile(uuidPattern5)
	uuidRE6 = regexp.MustCompile(uuidPattern6)

	// The backtracking engine, for comparison with RE2.
	uuidRE2x1 = regexp2.MustCompile(uuidPattern1, regexp2.None)
	uuidRE2x4 = regexp2.MustCompile(uuidPattern4, regexp2.None)
)

// matchesWhole reports whether re matches all of s, not just a substring.
func matchesWhole(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// matchesWhole2 is matchesWhole for the backtracking engine. Match errors
// (timeouts) count as no match.
func matchesWhole2(re *regexp2.Regexp, s string) bool {
	m, err := re.FindStringMatch(s)
	return err == nil && m != nil && m.Index == 0 && m.Length == len(s)
}

// =============================================================================
// UuidRegexValidation
// =============================================================================

type uuidCase string

const (
	uuidCaseValid        uuidCase = "VALID"
	uuidCaseInvalid      uuidCase = "INVALID"
	uuidCaseInvalidLarge uuidCase = "INVALID_LARGE"
)

// largeInputUUIDs is how many UUIDs are concatenated for INVALID_LARGE.
const largeInputUUIDs = 99

// The inputs are generated once per process so every binding of a fork sees
// the same strings.
var uuidInputs = sync.OnceValue(func() map[uuidCase]string {
	var large strings.Builder
	for range largeInputUUIDs {
		large.WriteString(uuid.NewString())
	}
	return map[uuidCase]string{
		uuidCaseValid:        uuid.NewString(),
		uuidCaseInvalid:      strings.ReplaceAll(uuid.NewString(), "-", "::"),
		uuidCaseInvalidLarge: large.String(),
	}
})

type uuidFixture struct {
	input string
}

func newUUIDFixture(b harness.Binding) (*uuidFixture, error) {
	tc, err := harness.Enum[uuidCase](b, "testCase")
	if err != nil {
		return nil, err
	}
	input, ok := uuidInputs()[tc]
	if !ok {
		return nil, unknownCase("testCase", string(tc))
	}
	return &uuidFixture{input: input}, nil
}

// measureUUIDParse returns the parsed UUID, or the input when it does not parse.
func (f *uuidFixture) measureUUIDParse() any {
	id, err := uuid.Parse(f.input)
	if err != nil {
		return f.input
	}
	return id
}

func (f *uuidFixture) measureStrfmtIsUUID() any { return strfmt.IsUUID(f.input) }

func (f *uuidFixture) measurePattern1() any { return matchesWhole(uuidRE1, f.input) }
func (f *uuidFixture) measurePattern2() any { return matchesWhole(uuidRE2, f.input) }
func (f *uuidFixture) measurePattern3() any { return matchesWhole(uuidRE3, f.input) }
func (f *uuidFixture) measurePattern4() any { return uuidRE4.MatchString(f.input) }
func (f *uuidFixture) measurePattern5() any { return uuidRE5.MatchString(f.input) }
func (f *uuidFixture) measurePattern6() any { return uuidRE6.MatchString(f.input) }

func (f *uuidFixture) measurePattern4WithLengthCheck() any {
	return len(f.input) == uuidLength && uuidRE4.MatchString(f.input)
}

func (f *uuidFixture) measurePattern4WithEmptyCheck() any {
	return f.input != "" && uuidRE4.MatchString(f.input)
}

func (f *uuidFixture) measureRegexp2Pattern1() any { return matchesWhole2(uuidRE2x1, f.input) }
func (f *uuidFixture) measureRegexp2Pattern4() any { return matchesWhole2(uuidRE2x4, f.input) }

// UuidRegexValidation compares UUID validation approaches on a valid UUID,
// a UUID with broken separators, and a long run of concatenated UUIDs.
func UuidRegexValidation() *harness.Suite {
	return harness.NewSuite[*uuidFixture]("UuidRegexValidation").
		Param(harness.EnumParam("testCase", uuidCaseValid, uuidCaseInvalid, uuidCaseInvalidLarge)).
		Setup(newUUIDFixture).
		Benchmark("measureUUIDParse", (*uuidFixture).measureUUIDParse).
		Benchmark("measureStrfmtIsUUID", (*uuidFixture).measureStrfmtIsUUID).
		Benchmark("measurePattern1", (*uuidFixture).measurePattern1).
		Benchmark("measurePattern2", (*uuidFixture).measurePattern2).
		Benchmark("measurePattern3", (*uuidFixture).measurePattern3).
		Benchmark("measurePattern4", (*uuidFixture).measurePattern4).
		Benchmark("measurePattern5", (*uuidFixture).measurePattern5).
		Benchmark("measurePattern6", (*uuidFixture).measurePattern6).
		Benchmark("measurePattern4WithLengthCheck", (*uuidFixture).measurePattern4WithLengthCheck).
		Benchmark("measurePattern4WithEmptyCheck", (*uuidFixture).measurePattern4WithEmptyCheck).
		Benchmark("measureRegexp2Pattern1", (*uuidFixture).measureRegexp2Pattern1).
		Benchmark("measureRegexp2Pattern4", (*uuidFixture).measureRegexp2Pattern4).
		MustBuild()
}

// =============================================================================
// RegexValidationPregenerate
// =============================================================================

// pregenerated is the number of valid and of invalid UUIDs per fixture.
const pregenerated = 10_000

// pregenFixture draws a random pre-generated UUID on every invocation so the
// regex engine never sees the same input twice in a row.
type pregenFixture struct {
	valid   []string
	invalid []string
	rng     *rand.Rand
}

func newPregenFixture(harness.Binding) (*pregenFixture, error) {
	f := &pregenFixture{
		valid:   make([]string, pregenerated),
		invalid: make([]string, pregenerated),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for i := range pregenerated {
		f.valid[i] = uuid.NewString()
		// Missing dashes are the most common way these get broken.
		f.invalid[i] = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return f, nil
}

func (f *pregenFixture) nextValid() string   { return f.valid[f.rng.IntN(pregenerated)] }
func (f *pregenFixture) nextInvalid() string { return f.invalid[f.rng.IntN(pregenerated)] }

func (f *pregenFixture) baseLine() any { return f.nextValid() }

func (f *pregenFixture) measurePattern1() any { return matchesWhole(uuidRE1, f.nextValid()) }
func (f *pregenFixture) measurePattern2() any { return matchesWhole(uuidRE2, f.nextValid()) }
func (f *pregenFixture) measurePattern3() any { return matchesWhole(uuidRE3, f.nextValid()) }
func (f *pregenFixture) measurePattern4() any { return uuidRE4.MatchString(f.nextValid()) }
func (f *pregenFixture) measurePattern5() any { return uuidRE5.MatchString(f.nextValid()) }
func (f *pregenFixture) measurePattern6() any { return uuidRE6.MatchString(f.nextValid()) }

func (f *pregenFixture) measurePattern4WithLengthCheckValidLength() any {
	v := f.nextValid()
	return len(v) == uuidLength && uuidRE4.MatchString(v)
}

func (f *pregenFixture) measurePattern4WithLengthCheckInvalidLength() any {
	v := f.nextInvalid()
	return len(v) == uuidLength && uuidRE4.MatchString(v)
}

// RegexValidationPregenerate runs the UUID patterns against a pool of
// pre-generated inputs on four threads and two forks.
func RegexValidationPregenerate() *harness.Suite {
	return harness.NewSuite[*pregenFixture]("RegexValidationPregenerate").
		Setup(newPregenFixture).
		Scope(harness.ScopeThread).
		Configure(func(c *harness.Config) {
			c.Threads = 4
			c.Forks = 2
		}).
		Benchmark("baseLine", (*pregenFixture).baseLine).
		Benchmark("measurePattern1", (*pregenFixture).measurePattern1).
		Benchmark("measurePattern2", (*pregenFixture).measurePattern2).
		Benchmark("measurePattern3", (*pregenFixture).measurePattern3).
		Benchmark("measurePattern4", (*pregenFixture).measurePattern4).
		Benchmark("measurePattern5", (*pregenFixture).measurePattern5).
		Benchmark("measurePattern6", (*pregenFixture).measurePattern6).
		Benchmark("measurePattern4WithLengthCheckValidLength", (*pregenFixture).measurePattern4WithLengthCheckValidLength).
		Benchmark("measurePattern4WithLengthCheckInvalidLength", (*pregenFixture).measurePattern4WithLengthCheckInvalidLength).
		MustBuild()
}
