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
	"fmt"
	"strings"
)

// FixtureScope decides how many fixtures a binding gets.
type FixtureScope string

const (
	// ScopeBinding builds one fixture per binding and fork, shared by all threads.
	ScopeBinding FixtureScope = "binding"

	// ScopeThread builds one fixture per thread.
	ScopeThread FixtureScope = "thread"
)

// benchFunc is the type-erased form every benchmark function is stored as.
type benchFunc func(fixture any) (any, error)

// Benchmark is one candidate implementation inside a suite.
type Benchmark struct {
	Name string
	fn   benchFunc
}

// Suite is an immutable, validated group of benchmark functions.
//
// Description:
//
//	A Suite owns one setup routine, an optional teardown, its enumerated
//	parameters, the default Config declared by its author, and the ordered
//	list of benchmark functions. Suites are built with NewSuite and Build.
//
// Thread Safety: Safe for concurrent use after Build.
type Suite struct {
	name       string
	params     []Param
	setup      func(Binding) (any, error)
	teardown   func(any) error
	benchmarks []Benchmark
	config     Config
	scope      FixtureScope
}

// Name returns the suite name.
func (s *Suite) Name() string { return s.name }

// Params returns a copy of the declared parameters.
func (s *Suite) Params() []Param {
	out := make([]Param, len(s.params))
	for i, p := range s.params {
		out[i] = Param{Name: p.Name, Values: append([]string(nil), p.Values...)}
	}
	return out
}

// Config returns the suite's declared configuration.
func (s *Suite) Config() Config { return s.config }

// Scope returns the fixture scope.
func (s *Suite) Scope() FixtureScope { return s.scope }

// Benchmarks returns the function names in declaration order.
func (s *Suite) Benchmarks() []string {
	names := make([]string, len(s.benchmarks))
	for i, b := range s.benchmarks {
		names[i] = b.Name
	}
	return names
}

// Bindings returns the full parameter cross product.
func (s *Suite) Bindings() []Binding {
	return crossProduct(s.params)
}

// FullName returns "<suite>.<function>".
func (s *Suite) FullName(function string) string {
	return s.name + "." + function
}

func (s *Suite) benchmark(name string) (Benchmark, bool) {
	for _, b := range s.benchmarks {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

// -----------------------------------------------------------------------------
// Builder
// -----------------------------------------------------------------------------

// Builder declares a Suite whose fixture has type F.
//
// Description:
//
//	Builder methods record the declaration and never fail; problems are
//	collected and reported together by Build as a configuration error.
//
// Thread Safety: Not safe for concurrent use.
type Builder[F any] struct {
	suite    *Suite
	setup    func(Binding) (F, error)
	teardown func(F) error
	problems []string
}

// NewSuite starts the declaration of a suite named name.
func NewSuite[F any](name string) *Builder[F] {
	return &Builder[F]{
		suite: &Suite{
			name:   name,
			config: DefaultConfig(),
			scope:  ScopeBinding,
		},
	}
}

// Param adds an enumerated parameter.
func (b *Builder[F]) Param(p Param) *Builder[F] {
	b.suite.params = append(b.suite.params, p)
	return b
}

// Setup sets the fixture constructor. It runs once per binding and fork
// (or once per thread under ScopeThread) before any timed invocation.
func (b *Builder[F]) Setup(fn func(Binding) (F, error)) *Builder[F] {
	b.setup = fn
	return b
}

// Teardown sets an optional callback run after all functions of a binding.
func (b *Builder[F]) Teardown(fn func(F) error) *Builder[F] {
	b.teardown = fn
	return b
}

// Scope sets the fixture scope.
func (b *Builder[F]) Scope(scope FixtureScope) *Builder[F] {
	b.suite.scope = scope
	return b
}

// Configure edits the suite's declared configuration.
//
// Example:
//
//	Configure(func(c *harness.Config) { c.Threads = 4; c.Forks = 2 })
func (b *Builder[F]) Configure(fn func(*Config)) *Builder[F] {
	if fn != nil {
		fn(&b.suite.config)
	}
	return b
}

// Benchmark adds a function whose result is consumed by the harness.
func (b *Builder[F]) Benchmark(name string, fn func(F) any) *Builder[F] {
	if fn == nil {
		b.problems = append(b.problems, fmt.Sprintf("benchmark %q has nil function", name))
		return b
	}
	return b.add(name, func(fx any) (any, error) {
		return fn(fx.(F)), nil
	})
}

// BenchmarkE adds a function that can report failure through its error.
func (b *Builder[F]) BenchmarkE(name string, fn func(F) (any, error)) *Builder[F] {
	if fn == nil {
		b.problems = append(b.problems, fmt.Sprintf("benchmark %q has nil function", name))
		return b
	}
	return b.add(name, func(fx any) (any, error) {
		return fn(fx.(F))
	})
}

func (b *Builder[F]) add(name string, fn benchFunc) *Builder[F] {
	b.suite.benchmarks = append(b.suite.benchmarks, Benchmark{Name: name, fn: fn})
	return b
}

// Build validates the declaration and returns the Suite.
//
// Outputs:
//   - *Suite: The validated suite.
//   - error: A configuration error listing every problem found.
func (b *Builder[F]) Build() (*Suite, error) {
	s := b.suite
	problems := append([]string(nil), b.problems...)

	if strings.TrimSpace(s.name) == "" || strings.ContainsAny(s.name, ". \t") {
		problems = append(problems, "suite name must be non-empty and contain no dots or spaces")
	}
	if b.setup == nil {
		problems = append(problems, "setup is required")
	}
	if len(s.benchmarks) == 0 {
		problems = append(problems, "suite declares no benchmarks")
	}
	if s.scope != ScopeBinding && s.scope != ScopeThread {
		problems = append(problems, fmt.Sprintf("unknown fixture scope %q", s.scope))
	}

	seenParams := make(map[string]struct{})
	for _, p := range s.params {
		if err := p.validate(); err != nil {
			problems = append(problems, err.Error())
		}
		if _, dup := seenParams[p.Name]; dup {
			problems = append(problems, fmt.Sprintf("parameter %q declared twice", p.Name))
		}
		seenParams[p.Name] = struct{}{}
	}

	seenFuncs := make(map[string]struct{})
	for _, bm := range s.benchmarks {
		if strings.TrimSpace(bm.Name) == "" {
			problems = append(problems, "benchmark name is empty")
		}
		if _, dup := seenFuncs[bm.Name]; dup {
			problems = append(problems, fmt.Sprintf("benchmark %q declared twice", bm.Name))
		}
		seenFuncs[bm.Name] = struct{}{}
	}

	if err := s.config.Validate(); err != nil {
		problems = append(problems, Describe(err))
	}

	if len(problems) > 0 {
		return nil, NewErrInvalidSuite(s.name, strings.Join(problems, "; "))
	}

	setup := b.setup
	s.setup = func(binding Binding) (any, error) {
		return setup(binding)
	}
	if b.teardown != nil {
		teardown := b.teardown
		s.teardown = func(fx any) error {
			return teardown(fx.(F))
		}
	}
	return s, nil
}

// MustBuild builds the suite and panics on error.
//
// Should only be used for package-level suite declarations.
func (b *Builder[F]) MustBuild() *Suite {
	s, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("harness: failed to build suite %q: %v", b.suite.name, err))
	}
	return s
}
