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
	"regexp"
	"sort"
	"sync"
)

// Registry manages registered benchmark suites.
//
// Description:
//
//	Registry is the single source of truth for suites the runner can
//	execute. Suites are registered explicitly, usually from an init-time
//	Register function in the package that declares them.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	suites map[string]*Suite
	order  []string
}

// Selection is one suite with the functions chosen by a filter, in
// declaration order.
type Selection struct {
	Suite     *Suite
	Functions []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		suites: make(map[string]*Suite),
	}
}

// Register adds a suite to the registry.
//
// Outputs:
//   - error: A configuration error if suite is nil or the name is taken.
func (r *Registry) Register(suite *Suite) error {
	if suite == nil {
		return NewErrInvalidSuite("", "suite is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.suites[suite.name]; exists {
		return NewErrDuplicateSuite(suite.name)
	}
	r.suites[suite.name] = suite
	r.order = append(r.order, suite.name)
	return nil
}

// MustRegister registers a suite and panics on error.
func (r *Registry) MustRegister(suite *Suite) {
	if err := r.Register(suite); err != nil {
		panic(err)
	}
}

// Get returns the suite registered under name.
func (r *Registry) Get(name string) (*Suite, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.suites[name]
	return s, ok
}

// List returns the registered suite names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Count returns the number of registered suites.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.suites)
}

// Select resolves filter patterns into suites and functions.
//
// Description:
//
//	Each pattern is a regular expression matched (unanchored) against
//	"<suite>.<function>". A function is selected when any pattern matches.
//	An empty pattern list selects every registered function. Suites are
//	returned sorted by name.
//
// Inputs:
//   - patterns: Regular expressions. May be empty.
//
// Outputs:
//   - []Selection: Matched suites with their matched functions.
//   - error: A configuration error for an invalid pattern or zero matches.
func (r *Registry) Select(patterns []string) ([]Selection, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, NewErrInvalidFilter(p, err)
		}
		res = append(res, re)
	}

	var selections []Selection
	for _, name := range r.List() {
		suite, _ := r.Get(name)
		var funcs []string
		for _, fn := range suite.Benchmarks() {
			if matchAny(res, suite.FullName(fn)) {
				funcs = append(funcs, fn)
			}
		}
		if len(funcs) > 0 {
			selections = append(selections, Selection{Suite: suite, Functions: funcs})
		}
	}

	if len(selections) == 0 {
		return nil, NewErrNoMatch(patterns)
	}
	return selections, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	if len(res) == 0 {
		return true
	}
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
