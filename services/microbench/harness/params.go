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
	"slices"
	"strings"
)

// Param is one suite parameter with its enumerated values.
type Param struct {
	Name   string
	Values []string
}

// EnumParam declares a parameter from a typed enumeration.
//
// Example:
//
//	type testCase string
//	const (valid testCase = "VALID"; invalid testCase = "INVALID")
//	p := harness.EnumParam("testCase", valid, invalid)
func EnumParam[T ~string](name string, values ...T) Param {
	p := Param{Name: name, Values: make([]string, len(values))}
	for i, v := range values {
		p.Values[i] = string(v)
	}
	return p
}

// validate checks the declaration of one parameter.
func (p Param) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("parameter name is empty")
	}
	if len(p.Values) == 0 {
		return fmt.Errorf("parameter %q has no values", p.Name)
	}
	seen := make(map[string]struct{}, len(p.Values))
	for _, v := range p.Values {
		if _, dup := seen[v]; dup {
			return fmt.Errorf("parameter %q lists value %q twice", p.Name, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// ParamValue is one assignment inside a Binding.
type ParamValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Binding is one concrete assignment of values to a suite's parameters, in
// declaration order.
type Binding []ParamValue

// Get returns the value bound to name.
func (b Binding) Get(name string) (string, bool) {
	for _, pv := range b {
		if pv.Name == name {
			return pv.Value, true
		}
	}
	return "", false
}

// Map returns the binding as a map. Nil for an empty binding.
func (b Binding) Map() map[string]string {
	if len(b) == 0 {
		return nil
	}
	m := make(map[string]string, len(b))
	for _, pv := range b {
		m[pv.Name] = pv.Value
	}
	return m
}

// String renders the binding as "a=1,b=2". Empty bindings render as "".
func (b Binding) String() string {
	parts := make([]string, len(b))
	for i, pv := range b {
		parts[i] = pv.Name + "=" + pv.Value
	}
	return strings.Join(parts, ",")
}

// Enum reads a typed parameter value from a binding.
//
// Outputs:
//   - T: The bound value.
//   - error: A configuration error naming the parameter and the binding if
//     the binding has no such parameter. Returned from a setup callback it
//     becomes a setup error, which adds the suite.
func Enum[T ~string](b Binding, name string) (T, error) {
	v, ok := b.Get(name)
	if !ok {
		return "", NewErrMissingParam(name, b)
	}
	return T(v), nil
}

// crossProduct expands params into every binding. The first parameter varies
// slowest. No params yields a single empty binding.
func crossProduct(params []Param) []Binding {
	bindings := []Binding{{}}
	for _, p := range params {
		next := make([]Binding, 0, len(bindings)*len(p.Values))
		for _, b := range bindings {
			for _, v := range p.Values {
				nb := make(Binding, len(b), len(b)+1)
				copy(nb, b)
				next = append(next, append(nb, ParamValue{Name: p.Name, Value: v}))
			}
		}
		bindings = next
	}
	return bindings
}

// restrictParams narrows declared params to the requested values. Requested
// names the suite does not declare are skipped here so one filter can serve
// several suites; checkParamNames rejects names no selected suite declares.
// Requested values outside the enumeration are configuration errors, and
// repeated values are kept once.
func restrictParams(suite string, params []Param, requested map[string][]string) ([]Param, error) {
	if len(requested) == 0 {
		return params, nil
	}
	out := make([]Param, len(params))
	for i, p := range params {
		values, ok := requested[p.Name]
		if !ok || len(values) == 0 {
			out[i] = p
			continue
		}
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if !slices.Contains(p.Values, v) {
				return nil, NewErrInvalidParam(suite, p.Name, v, p.Values)
			}
			if !slices.Contains(kept, v) {
				kept = append(kept, v)
			}
		}
		out[i] = Param{Name: p.Name, Values: kept}
	}
	return out, nil
}

// checkParamNames returns a configuration error for the first requested
// name, in sorted order, that none of the declared param lists contains.
func checkParamNames(requested map[string][]string, declared ...[]Param) error {
	names := make([]string, 0, len(requested))
	for name := range requested {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		found := false
		for _, params := range declared {
			if slices.ContainsFunc(params, func(p Param) bool { return p.Name == name }) {
				found = true
				break
			}
		}
		if !found {
			return NewErrUnknownParam(name)
		}
	}
	return nil
}
