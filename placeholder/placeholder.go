// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package placeholder implements the template grammar used by endpoint
// paths and body fields.
//
// A template is parsed once into a tagged value: [Literal], [PositionalRef],
// [NamedRef] or [FunctionRef]. Resolution against call arguments and config
// happens elsewhere, see the endpoint package.
package placeholder

import (
	"strconv"
	"strings"
)

// Value is one parsed template.
type Value interface {
	placeholder()
}

// Literal is used verbatim.
type Literal struct {
	Value any
}

func (Literal) placeholder() {}

// PositionalRef refers to a positional call argument.
//
// Index is 1-based, exactly as written in the template. Numeric is set
// when the template used the `$#N` form, which asks for the argument
// to be parsed as an integer.
type PositionalRef struct {
	Index   int
	Numeric bool
}

func (PositionalRef) placeholder() {}

// Offset returns the 0-based argument offset.
func (r PositionalRef) Offset() int {
	return r.Index - 1
}

// NamedRef refers to a config entry, written as `@name`.
type NamedRef struct {
	Name string
}

func (NamedRef) placeholder() {}

// FunctionRef computes its value by handing a positional argument to a
// named function, written as `name($N)` or `name($#N)`.
type FunctionRef struct {
	Name string
	Arg  PositionalRef
}

func (FunctionRef) placeholder() {}

// ParseField parses a body field template.
//
// The forms are tried in order: `name($N)`, `$N`, `@name` and finally
// anything else as a [Literal]. Non-string values are always literals.
func ParseField(v any) Value {
	s, ok := v.(string)
	if !ok {
		return Literal{Value: v}
	}
	if ref, ok := parseFunctionRef(s); ok {
		return ref
	}
	if ref, ok := parsePositionalRef(strings.TrimRight(s, whitespace)); ok {
		return ref
	}
	if ref, ok := parseFieldNamedRef(s); ok {
		return ref
	}
	return Literal{Value: s}
}

const whitespace = " \t\n\v\f\r"

func parseFunctionRef(s string) (FunctionRef, bool) {
	s = strings.TrimRight(s, whitespace)

	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return FunctionRef{}, false
	}

	name := s[:open]
	if len(name) < 2 || !isLower(name[0]) {
		return FunctionRef{}, false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isLower(c) && !isDigit(c) && c != '_' {
			return FunctionRef{}, false
		}
	}

	arg, ok := parsePositionalRef(s[open+1 : len(s)-1])
	if !ok {
		return FunctionRef{}, false
	}
	return FunctionRef{Name: name, Arg: arg}, true
}

// parsePositionalRef parses exactly `$N` or `$#N`.
func parsePositionalRef(s string) (PositionalRef, bool) {
	if !strings.HasPrefix(s, "$") {
		return PositionalRef{}, false
	}
	s = s[1:]

	numeric := strings.HasPrefix(s, "#")
	if numeric {
		s = s[1:]
	}
	if len(s) == 0 || !allDigits(s) {
		return PositionalRef{}, false
	}
	return PositionalRef{Index: atoi(s), Numeric: numeric}, true
}

func parseFieldNamedRef(s string) (NamedRef, bool) {
	name, ok := strings.CutPrefix(s, "@")
	if !ok || len(name) < 2 || !isLower(name[0]) {
		return NamedRef{}, false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isLower(c) && !isUpper(c) && !isDigit(c) && c != '_' {
			return NamedRef{}, false
		}
	}
	return NamedRef{Name: name}, true
}

// atoi never fails on a digit string; indexes too large to represent
// are mapped to -1 so they always fall out of range.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isLower(c byte) bool { return 'a' <= c && c <= 'z' }
func isUpper(c byte) bool { return 'A' <= c && c <= 'Z' }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }
