// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package placeholder

// Path is a parsed endpoint path template.
//
// Placeholders are only recognized at the tail of a template and only
// directly after a `/`. The two grammars are mutually exclusive:
//
//   - `.../@name<suffix>` replaces the rightmost named placeholder and
//     nothing else.
//   - `.../$N<suffix>` is applied repeatedly, each time on the remainder
//     to the left of the previous match, so chains like `a/$1/b/$2` are
//     substituted from the tail inwards.
//
// Positional placeholders are never considered once a named one matched.
type Path struct {
	raw   string
	parts []Value
}

// ParsePath parses a path template.
func ParsePath(s string) Path {
	p := Path{raw: s}

	if prefix, name, suffix, ok := cutNamed(s); ok {
		p.parts = appendLiteral(p.parts, prefix)
		p.parts = append(p.parts, NamedRef{Name: name})
		p.parts = appendLiteral(p.parts, suffix)
		return p
	}

	// matches are found right to left, parts are stored left to right
	var tail []Value
	left := s
	for {
		prefix, ref, suffix, ok := cutPositional(left)
		if !ok {
			break
		}
		tail = append(appendLiteral([]Value{ref}, suffix), tail...)
		left = prefix
	}
	p.parts = append(appendLiteral(p.parts, left), tail...)
	return p
}

// String returns the original template.
func (p Path) String() string {
	return p.raw
}

// Parts returns the template split into literals and placeholders
// in left to right order.
func (p Path) Parts() []Value {
	parts := make([]Value, len(p.parts))
	copy(parts, p.parts)
	return parts
}

func appendLiteral(vs []Value, s string) []Value {
	if s == "" {
		return vs
	}
	return append(vs, Literal{Value: s})
}

// cutNamed finds the rightmost `/@name` where name is one or more
// lowercase letters. The prefix keeps its trailing slash.
func cutNamed(s string) (prefix, name, suffix string, ok bool) {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != '@' || s[i-1] != '/' {
			continue
		}
		end := i + 1
		for end < len(s) && isLower(s[end]) {
			end++
		}
		if end == i+1 {
			continue
		}
		return s[:i], s[i+1 : end], s[end:], true
	}
	return "", "", "", false
}

// cutPositional finds the rightmost `/$N`. The prefix keeps its trailing slash.
func cutPositional(s string) (prefix string, ref PositionalRef, suffix string, ok bool) {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != '$' || s[i-1] != '/' {
			continue
		}
		end := i + 1
		for end < len(s) && isDigit(s[end]) {
			end++
		}
		if end == i+1 {
			continue
		}
		return s[:i], PositionalRef{Index: atoi(s[i+1 : end])}, s[end:], true
	}
	return "", PositionalRef{}, "", false
}

// HasPlaceholders reports whether any placeholder was recognized.
func (p Path) HasPlaceholders() bool {
	for _, part := range p.parts {
		if _, ok := part.(Literal); !ok {
			return true
		}
	}
	return false
}
