// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package endpoint compiles a schema document into endpoint descriptors
// and resolves their path and body templates against call arguments.
package endpoint

import (
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/z5labs/apimeta/placeholder"
	"github.com/z5labs/apimeta/schema"
)

// Field is a single body field of a [Descriptor].
type Field struct {
	// Key is the compound key as written in the schema, e.g. `count:optional`.
	Key string

	// Name is the body member the resolved value is written to.
	Name string

	Optional bool
	Template placeholder.Value
}

func parseField(key string, tmpl any) Field {
	parts := strings.Split(key, ":")
	return Field{
		Key:      key,
		Name:     parts[0],
		Optional: len(parts) > 1 && parts[1] == "optional",
		Template: placeholder.ParseField(tmpl),
	}
}

// Descriptor is the compiled, fully inherited form of one endpoint.
// It is immutable once compiled.
type Descriptor struct {
	name         string
	path         placeholder.Path
	method       string
	requireAuth  bool
	requireToken bool
	fields       []Field
}

// Name returns the name the endpoint is registered under.
func (d *Descriptor) Name() string { return d.name }

// Path returns the raw path template.
func (d *Descriptor) Path() string { return d.path.String() }

// PathTemplate returns the parsed path template.
func (d *Descriptor) PathTemplate() placeholder.Path { return d.path }

// Method returns the uppercase HTTP method.
func (d *Descriptor) Method() string { return d.method }

// RequireAuth reports whether calls use basic credentials.
func (d *Descriptor) RequireAuth() bool { return d.requireAuth }

// RequireToken reports whether calls use a bearer token.
// Basic credentials take precedence when both are set.
func (d *Descriptor) RequireToken() bool { return d.requireToken }

// HasBody reports whether the endpoint defines body fields.
// An explicitly empty field map still counts as a body.
func (d *Descriptor) HasBody() bool { return d.fields != nil }

// Fields returns a copy of the body fields ordered by key.
func (d *Descriptor) Fields() []Field {
	return slices.Clone(d.fields)
}

// inherit derives a new descriptor from d, overriding every property
// n explicitly carries.
func (d *Descriptor) inherit(name string, n schema.Node) *Descriptor {
	nd := &Descriptor{
		name:         name,
		path:         d.path,
		method:       http.MethodGet,
		requireAuth:  d.requireAuth,
		requireToken: d.requireToken,
	}

	if n.Path != nil && *n.Path != "" {
		p := *n.Path
		if base := d.path.String(); base != "" {
			p = base + "/" + p
		}
		nd.path = placeholder.ParsePath(p)
	}
	if n.Method != nil {
		nd.method = strings.ToUpper(*n.Method)
	}
	if n.RequireAuth != nil {
		nd.requireAuth = *n.RequireAuth
	}
	if n.RequireToken != nil {
		nd.requireToken = *n.RequireToken
	}
	if n.Data != nil {
		nd.fields = make([]Field, 0, len(n.Data))
		for key, tmpl := range n.Data {
			nd.fields = append(nd.fields, parseField(key, tmpl))
		}
		sort.Slice(nd.fields, func(i, j int) bool {
			return nd.fields[i].Key < nd.fields[j].Key
		})
	}
	return nd
}
