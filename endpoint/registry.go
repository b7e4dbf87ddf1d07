// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"maps"
	"slices"

	"github.com/z5labs/apimeta/placeholder"
	"github.com/z5labs/apimeta/schema"
)

// Registry maps endpoint names to their descriptors.
// It is read-only after [Compile] and safe for concurrent use.
type Registry struct {
	descriptors map[string]*Descriptor
}

// Compile walks the document depth first and registers every leaf node.
//
// Each node inherits path, requireAuth and requireToken from its parent
// unless it explicitly sets them. Nodes with nested apis only serve as
// inheritance bases and are not registered. When two leaves share a name
// the one compiled last wins.
func Compile(doc *schema.Document) *Registry {
	r := &Registry{
		descriptors: make(map[string]*Descriptor),
	}

	root := &Descriptor{
		path: placeholder.ParsePath(doc.Path),
	}
	r.compile(root, doc.APIs)
	return r
}

func (r *Registry) compile(parent *Descriptor, nodes schema.Nodes) {
	for _, e := range nodes {
		d := parent.inherit(e.Name, e.Node)
		if !e.Node.IsLeaf() {
			r.compile(d, *e.Node.APIs)
			continue
		}
		r.descriptors[e.Name] = d
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.descriptors))
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// Each calls f for every descriptor in name order until f returns false.
func (r *Registry) Each(f func(*Descriptor) bool) {
	for _, name := range r.Names() {
		if !f(r.descriptors[name]) {
			return
		}
	}
}
