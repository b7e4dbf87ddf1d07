// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package schema models the declarative API description document.
//
// A document is a tree of named nodes. Branch nodes carry a nested `apis`
// map, leaf nodes are the callable endpoints. Optional node properties are
// pointers so that an explicitly present zero value, e.g. `requireAuth: false`,
// can be told apart from an absent one.
//
// Sibling order is preserved as written in the document.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/z5labs/sdk-go/try"
	"gopkg.in/yaml.v3"
)

// Document is the root of an API description.
type Document struct {
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
	Path        string `json:"path" yaml:"path"`
	APIs        Nodes  `json:"apis" yaml:"apis"`
}

// Node is a single entry of the endpoint tree.
type Node struct {
	Path         *string `json:"path,omitempty" yaml:"path,omitempty"`
	Method       *string `json:"method,omitempty" yaml:"method,omitempty"`
	RequireAuth  *bool   `json:"requireAuth,omitempty" yaml:"requireAuth,omitempty"`
	RequireToken *bool   `json:"requireToken,omitempty" yaml:"requireToken,omitempty"`

	// Data maps `field[:optional]` keys to field templates. It is nil
	// when the node has no request body.
	Data Fields `json:"data,omitempty" yaml:"data,omitempty"`

	// APIs is nil for leaf nodes.
	APIs *Nodes `json:"apis,omitempty" yaml:"apis,omitempty"`
}

// IsLeaf reports whether the node is a callable endpoint.
func (n Node) IsLeaf() bool {
	return n.APIs == nil
}

// Fields maps compound field keys to templates.
type Fields map[string]any

// Entry is a named [Node].
type Entry struct {
	Name string
	Node Node
}

// Nodes is an ordered set of named nodes.
type Nodes []Entry

// UnexpectedTokenError is returned when the `apis` member of a document
// is not a JSON object.
type UnexpectedTokenError struct {
	Token json.Token
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token in apis: %v", e.Token)
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (ns *Nodes) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return &UnexpectedTokenError{Token: tok}
	}

	entries := Nodes{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return &UnexpectedTokenError{Token: tok}
		}

		var n Node
		err = dec.Decode(&n)
		if err != nil {
			return fmt.Errorf("failed to decode api %q: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Node: n})
	}

	*ns = entries
	return nil
}

// UnmarshalYAML implements the [yaml.Unmarshaler] interface.
func (ns *Nodes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: apis must be a mapping", value.Line)
	}

	entries := make(Nodes, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		var n Node
		err := val.Decode(&n)
		if err != nil {
			return fmt.Errorf("failed to decode api %q: %w", key.Value, err)
		}
		entries = append(entries, Entry{Name: key.Value, Node: n})
	}

	*ns = entries
	return nil
}

// ReadJSON decodes a JSON document.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	err := json.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadYAML decodes a YAML document.
func ReadYAML(r io.Reader) (*Document, error) {
	var doc Document
	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadFile reads a document from disk. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON.
func ReadFile(name string) (doc *Document, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, f)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ReadYAML(f)
	default:
		return ReadJSON(f)
	}
}
