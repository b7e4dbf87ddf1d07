// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package openapi describes a compiled endpoint registry as an OpenAPI 3.0 document.
package openapi

import (
	"fmt"
	"strings"

	"github.com/z5labs/apimeta/endpoint"
	"github.com/z5labs/apimeta/placeholder"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

const (
	basicAuthScheme  = "basicAuth"
	bearerAuthScheme = "bearerAuth"

	// endpointsExtension lists every endpoint served by an operation
	// when more than one shares its method and path.
	endpointsExtension = "x-endpoints"
)

type route struct {
	method string
	path   string
}

// Info is the document level metadata.
type Info struct {
	Title       string
	Description string
	Version     string
}

// Spec builds an OpenAPI document with one operation per endpoint.
// Endpoints sharing a method and path are listed in the x-endpoints
// extension of a single operation.
//
// Positional path placeholders become path parameters named argN,
// named ones keep their name. A placeholder repeated in the path is
// declared once. The request body schema marks every field required
// unless it is optional or filled from config.
func Spec(info Info, r *endpoint.Registry) (*openapi3.Spec, error) {
	spec := &openapi3.Spec{
		Openapi: "3.0.3",
		Info: openapi3.Info{
			Title:   info.Title,
			Version: info.Version,
		},
	}
	if info.Description != "" {
		spec.Info.Description = ptr.Ref(info.Description)
	}

	// The operation is named after the first endpoint of its route.
	groups := make(map[route][]*endpoint.Descriptor)
	var routes []route
	r.Each(func(d *endpoint.Descriptor) bool {
		rt := route{
			method: strings.ToLower(d.Method()),
			path:   pathOf(d.PathTemplate()),
		}
		if _, ok := groups[rt]; !ok {
			routes = append(routes, rt)
		}
		groups[rt] = append(groups[rt], d)
		return true
	})

	var usesBasic, usesBearer bool
	for _, rt := range routes {
		ds := groups[rt]
		d := ds[0]
		op := operation(d)
		if len(ds) > 1 {
			names := make([]string, 0, len(ds))
			for _, alias := range ds {
				names = append(names, alias.Name())
			}
			op.MapOfAnything = map[string]any{
				endpointsExtension: names,
			}
		}

		switch {
		case d.RequireAuth():
			usesBasic = true
			op.Security = []map[string][]string{{basicAuthScheme: {}}}
		case d.RequireToken():
			usesBearer = true
			op.Security = []map[string][]string{{bearerAuthScheme: {}}}
		}

		err := spec.AddOperation(rt.method, rt.path, op)
		if err != nil {
			return nil, fmt.Errorf("failed to add operation %s: %w", d.Name(), err)
		}
	}

	if usesBasic {
		addHTTPScheme(spec, basicAuthScheme, "basic")
	}
	if usesBearer {
		addHTTPScheme(spec, bearerAuthScheme, "bearer")
	}
	return spec, nil
}

func addHTTPScheme(spec *openapi3.Spec, name, scheme string) {
	spec.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
		name,
		openapi3.SecuritySchemeOrRef{
			SecurityScheme: &openapi3.SecurityScheme{
				HTTPSecurityScheme: &openapi3.HTTPSecurityScheme{
					Scheme: scheme,
				},
			},
		},
	)
}

func operation(d *endpoint.Descriptor) openapi3.Operation {
	op := openapi3.Operation{
		ID:         ptr.Ref(d.Name()),
		Parameters: parameters(d.PathTemplate()),
		Responses: openapi3.Responses{
			MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
				"200": {
					Response: &openapi3.Response{
						Description: "API response",
					},
				},
			},
		},
	}

	if !d.HasBody() {
		return op
	}

	op.RequestBody = &openapi3.RequestBodyOrRef{
		RequestBody: &openapi3.RequestBody{
			Required: ptr.Ref(true),
			Content: map[string]openapi3.MediaType{
				"application/json": {
					Schema: bodySchema(d.Fields()),
				},
			},
		},
	}
	return op
}

func pathOf(p placeholder.Path) string {
	var sb strings.Builder
	for _, part := range p.Parts() {
		switch v := part.(type) {
		case placeholder.Literal:
			sb.WriteString(fmt.Sprint(v.Value))
		case placeholder.NamedRef:
			sb.WriteString("{" + v.Name + "}")
		case placeholder.PositionalRef:
			sb.WriteString(fmt.Sprintf("{arg%d}", v.Index))
		}
	}
	return "/" + strings.TrimPrefix(sb.String(), "/")
}

func parameters(p placeholder.Path) []openapi3.ParameterOrRef {
	if !p.HasPlaceholders() {
		return nil
	}

	var params []openapi3.ParameterOrRef
	seen := make(map[string]bool)
	for _, part := range p.Parts() {
		var name string
		switch v := part.(type) {
		case placeholder.NamedRef:
			name = v.Name
		case placeholder.PositionalRef:
			name = fmt.Sprintf("arg%d", v.Index)
		default:
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		schemaType := openapi3.SchemaTypeString
		params = append(params, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       openapi3.ParameterInPath,
				Required: ptr.Ref(true),
				Schema: &openapi3.SchemaOrRef{
					Schema: &openapi3.Schema{
						Type: &schemaType,
					},
				},
			},
		})
	}
	return params
}

func bodySchema(fields []endpoint.Field) *openapi3.SchemaOrRef {
	var s jsonschema.Schema
	s.AddType(jsonschema.Object)

	for _, f := range fields {
		prop := fieldSchema(f.Template)
		prop.WithDescription(f.Key)
		s.WithPropertiesItem(f.Name, prop.ToSchemaOrBool())

		if _, fromConfig := f.Template.(placeholder.NamedRef); f.Optional || fromConfig {
			continue
		}
		s.Required = append(s.Required, f.Name)
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(s.ToSchemaOrBool())
	return &schemaOrRef
}

func fieldSchema(v placeholder.Value) jsonschema.Schema {
	var s jsonschema.Schema
	switch t := v.(type) {
	case placeholder.PositionalRef:
		if t.Numeric {
			s.AddType(jsonschema.Integer)
		}
	case placeholder.Literal:
		switch t.Value.(type) {
		case string:
			s.AddType(jsonschema.String)
		case bool:
			s.AddType(jsonschema.Boolean)
		case float64, int:
			s.AddType(jsonschema.Number)
		}
	}
	return s
}
