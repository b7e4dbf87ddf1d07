// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package openapi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/z5labs/apimeta/endpoint"
	"github.com/z5labs/apimeta/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDoc = `{
  "path": "v1",
  "apis": {
    "users": {
      "path": "users",
      "apis": {
        "getUser": {"path": "$1"},
        "getMe": {"path": "@me", "requireToken": true},
        "createUser": {
          "method": "post",
          "requireAuth": true,
          "data": {"name": "$1", "age:optional": "$#2", "org": "@org", "kind": "person"}
        }
      }
    }
  }
}`

func render(t *testing.T, doc string) map[string]any {
	t.Helper()

	d, err := schema.ReadJSON(strings.NewReader(doc))
	require.Nil(t, err)

	spec, err := Spec(Info{Title: "test", Version: "1.0.0"}, endpoint.Compile(d))
	require.Nil(t, err)

	b, err := json.Marshal(spec)
	require.Nil(t, err)

	var m map[string]any
	err = json.Unmarshal(b, &m)
	require.Nil(t, err)
	return m
}

func get(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()

	var v any = m
	for _, k := range keys {
		obj, ok := v.(map[string]any)
		if !assert.True(t, ok, "expected object at %s", k) {
			return nil
		}
		v, ok = obj[k]
		if !assert.True(t, ok, "missing key %s", k) {
			return nil
		}
	}
	return v
}

func TestSpec(t *testing.T) {
	m := render(t, testDoc)

	t.Run("will set document info", func(t *testing.T) {
		assert.Equal(t, "3.0.3", m["openapi"])
		assert.Equal(t, "test", get(t, m, "info", "title"))
		assert.Equal(t, "1.0.0", get(t, m, "info", "version"))
	})

	t.Run("will name operations after endpoints", func(t *testing.T) {
		assert.Equal(t, "getUser", get(t, m, "paths", "/v1/users/{arg1}", "get", "operationId"))
		assert.Equal(t, "getMe", get(t, m, "paths", "/v1/users/{me}", "get", "operationId"))
		assert.Equal(t, "createUser", get(t, m, "paths", "/v1/users", "post", "operationId"))
	})

	t.Run("will declare path parameters", func(t *testing.T) {
		params, ok := get(t, m, "paths", "/v1/users/{arg1}", "get", "parameters").([]any)
		require.True(t, ok)
		require.Len(t, params, 1)

		param := params[0].(map[string]any)
		assert.Equal(t, "arg1", param["name"])
		assert.Equal(t, "path", param["in"])
		assert.Equal(t, true, param["required"])
	})

	t.Run("will attach security requirements", func(t *testing.T) {
		assert.Equal(
			t,
			[]any{map[string]any{"bearerAuth": []any{}}},
			get(t, m, "paths", "/v1/users/{me}", "get", "security"),
		)
		assert.Equal(
			t,
			[]any{map[string]any{"basicAuth": []any{}}},
			get(t, m, "paths", "/v1/users", "post", "security"),
		)
		assert.Equal(t, "basic", get(t, m, "components", "securitySchemes", "basicAuth", "scheme"))
		assert.Equal(t, "bearer", get(t, m, "components", "securitySchemes", "bearerAuth", "scheme"))
	})

	t.Run("will describe the request body", func(t *testing.T) {
		body := get(t, m, "paths", "/v1/users", "post", "requestBody", "content", "application/json", "schema")
		require.NotNil(t, body)

		obj := body.(map[string]any)
		assert.Equal(t, "object", obj["type"])
		assert.ElementsMatch(t, []any{"name", "kind"}, obj["required"])
		assert.Equal(t, "integer", get(t, obj, "properties", "age", "type"))
		assert.Equal(t, "string", get(t, obj, "properties", "kind", "type"))
		assert.Equal(t, "age:optional", get(t, obj, "properties", "age", "description"))
	})

	t.Run("will omit the request body if the endpoint has no data", func(t *testing.T) {
		op := get(t, m, "paths", "/v1/users/{arg1}", "get").(map[string]any)
		assert.NotContains(t, op, "requestBody")
	})

	t.Run("will omit unused security schemes", func(t *testing.T) {
		m := render(t, `{"apis": {"ping": {"path": "ping"}}}`)

		assert.Equal(t, "ping", get(t, m, "paths", "/ping", "get", "operationId"))
		assert.NotContains(t, m, "components")
	})

	t.Run("will merge endpoints sharing a method and path", func(t *testing.T) {
		m := render(t, `{
		  "apis": {
		    "getItem": {"path": "items/$1"},
		    "fetchItem": {"path": "items/$1"},
		    "putItem": {"path": "items/$1", "method": "put"}
		  }
		}`)

		op := get(t, m, "paths", "/items/{arg1}", "get").(map[string]any)
		assert.Equal(t, "fetchItem", op["operationId"])
		assert.Equal(t, []any{"fetchItem", "getItem"}, op["x-endpoints"])

		put := get(t, m, "paths", "/items/{arg1}", "put").(map[string]any)
		assert.Equal(t, "putItem", put["operationId"])
		assert.NotContains(t, put, "x-endpoints")
	})

	t.Run("will declare a repeated path placeholder once", func(t *testing.T) {
		m := render(t, `{"apis": {"copy": {"path": "a/$1/b/$1"}}}`)

		params, ok := get(t, m, "paths", "/a/{arg1}/b/{arg1}", "get", "parameters").([]any)
		require.True(t, ok)
		require.Len(t, params, 1)
		assert.Equal(t, "arg1", params[0].(map[string]any)["name"])
	})

	t.Run("will omit parameters if the path has no placeholders", func(t *testing.T) {
		m := render(t, `{"apis": {"ping": {"path": "ping"}}}`)

		op := get(t, m, "paths", "/ping", "get").(map[string]any)
		assert.NotContains(t, op, "parameters")
	})
}
