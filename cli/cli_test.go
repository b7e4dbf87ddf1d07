// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/z5labs/apimeta"
	"github.com/z5labs/apimeta/schema"
	"github.com/z5labs/apimeta/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "description": "users api",
  "version": "1.0.0",
  "path": "v1",
  "apis": {
    "getUser": {"path": "users/$1"},
    "createUser": {"path": "users", "method": "post", "data": {"name": "$1"}}
  }
}`

type captureHandler struct {
	slog.Handler
	records []slog.Record
}

func (h *captureHandler) Handle(ctx context.Context, record slog.Record) error {
	h.records = append(h.records, record)
	return nil
}

func loggedError(t *testing.T, h *captureHandler) error {
	t.Helper()

	if !assert.Len(t, h.records, 1) {
		return nil
	}

	var caughtErr error
	h.records[0].Attrs(func(a slog.Attr) bool {
		if a.Key != "error" {
			return true
		}

		err, ok := a.Value.Any().(error)
		if !ok {
			caughtErr = fmt.Errorf("expected attr to be error: %v", a.Value)
			return false
		}
		caughtErr = err
		return false
	})
	return caughtErr
}

func writeSchema(t *testing.T) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "api.json")
	err := os.WriteFile(name, []byte(testSchema), 0o600)
	require.Nil(t, err)
	return name
}

func configYAML(schemaFile, base string) string {
	return fmt.Sprintf(`
otel:
  log:
    exporter:
      type: none
schema: %s
client:
  base: %s
`, schemaFile, base)
}

func TestRun(t *testing.T) {
	t.Run("will handle error", func(t *testing.T) {
		t.Run("if it fails to build the App", func(t *testing.T) {
			r := strings.NewReader(``)

			buildErr := errors.New("failed to build app")
			b := func(ctx context.Context, cfg Config) (*App, error) {
				return nil, buildErr
			}

			logHandler := &captureHandler{
				Handler: slog.Default().Handler(),
			}

			err := Run(r, b, LogHandler(logHandler))
			assert.ErrorIs(t, err, buildErr)
			assert.ErrorIs(t, loggedError(t, logHandler), buildErr)
		})

		t.Run("if the schema is not configured", func(t *testing.T) {
			r := strings.NewReader(configYAML("", "https://api.example.com"))

			logHandler := &captureHandler{
				Handler: slog.Default().Handler(),
			}

			err := Run(r, BuildApp(Args{Endpoint: "getUser"}), LogHandler(logHandler))

			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
			assert.ErrorAs(t, loggedError(t, logHandler), &verrs)
		})

		t.Run("if the called endpoint does not exist", func(t *testing.T) {
			r := strings.NewReader(configYAML(writeSchema(t), "https://api.example.com"))

			logHandler := &captureHandler{
				Handler: slog.Default().Handler(),
			}

			err := Run(r, BuildApp(Args{Endpoint: "deleteUser"}), LogHandler(logHandler))

			var uerr *apimeta.UnknownEndpointError
			assert.ErrorAs(t, err, &uerr)
			assert.Equal(t, "deleteUser", uerr.Name)
		})
	})

	t.Run("will print the call result", func(t *testing.T) {
		mux := chi.NewRouter()
		mux.Get("/v1/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id": %q}`, chi.URLParam(r, "id"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		r := strings.NewReader(configYAML(writeSchema(t), srv.URL))

		var out bytes.Buffer
		err := Run(r, BuildApp(Args{Endpoint: "getUser", Params: []string{"42"}}, Stdout(&out)))
		require.Nil(t, err)

		var v map[string]any
		err = json.Unmarshal(out.Bytes(), &v)
		require.Nil(t, err)
		assert.Equal(t, map[string]any{"id": "42"}, v)
	})
}

type recordingDoer struct {
	reqs []transport.Request
}

func (d *recordingDoer) Do(ctx context.Context, req transport.Request) (any, error) {
	d.reqs = append(d.reqs, req)
	return map[string]any{"ok": true}, nil
}

func newTestApp(t *testing.T, args Args) (*App, *recordingDoer, *bytes.Buffer) {
	t.Helper()

	doc, err := schema.ReadJSON(strings.NewReader(testSchema))
	require.Nil(t, err)

	doer := &recordingDoer{}
	client, err := apimeta.New(
		apimeta.Config{Base: "https://api.example.com"},
		doc,
		apimeta.WithTransport(doer),
	)
	require.Nil(t, err)

	var out bytes.Buffer
	return NewApp(client, args, Stdout(&out)), doer, &out
}

func TestApp_Run(t *testing.T) {
	t.Run("will print the openapi document", func(t *testing.T) {
		a, doer, out := newTestApp(t, Args{OpenAPI: true})

		err := a.Run(t.Context())
		require.Nil(t, err)
		assert.Empty(t, doer.reqs)

		var v map[string]any
		err = json.Unmarshal(out.Bytes(), &v)
		require.Nil(t, err)
		assert.Equal(t, "v1", v["info"].(map[string]any)["title"])
		assert.Contains(t, v["paths"], "/v1/users/{arg1}")
		assert.Contains(t, v["paths"], "/v1/users")
	})

	t.Run("will call the endpoint with the params", func(t *testing.T) {
		a, doer, out := newTestApp(t, Args{Endpoint: "createUser", Params: []string{"alice"}})

		err := a.Run(t.Context())
		require.Nil(t, err)

		require.Len(t, doer.reqs, 1)
		assert.Equal(t, http.MethodPost, doer.reqs[0].Method)
		assert.Equal(t, "https://api.example.com/v1/users", doer.reqs[0].URL)
		assert.Equal(t, map[string]any{"name": "alice"}, doer.reqs[0].Body)
		assert.JSONEq(t, `{"ok": true}`, out.String())
	})
}

func TestApp_exec(t *testing.T) {
	t.Run("will list endpoints", func(t *testing.T) {
		a, _, out := newTestApp(t, Args{})

		err := a.exec(t.Context(), "list")
		require.Nil(t, err)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, []string{"createUser", "POST", "/v1/users"}, strings.Fields(lines[0]))
		assert.Equal(t, []string{"getUser", "GET", "/v1/users/$1"}, strings.Fields(lines[1]))
	})

	t.Run("will print help", func(t *testing.T) {
		a, _, out := newTestApp(t, Args{})

		err := a.exec(t.Context(), "help")
		require.Nil(t, err)
		assert.Equal(t, shellHelp, out.String())
	})

	t.Run("will ignore blank lines", func(t *testing.T) {
		a, doer, out := newTestApp(t, Args{})

		err := a.exec(t.Context(), "   ")
		require.Nil(t, err)
		assert.Empty(t, doer.reqs)
		assert.Empty(t, out.String())
	})

	t.Run("will stop the shell", func(t *testing.T) {
		a, _, _ := newTestApp(t, Args{})

		assert.ErrorIs(t, a.exec(t.Context(), "exit"), errExit)
		assert.ErrorIs(t, a.exec(t.Context(), "quit"), errExit)
	})

	t.Run("will call endpoints", func(t *testing.T) {
		a, doer, out := newTestApp(t, Args{})

		err := a.exec(t.Context(), "getUser 42")
		require.Nil(t, err)

		require.Len(t, doer.reqs, 1)
		assert.Equal(t, "https://api.example.com/v1/users/42", doer.reqs[0].URL)
		assert.JSONEq(t, `{"ok": true}`, out.String())
	})

	t.Run("will return an error for unknown endpoints", func(t *testing.T) {
		a, doer, _ := newTestApp(t, Args{})

		err := a.exec(t.Context(), "deleteUser 42")

		var uerr *apimeta.UnknownEndpointError
		assert.ErrorAs(t, err, &uerr)
		assert.Empty(t, doer.reqs)
	})
}
