// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	accept      string
	auth        string
	body        []byte
}

func newServer(t *testing.T, register func(chi.Router, chan<- recordedRequest)) (*httptest.Server, <-chan recordedRequest) {
	t.Helper()

	reqs := make(chan recordedRequest, 1)
	mux := chi.NewMux()
	register(mux, reqs)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, reqs
}

func record(reqs chan<- recordedRequest, w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	reqs <- recordedRequest{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		accept:      r.Header.Get("Accept"),
		auth:        r.Header.Get("Authorization"),
		body:        b,
	}
}

func TestHTTP_Do(t *testing.T) {
	t.Run("will send a json body", func(t *testing.T) {
		srv, reqs := newServer(t, func(r chi.Router, reqs chan<- recordedRequest) {
			r.Post("/users", func(w http.ResponseWriter, r *http.Request) {
				record(reqs, w, r)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"id": 1}`))
			})
		})

		h := NewHTTP()
		resp, err := h.Do(context.Background(), Request{
			Method: http.MethodPost,
			URL:    srv.URL + "/users",
			Body:   map[string]any{"status": "active"},
		})
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, map[string]any{"id": float64(1)}, resp)

		req := <-reqs
		assert.Equal(t, http.MethodPost, req.method)
		assert.Equal(t, "application/json", req.contentType)
		assert.Equal(t, "application/json", req.accept)

		var body map[string]any
		err = json.Unmarshal(req.body, &body)
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, map[string]any{"status": "active"}, body)
	})

	t.Run("will not send a body if none is set", func(t *testing.T) {
		srv, reqs := newServer(t, func(r chi.Router, reqs chan<- recordedRequest) {
			r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
				record(reqs, w, r)
				w.WriteHeader(http.StatusNoContent)
			})
		})

		h := NewHTTP()
		resp, err := h.Do(context.Background(), Request{
			Method: http.MethodGet,
			URL:    srv.URL + "/ping",
		})
		if !assert.Nil(t, err) {
			return
		}
		assert.Nil(t, resp)

		req := <-reqs
		assert.Empty(t, req.body)
		assert.Empty(t, req.contentType)
	})

	t.Run("will attach credentials", func(t *testing.T) {
		t.Run("using basic auth", func(t *testing.T) {
			srv, reqs := newServer(t, func(r chi.Router, reqs chan<- recordedRequest) {
				r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
					record(reqs, w, r)
				})
			})

			h := NewHTTP()
			_, err := h.Do(context.Background(), Request{
				Method: http.MethodGet,
				URL:    srv.URL + "/me",
				Auth:   BasicAuth{User: "alice", Password: "s3cret"},
			})
			if !assert.Nil(t, err) {
				return
			}

			req := <-reqs
			expected, _ := http.NewRequest(http.MethodGet, "/", nil)
			expected.SetBasicAuth("alice", "s3cret")
			assert.Equal(t, expected.Header.Get("Authorization"), req.auth)
		})

		t.Run("using a bearer token", func(t *testing.T) {
			srv, reqs := newServer(t, func(r chi.Router, reqs chan<- recordedRequest) {
				r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
					record(reqs, w, r)
				})
			})

			h := NewHTTP()
			_, err := h.Do(context.Background(), Request{
				Method: http.MethodGet,
				URL:    srv.URL + "/me",
				Auth:   BearerToken("tok"),
			})
			if !assert.Nil(t, err) {
				return
			}

			req := <-reqs
			assert.Equal(t, "Bearer tok", req.auth)
		})
	})

	t.Run("will return the raw body if it is not json", func(t *testing.T) {
		srv, _ := newServer(t, func(r chi.Router, reqs chan<- recordedRequest) {
			r.Get("/text", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			})
		})

		h := NewHTTP()
		resp, err := h.Do(context.Background(), Request{
			Method: http.MethodGet,
			URL:    srv.URL + "/text",
		})
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, "hello", resp)
	})

	t.Run("will not treat error statuses as errors", func(t *testing.T) {
		srv, _ := newServer(t, func(r chi.Router, reqs chan<- recordedRequest) {
			r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error": "not found"}`))
			})
		})

		h := NewHTTP()
		resp, err := h.Do(context.Background(), Request{
			Method: http.MethodGet,
			URL:    srv.URL + "/missing",
		})
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, map[string]any{"error": "not found"}, resp)
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the body can not be encoded", func(t *testing.T) {
			h := NewHTTP()
			_, err := h.Do(context.Background(), Request{
				Method: http.MethodPost,
				URL:    "http://127.0.0.1:0/",
				Body:   map[string]any{"ch": make(chan int)},
			})

			var jerr *json.UnsupportedTypeError
			assert.ErrorAs(t, err, &jerr)
		})

		t.Run("if the server can not be reached", func(t *testing.T) {
			srv := httptest.NewServer(http.NotFoundHandler())
			url := srv.URL
			srv.Close()

			h := NewHTTP(Client(&http.Client{}))
			_, err := h.Do(context.Background(), Request{
				Method: http.MethodGet,
				URL:    url,
			})
			assert.Error(t, err)
		})
	})
}
