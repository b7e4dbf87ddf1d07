// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package apimeta

import (
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	bedrockcfg "github.com/z5labs/bedrock/config"
)

// ConfigSource standardizes the template for configuration of apimeta clients.
// The [io.Reader] is expected to be YAML with support for Go templating. Currently,
// only 2 template functions are supported:
//   - env - this allows environment variables to be substituted into the YAML
//   - default - define a default value in case the original value is nil
func ConfigSource(r io.Reader) bedrockcfg.Source {
	return bedrockcfg.FromYaml(
		bedrockcfg.RenderTextTemplate(
			r,
			bedrockcfg.TemplateFunc("env", func(key string) any {
				v, ok := os.LookupEnv(key)
				if ok {
					return v
				}
				return nil
			}),
			bedrockcfg.TemplateFunc("default", func(def, v any) any {
				if v == nil {
					return def
				}
				return v
			}),
		),
	)
}

// Config is shared by every call a [Client] makes.
//
// Base is the URL every endpoint path is appended to. User and Secret
// are used for endpoints requiring basic auth, Token for endpoints
// requiring a bearer token. Values holds the entries `@name`
// placeholders refer to.
type Config struct {
	Base   string         `config:"base" validate:"required,url"`
	User   string         `config:"user"`
	Secret string         `config:"secret"`
	Token  string         `config:"token"`
	Values map[string]any `config:"values"`
}

// Lookup implements the endpoint.Config interface.
//
// Values take precedence over the well known base, user, secret
// and token entries, which only count when non-empty.
func (cfg Config) Lookup(name string) (any, bool) {
	if v, ok := cfg.Values[name]; ok {
		return v, true
	}

	var v string
	switch name {
	case "base":
		v = cfg.Base
	case "user":
		v = cfg.User
	case "secret":
		v = cfg.Secret
	case "token":
		v = cfg.Token
	}
	return v, v != ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the config can be used to build a [Client].
func (cfg Config) Validate() error {
	return validate.Struct(cfg)
}
