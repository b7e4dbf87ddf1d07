// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"bytes"
	"context"
	_ "embed"
	"os"

	"github.com/z5labs/apimeta"
	"github.com/z5labs/apimeta/config"
	"github.com/z5labs/apimeta/internal/otel"

	"github.com/go-playground/validator/v10"
	bedrockcfg "github.com/z5labs/bedrock/config"
)

//go:embed default_config.yaml
var defaultConfig []byte

// DefaultConfig returns the default config source which corresponds to the [Config] type.
func DefaultConfig() bedrockcfg.Source {
	return apimeta.ConfigSource(bytes.NewReader(defaultConfig))
}

// Config is the file format read by the apimeta command.
type Config struct {
	OTel config.OTel `config:"otel"`

	// Schema is the path of the JSON or YAML schema document.
	Schema string `config:"schema" validate:"required"`

	Client apimeta.Config `config:"client"`
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
// Logs are written to stderr so they never interleave with call results.
func (c Config) InitializeOTel(ctx context.Context) error {
	return otel.Initialize(ctx, c.OTel, otel.LogWriter(os.Stderr))
}

// Validate reports missing or malformed settings.
func (c Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}
