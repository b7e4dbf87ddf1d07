// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cli runs an apimeta client from the command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/z5labs/apimeta"
	"github.com/z5labs/apimeta/endpoint"
	"github.com/z5labs/apimeta/openapi"
	"github.com/z5labs/apimeta/schema"

	"github.com/chzyer/readline"
)

// Args are the command line arguments which select what the [App] does.
type Args struct {
	// OpenAPI prints the OpenAPI document instead of calling an endpoint.
	OpenAPI bool

	// Endpoint is called once with Params. If empty and OpenAPI is
	// false an interactive shell is started.
	Endpoint string
	Params   []string
}

// AppOptions configure an [App].
type AppOptions struct {
	stdin  io.ReadCloser
	stdout io.Writer
}

// AppOption sets a value on [AppOptions].
type AppOption interface {
	ApplyAppOption(*AppOptions)
}

type appOptionFunc func(*AppOptions)

func (f appOptionFunc) ApplyAppOption(ao *AppOptions) {
	f(ao)
}

// Stdin overrides where the interactive shell reads from.
func Stdin(r io.ReadCloser) AppOption {
	return appOptionFunc(func(ao *AppOptions) {
		ao.stdin = r
	})
}

// Stdout overrides where results are printed.
func Stdout(w io.Writer) AppOption {
	return appOptionFunc(func(ao *AppOptions) {
		ao.stdout = w
	})
}

// App is a [bedrock.App] which drives an [apimeta.Client].
type App struct {
	log    *slog.Logger
	client *apimeta.Client
	args   Args
	stdin  io.ReadCloser
	stdout io.Writer
}

// NewApp initializes a new [App].
func NewApp(client *apimeta.Client, args Args, opts ...AppOption) *App {
	ao := &AppOptions{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyAppOption(ao)
	}
	return &App{
		log:    apimeta.Logger("github.com/z5labs/apimeta/cli"),
		client: client,
		args:   args,
		stdin:  ao.stdin,
		stdout: ao.stdout,
	}
}

// BuildApp returns the function expected by [Run]. It validates the
// config, reads the schema document and creates the client.
func BuildApp(args Args, opts ...AppOption) func(context.Context, Config) (*App, error) {
	return func(ctx context.Context, cfg Config) (*App, error) {
		err := cfg.Validate()
		if err != nil {
			return nil, err
		}

		doc, err := schema.ReadFile(cfg.Schema)
		if err != nil {
			return nil, err
		}

		client, err := apimeta.New(cfg.Client, doc)
		if err != nil {
			return nil, err
		}
		return NewApp(client, args, opts...), nil
	}
}

// Run implements the [bedrock.App] interface.
func (a *App) Run(ctx context.Context) error {
	switch {
	case a.args.OpenAPI:
		return a.printOpenAPI()
	case a.args.Endpoint != "":
		return a.call(ctx, a.args.Endpoint, a.args.Params)
	default:
		return a.shell(ctx)
	}
}

func (a *App) call(ctx context.Context, name string, params []string) error {
	args := make([]any, 0, len(params))
	for _, p := range params {
		args = append(args, p)
	}

	v, err := a.client.Call(ctx, name, args...)
	if err != nil {
		return err
	}
	return a.printJSON(v)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printOpenAPI() error {
	info := a.client.Info()
	title := info.Path
	if title == "" {
		title = "apimeta"
	}
	spec, err := openapi.Spec(
		openapi.Info{
			Title:       title,
			Description: info.Description,
			Version:     info.Version,
		},
		a.client.Registry(),
	)
	if err != nil {
		return err
	}
	return a.printJSON(spec)
}

func (a *App) printEndpoints() {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	a.client.Registry().Each(func(d *endpoint.Descriptor) bool {
		fmt.Fprintf(tw, "%s\t%s\t/%s\n", d.Name(), d.Method(), d.Path())
		return true
	})
	tw.Flush()
}

const shellHelp = `Available commands:

  list                  List callable endpoints
  openapi               Print the OpenAPI document
  help                  Show this help message
  exit                  Exit the shell
  <endpoint> [args...]  Call an endpoint with positional arguments
`

var errExit = errors.New("exit")

// exec runs one shell line. It returns errExit when the shell should stop.
func (a *App) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "exit", "quit":
		return errExit
	case "help":
		fmt.Fprint(a.stdout, shellHelp)
		return nil
	case "list":
		a.printEndpoints()
		return nil
	case "openapi":
		return a.printOpenAPI()
	default:
		return a.call(ctx, fields[0], fields[1:])
	}
}

func (a *App) shell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "apimeta> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    a.completer(),
		Stdin:           a.stdin,
		Stdout:          a.stdout,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		err = a.exec(ctx, line)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			a.log.WarnContext(ctx, "command failed", slog.String("line", line), slog.Any("error", err))
			fmt.Fprintln(rl.Stderr(), "error:", err)
		}
	}
}

func (a *App) completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("list"),
		readline.PcItem("openapi"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	}
	for _, name := range a.client.Names() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
