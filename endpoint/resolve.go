// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/z5labs/apimeta/placeholder"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Config provides the values `@name` placeholders refer to.
type Config interface {
	Lookup(name string) (any, bool)
}

// FunctionCaller computes the value of a `name($N)` field.
type FunctionCaller interface {
	FunctionCall(ctx context.Context, name string, arg any) (any, error)
}

// ResolvePath substitutes the path template of d.
//
// A named placeholder is replaced by its config value, or left as the
// literal `@name` when the config has no such entry. A positional
// placeholder outside of args is a [MissingArgumentError].
func ResolvePath(d *Descriptor, cfg Config, args []any) (string, error) {
	var sb strings.Builder
	for _, part := range d.path.Parts() {
		switch p := part.(type) {
		case placeholder.Literal:
			sb.WriteString(format(p.Value))
		case placeholder.NamedRef:
			v, ok := cfg.Lookup(p.Name)
			if !ok {
				sb.WriteString("@" + p.Name)
				continue
			}
			sb.WriteString(format(v))
		case placeholder.PositionalRef:
			off := p.Offset()
			if off < 0 || off >= len(args) {
				return "", &MissingArgumentError{
					Endpoint: d.name,
					Index:    p.Index,
				}
			}
			sb.WriteString(format(args[off]))
		}
	}
	return sb.String(), nil
}

func format(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

type member struct {
	name  string
	value any
}

// ResolveBody resolves every body field of d concurrently.
//
// The first field to fail aborts the whole body and its error is returned;
// results of fields still in flight are discarded. Fields resolving to nil
// are left out of the body. Optional fields referring to a missing argument
// are left out too, required ones fail with a [MissingArgumentError].
//
// An endpoint without fields yields an empty, non-nil body.
func ResolveBody(ctx context.Context, d *Descriptor, cfg Config, fc FunctionCaller, args []any) (map[string]any, error) {
	tracer := otel.Tracer("github.com/z5labs/apimeta/endpoint")
	spanCtx, span := tracer.Start(ctx, "ResolveBody", trace.WithAttributes(
		attribute.String("endpoint", d.name),
		attribute.Int("fields", len(d.fields)),
	))
	defer span.End()

	body := make(map[string]any, len(d.fields))
	if len(d.fields) == 0 {
		return body, nil
	}

	p := pool.NewWithResults[member]().
		WithContext(spanCtx).
		WithCancelOnError().
		WithFirstError()

	for _, f := range d.fields {
		p.Go(func(ctx context.Context) (member, error) {
			v, err := resolveField(ctx, d.name, f, cfg, fc, args)
			return member{name: f.Name, value: v}, err
		})
	}

	members, err := p.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, m := range members {
		if m.value == nil {
			continue
		}
		body[m.name] = m.value
	}
	return body, nil
}

// Null is the value of a `$#N` field whose argument has no integer
// prefix. The field stays in the body and encodes as JSON null.
type Null struct{}

// MarshalJSON implements the [json.Marshaler] interface.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (Null) String() string {
	return "null"
}

func resolveField(ctx context.Context, endpoint string, f Field, cfg Config, fc FunctionCaller, args []any) (any, error) {
	var ref placeholder.PositionalRef
	var fn string

	switch t := f.Template.(type) {
	case placeholder.Literal:
		return t.Value, nil
	case placeholder.NamedRef:
		v, _ := cfg.Lookup(t.Name)
		return v, nil
	case placeholder.PositionalRef:
		ref = t
	case placeholder.FunctionRef:
		ref = t.Arg
		fn = t.Name
	default:
		return nil, fmt.Errorf("%s: unsupported template for field %q", endpoint, f.Key)
	}

	off := ref.Offset()
	if off < 0 || off >= len(args) {
		if f.Optional {
			return nil, nil
		}
		return nil, &MissingArgumentError{
			Endpoint: endpoint,
			Field:    f.Name,
			Index:    ref.Index,
		}
	}

	v := args[off]
	if ref.Numeric {
		n, ok := parseInt(v)
		if ok {
			v = n
		} else {
			v = Null{}
		}
	}

	if fn == "" {
		return v, nil
	}
	return fc.FunctionCall(ctx, fn, v)
}

func floatInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// parseInt reads the leading base 10 integer of v's string form, ignoring
// leading whitespace and anything after the digits.
func parseInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatInt(float64(n))
	case float64:
		return floatInt(n)
	}

	s := strings.TrimLeft(format(v), " \t\n\v\f\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && '0' <= s[end] && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
