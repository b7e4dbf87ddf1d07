// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package apimeta

import (
	"context"
	"fmt"
)

// Interceptor hooks into every call a [Client] makes.
type Interceptor interface {
	// FunctionCall computes the value of a `name($N)` body field.
	FunctionCall(ctx context.Context, name string, arg any) (any, error)

	// PostAPICall receives the outcome of every request which reached the
	// transport. Whatever it returns is handed to the caller, so it may
	// rewrite or suppress both the result and the error.
	PostAPICall(ctx context.Context, result any, err error) (any, error)
}

// DefaultInterceptor renders function fields as `name(arg)` and passes
// call outcomes through unchanged.
type DefaultInterceptor struct{}

// FunctionCall implements the [Interceptor] interface.
func (DefaultInterceptor) FunctionCall(ctx context.Context, name string, arg any) (any, error) {
	return fmt.Sprintf("%s(%v)", name, arg), nil
}

// PostAPICall implements the [Interceptor] interface.
func (DefaultInterceptor) PostAPICall(ctx context.Context, result any, err error) (any, error) {
	return result, err
}

// InterceptorFuncs is an [Interceptor] built from plain functions.
// A nil function falls back to [DefaultInterceptor].
type InterceptorFuncs struct {
	Function func(ctx context.Context, name string, arg any) (any, error)
	Post     func(ctx context.Context, result any, err error) (any, error)
}

// FunctionCall implements the [Interceptor] interface.
func (f InterceptorFuncs) FunctionCall(ctx context.Context, name string, arg any) (any, error) {
	if f.Function == nil {
		return DefaultInterceptor{}.FunctionCall(ctx, name, arg)
	}
	return f.Function(ctx, name, arg)
}

// PostAPICall implements the [Interceptor] interface.
func (f InterceptorFuncs) PostAPICall(ctx context.Context, result any, err error) (any, error) {
	if f.Post == nil {
		return DefaultInterceptor{}.PostAPICall(ctx, result, err)
	}
	return f.Post(ctx, result, err)
}
