// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import "sync"

// cache shares one value per key, e.g. one gRPC connection per OTLP
// target across the trace, metric and log exporters.
type cache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]V
}

func newCache[K comparable, V any]() *cache[K, V] {
	return &cache[K, V]{
		data: make(map[K]V),
	}
}

func (c *cache[K, V]) getOr(k K, f func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.data[k]; ok {
		return v, nil
	}

	v, err := f()
	if err != nil {
		return v, err
	}
	c.data[k] = v
	return v, nil
}
