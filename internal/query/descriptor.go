// Package query defines declarative query descriptors: a cache key paired with
// the function that produces the data for that key.
package query

import (
	"context"
	"strings"
)

// Key identifies a query in a runtime's registry. Keys are compared by their
// rendered form, so two keys with the same segments address the same entry.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// Descriptor bundles a key with a producer. It is immutable once built.
type Descriptor[T any] struct {
	key Key
	run func(ctx context.Context) (T, error)
}

func NewDescriptor[T any](key Key, run func(ctx context.Context) (T, error)) Descriptor[T] {
	k := make(Key, len(key))
	copy(k, key)
	return Descriptor[T]{key: k, run: run}
}

// Key returns a copy of the descriptor's key.
func (d Descriptor[T]) Key() Key {
	k := make(Key, len(d.key))
	copy(k, d.key)
	return k
}

// Run invokes the producer once.
func (d Descriptor[T]) Run(ctx context.Context) (T, error) {
	return d.run(ctx)
}
