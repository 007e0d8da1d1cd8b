// Package dedup resolves batches of natural keys against a store so that
// only entities not already present are written.
package dedup

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnresolved is returned by Intern when keys are still missing from the
// store after the missing ones were inserted.
var ErrUnresolved = errors.New("keys unresolved after insert")

// LookupFunc reports which of keys already exist in the store. It is called
// once per batch with the full key set.
type LookupFunc[K comparable] func(ctx context.Context, keys []K) ([]K, error)

// ResolveFunc maps the keys present in the store to their surrogate ids.
type ResolveFunc[K comparable, ID any] func(ctx context.Context, keys []K) (map[K]ID, error)

// InsertFunc bulk-inserts keys known to be absent.
type InsertFunc[K comparable] func(ctx context.Context, keys []K) error

// DistinctBy keeps the first item for each key, preserving input order.
func DistinctBy[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Existing runs lookup once over keys and returns the present subset as a set.
func Existing[K comparable](ctx context.Context, keys []K, lookup LookupFunc[K]) (map[K]struct{}, error) {
	present := make(map[K]struct{})
	if len(keys) == 0 {
		return present, nil
	}
	found, err := lookup(ctx, keys)
	if err != nil {
		return nil, err
	}
	for _, k := range found {
		present[k] = struct{}{}
	}
	return present, nil
}

// Missing returns keys not in present, preserving order.
func Missing[K comparable](keys []K, present map[K]struct{}) []K {
	var out []K
	for _, k := range keys {
		if _, ok := present[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// Fresh dedups items by key within the batch and drops those whose key the
// store already holds.
func Fresh[T any, K comparable](ctx context.Context, items []T, key func(T) K, lookup LookupFunc[K]) ([]T, error) {
	items = DistinctBy(items, key)
	keys := make([]K, len(items))
	for i, it := range items {
		keys[i] = key(it)
	}
	present, err := Existing(ctx, keys, lookup)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if _, ok := present[key(it)]; !ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// Intern returns a surrogate id for every key, inserting the ones the store
// lacks. The full key set is resolved again after insert, so ids assigned by
// the store are always read back rather than assumed.
func Intern[K comparable, ID any](ctx context.Context, keys []K, resolve ResolveFunc[K, ID], insert InsertFunc[K]) (map[K]ID, error) {
	keys = DistinctBy(keys, func(k K) K { return k })
	if len(keys) == 0 {
		return map[K]ID{}, nil
	}

	ids, err := resolve(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	present := make(map[K]struct{}, len(ids))
	for k := range ids {
		present[k] = struct{}{}
	}
	missing := Missing(keys, present)
	if len(missing) == 0 {
		return ids, nil
	}

	if err := insert(ctx, missing); err != nil {
		return nil, fmt.Errorf("insert %d missing: %w", len(missing), err)
	}

	ids, err = resolve(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("re-resolve: %w", err)
	}
	for _, k := range keys {
		if _, ok := ids[k]; !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnresolved, k)
		}
	}
	return ids, nil
}
