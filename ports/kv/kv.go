// Package kv is the key-value storage port behind actor checkpoints.
//
// Implementations live next to their backend: [MemStore] and [FileStore] in
// this package, a JetStream KeyValue store in adapters/nats.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidKey = errors.New("invalid key")
)

// Entry is a stored value. Meta is free-form, JSON compatible metadata kept
// alongside Data; checkpoints record the actor address and body type there.
type Entry struct {
	Data []byte
	Meta map[string]any
}

// PutOptions tune a single write. A zero TTL keeps the entry until it is
// deleted.
type PutOptions struct {
	TTL time.Duration
}

type Store interface {
	Put(ctx context.Context, key string, entry Entry, opts PutOptions) error
	// Get returns ErrNotFound for missing and expired keys.
	Get(ctx context.Context, key string) (entry Entry, err error)
	// Delete succeeds for missing keys.
	Delete(ctx context.Context, key string) error
	// Keys lists every key currently held, in no particular order.
	Keys(ctx context.Context) ([]string, error)
}

// Put stores v as JSON.
func Put[T any](ctx context.Context, store Store, key string, v T, opts PutOptions) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, Entry{Data: data}, opts)
}

// Get loads a JSON value written by Put.
func Get[T any](ctx context.Context, store Store, key string) (out T, err error) {
	entry, err := store.Get(ctx, key)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(entry.Data, &out)
	return out, err
}
