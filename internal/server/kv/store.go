// Package kv is the key-value façade every other server package persists
// through. A Store is one namespace; Namespaces groups the three the server
// uses. Backends: in-memory (dev and tests), Redis and PostgreSQL.
package kv

import (
	"context"
	"time"
)

// Item is a single key/value pair for batch writes.
type Item struct {
	Key   string
	Value string
}

// Store is a namespaced key-value store.
//
// A ttl of zero means the record never expires. Expired records behave as
// absent for every operation. Get returns common.ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// PutIfAbsent writes only when key is absent and reports whether it wrote.
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// PutMany writes all items with the same ttl, atomically where the
	// backend supports it.
	PutMany(ctx context.Context, items []Item, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// List returns keys starting with prefix in ascending order. A limit of
	// zero or less means no limit.
	List(ctx context.Context, prefix string, limit int) ([]string, error)

	Ping(ctx context.Context) error
}

// Namespaces bundles the three logically separate stores.
type Namespaces struct {
	Secrets  Store
	Sessions Store
	Audit    Store

	closer func() error
}

// Close releases the underlying connection, if any.
func (n *Namespaces) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

// Ping checks every namespace.
func (n *Namespaces) Ping(ctx context.Context) error {
	for _, s := range []Store{n.Secrets, n.Sessions, n.Audit} {
		if err := s.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Namespace names, used as key prefixes or column values by the backends.
const (
	SecretsNamespace  = "secrets"
	SessionsNamespace = "sessions"
	AuditNamespace    = "audit"
)
