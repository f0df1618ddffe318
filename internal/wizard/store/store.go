// Package store persists session-scoped wizard state: verified role and
// identifier, the in-progress draft keyed by role, and the uploaded-file
// manifest. Binary file content is never persisted.
package store

import (
	"context"
)

// KV is a key/value store partitioned by session scope. Clear drops every key
// of one scope and is called at exactly two points: fresh verification entry
// and successful submission.
type KV interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Put(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
	Clear(ctx context.Context, scope string) error
}
