// Package metadata is the client's local key/value store. The guard keeps
// its password gate and remembered session here.
package metadata

import (
	"context"
)

// Repository stores opaque values by key. Get returns common.ErrorNotFound
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
