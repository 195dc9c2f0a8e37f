// Package metadata is the client's key/value store for small local state:
// the master key salt, the account's collection keys and per-collection
// sync cursors.
package metadata

import (
	"context"
	"fmt"
)

const (
	KeySalt         = "salt"
	KeyUploaderName = "uploader_name"
)

// LastSyncKey is the key of the sync cursor of a collection.
func LastSyncKey(collectionID int64) string {
	return fmt.Sprintf("last_sync:%d", collectionID)
}

type Repository interface {
	// Get returns nil, nil when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)

	// GetInt64 returns 0 when key is absent.
	GetInt64(ctx context.Context, key string) (int64, error)
	SetInt64(ctx context.Context, key string, v int64) error
}
