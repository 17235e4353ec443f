// Package store defines the abstract key->bytes persistence surface that the
// rest of the engine (codec, metadata, array, hierarchy) is built against.
// A Store is the sole source of durability; it never fails on a missing key
// (see Get), and every method is asynchronous in contract even though the
// in-memory and directory implementations here complete immediately.
package store

import "context"

// ListResult is the result of listing the immediate children of a prefix.
// Keys are immediate children that are themselves store keys (leaves);
// Prefixes are immediate children that have further descendants.
type ListResult struct {
	Keys     []string
	Prefixes []string
}

// Store is an abstract key->bytes mapping. Implementations may be genuinely
// concurrent (a remote object store client) or not (a plain map); callers
// must treat every call as a possibly-suspending operation.
type Store interface {
	// Get returns the bytes stored at key, or (nil, false, nil) if key is
	// absent. It never returns an error for a missing key; transport/IO
	// failures are a distinct, non-nil error return.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// GetPartial returns length bytes starting at offset within the value
	// stored at key, or (nil, false, nil) if key is absent. Implementations
	// without native range support may fall back to a full Get plus local
	// slicing; this must be transparent to callers except for performance.
	GetPartial(ctx context.Context, key string, offset, length int64) (data []byte, ok bool, err error)

	// Set stores data at key, overwriting any existing value.
	Set(ctx context.Context, key string, data []byte) error

	// SetIfAbsent stores data at key only if key is not already present.
	// Returns true if the value was written, false if key already existed.
	SetIfAbsent(ctx context.Context, key string, data []byte) (written bool, err error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Contains reports whether key exists.
	Contains(ctx context.Context, key string) (bool, error)

	// ListDir lists the immediate children of prefix, the way a directory
	// listing would: prefix itself is not included, and descendants beyond
	// one path segment are rolled up into Prefixes rather than enumerated.
	ListDir(ctx context.Context, prefix string) (ListResult, error)
}
