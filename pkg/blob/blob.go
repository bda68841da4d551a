// Package blob defines the artifact-store contract. Implementations live
// in internal/ioblob: an S3-compatible remote store with a local cache,
// and a purely local store used when no endpoint is configured.
package blob

import "context"

// Store holds opaque artifacts (serialized models, prediction exports)
// under caller-chosen keys.
type Store interface {
	// Put writes data under key and returns a resolvable reference.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get resolves a reference produced by Put.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes the artifact. Deleting an absent reference is not
	// an error.
	Delete(ctx context.Context, ref string) error
}
