// Package storage abstracts the object store that holds synthesized audio.
package storage

import "context"

// ObjectStore uploads bytes under a deterministic path and returns a
// retrievable URL. Delete is used by cache expiry sweeps; deleting a
// missing object is not an error.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}
