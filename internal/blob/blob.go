// Package blob stores photo bytes. The database keeps the metadata; a
// Store keeps the file under the photo's key.
package blob

import (
	"context"
	"io"
	"strings"

	"github.com/sakif/fitlog/internal/apperror"
)

// Store is an object store keyed by opaque strings.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	// Get returns apperror.ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
}

// checkKey rejects keys that could escape a directory or bucket prefix.
// Photo keys are xids, so anything else is a bug in the caller.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return apperror.ValidationFailed("key", "invalid blob key")
	}
	return nil
}
