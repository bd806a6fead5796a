package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// BlobStore keeps attachment bytes addressed by key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a collision-free key that keeps the original file name.
func NewKey(prefix, filename string) string {
	name := path.Base(filepath.ToSlash(filename))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return path.Join(prefix, uuid.NewString(), name)
}

// ContentType guesses the mime type of a key from its extension.
func ContentType(key string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(key))); t != "" {
		return t
	}
	return "application/octet-stream"
}

// ReadAll fetches the object into memory.
func ReadAll(ctx context.Context, store BlobStore, key string) ([]byte, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
