// Package storage saves uploaded image blobs and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// BlobStore persists blobs under slash-separated keys.
type BlobStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) error
	URL(key string) string
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
