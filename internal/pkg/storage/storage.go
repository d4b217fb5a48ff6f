// Package storage stores small opaque objects (captured sessions,
// screenshots) on the local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ErrInvalidKey is returned for empty keys or keys escaping the root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Storage defines object storage operations. Every adapter is bound to a
// single bucket or root directory.
type Storage interface {
	io.Closer

	// PutObject stores data under key, replacing any previous object.
	PutObject(ctx context.Context, key string, data []byte, opts PutOptions) (ObjectInfo, error)
	// GetObject returns the object contents and metadata.
	GetObject(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	// StatObject returns object metadata without reading its contents.
	StatObject(ctx context.Context, key string) (ObjectInfo, error)
	// DeleteObject removes the object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error
}

// PutOptions configures upload behavior.
type PutOptions struct {
	// ContentType is the MIME type for the object.
	ContentType string
	// Metadata includes custom key/value metadata.
	Metadata map[string]string
}

// ObjectInfo describes object metadata.
type ObjectInfo struct {
	// Location is the driver-qualified address, e.g. s3://bucket/key.
	Location string
	// Key is the object key.
	Key string
	// Size is the object size in bytes.
	Size int64
	// ETag is the object ETag when provided.
	ETag string
	// ContentType is the object MIME type.
	ContentType string
	// Metadata is user-defined metadata.
	Metadata map[string]string
	// UpdatedAt is the last modified time.
	UpdatedAt time.Time
}

// CleanKey normalizes a slash separated key and rejects empty keys and
// keys containing "..".
func CleanKey(key string) (string, error) {
	key = strings.Trim(strings.ReplaceAll(key, "\\", "/"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
