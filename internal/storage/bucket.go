// Package storage holds song audio blobs.
//
// A Bucket is a flat key/value object store; Content maps song identifiers
// onto keys of the form "{id}/{id}.mp3".
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by a Bucket when no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// Bucket reads and writes whole objects.
type Bucket interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}
