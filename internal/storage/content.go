package storage

import (
	"context"
	"errors"
	"fmt"
)

// AudioExtension is appended to every content key.
const AudioExtension = "mp3"

// Content maps song identifiers onto blobs in a Bucket.
type Content struct {
	bucket Bucket
}

// NewContent wraps bucket.
func NewContent(bucket Bucket) *Content {
	return &Content{bucket: bucket}
}

// Key derives the object key for a song.
func Key(songID string) string {
	return fmt.Sprintf("%s/%s.%s", songID, songID, AudioExtension)
}

// Get returns the audio for songID. found is false when nothing has been uploaded.
func (c *Content) Get(ctx context.Context, songID string) (data []byte, found bool, err error) {
	data, err = c.bucket.Read(ctx, Key(songID))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put stores data for songID, overwriting previous content.
func (c *Content) Put(ctx context.Context, songID string, data []byte) error {
	return c.bucket.Write(ctx, Key(songID), data)
}
