// Package ids validates and generates catalog entity identifiers.
//
// Identifiers are 24 hex character document keys in the MongoDB ObjectID
// format, regardless of which store backend persists them.
package ids

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spotifiuby/internal/apperr"
)

// Entity kinds used in validation messages.
const (
	Song     = "Song"
	Artist   = "Artist"
	Album    = "Album"
	Playlist = "Playlist"
)

// Valid reports whether id is a well-formed identifier.
func Valid(id string) bool {
	return primitive.IsValidObjectID(id)
}

// Validate returns id unchanged when well formed, otherwise an InvalidIdentifier error naming kind.
func Validate(kind, id string) (string, error) {
	if !Valid(id) {
		return "", apperr.InvalidIdentifier(kind, id)
	}
	return id, nil
}

// ValidateAll checks every id and fails on the first malformed one.
func ValidateAll(kind string, values []string) error {
	for _, id := range values {
		if _, err := Validate(kind, id); err != nil {
			return err
		}
	}
	return nil
}

// New returns a fresh identifier.
func New() string {
	return primitive.NewObjectID().Hex()
}
