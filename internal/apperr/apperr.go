// Package apperr defines the catalog error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier indicates a malformed entity identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrInvalidRequest indicates a request payload that failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	ErrSongNotFound          = errors.New("song not found")
	ErrArtistNotFound        = errors.New("artist not found")
	ErrArtistNotFoundForUser = errors.New("artist not found for user")
	ErrAlbumNotFound         = errors.New("album not found")
	ErrPlaylistNotFound      = errors.New("playlist not found")

	ErrSongNotAvailable = errors.New("song not available")

	ErrSongNotOwnedByUser     = errors.New("song not owned by user")
	ErrArtistNotOwnedByUser   = errors.New("artist not owned by user")
	ErrPlaylistNotOwnedByUser = errors.New("playlist not owned by user")

	ErrMissingUserID = errors.New("missing user id")
	ErrInvalidAPIKey = errors.New("invalid api key")
	ErrInvalidToken  = errors.New("invalid token")

	ErrContentNotFound  = errors.New("content not found")
	ErrContentForbidden = errors.New("content forbidden")
)

// Error pairs a taxonomy kind with the detail shown to clients.
type Error struct {
	kind   error
	detail string
}

// New builds an Error of the given kind.
func New(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.detail }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the taxonomy sentinel.
func (e *Error) Kind() error { return e.kind }

// Detail extracts the client-facing message, falling back to err.Error().
func Detail(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.detail
	}
	return err.Error()
}

func InvalidIdentifier(kind, id string) error {
	return New(ErrInvalidIdentifier, "%s ID '%s' is not valid", kind, id)
}

func InvalidRequest(format string, args ...any) error {
	return New(ErrInvalidRequest, format, args...)
}

func SongNotFound(id string) error {
	return New(ErrSongNotFound, "Song not found %s", id)
}

func SongNotAvailable(id string) error {
	return New(ErrSongNotAvailable, "Song not available %s", id)
}

func SongNotOwnedByUser(songID, userID string) error {
	return New(ErrSongNotOwnedByUser, "The owner of song %s is not %s", songID, userID)
}

func ArtistNotFound(id string) error {
	return New(ErrArtistNotFound, "Artist %s not found", id)
}

func ArtistNotFoundForUser(userID string) error {
	return New(ErrArtistNotFoundForUser, "Artist not found for user %s", userID)
}

func ArtistNotOwnedByUser(artistID, userID string) error {
	return New(ErrArtistNotOwnedByUser, "The owner of artist %s is not %s", artistID, userID)
}

func AlbumNotFound(id string) error {
	return New(ErrAlbumNotFound, "Album %s not found", id)
}

func PlaylistNotFound(id string) error {
	return New(ErrPlaylistNotFound, "Playlist %s not found", id)
}

func PlaylistNotOwnedByUser(playlistID, userID string) error {
	return New(ErrPlaylistNotOwnedByUser, "The owner of playlist %s is not %s", playlistID, userID)
}

func MissingUserID() error {
	return New(ErrMissingUserID, "x_user_id is missing")
}

func InvalidAPIKey() error {
	return New(ErrInvalidAPIKey, "Invalid API key")
}

func ContentNotFound(songID string) error {
	return New(ErrContentNotFound, "Content not found for Song %s", songID)
}

func ContentForbidden(songID, userID string) error {
	return New(ErrContentForbidden, "User %s can not download content of Song %s", userID, songID)
}
