package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrapsToKind(t *testing.T) {
	err := PlaylistNotFound("625a1b2c3d4e5f6a7b8c9d0e")

	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
	if errors.Is(err, ErrSongNotFound) {
		t.Fatalf("did not expect ErrSongNotFound match")
	}
	if got, want := err.Error(), "Playlist 625a1b2c3d4e5f6a7b8c9d0e not found"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDetailThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", InvalidIdentifier("Song", "123"))

	if got, want := Detail(err), "Song ID '123' is not valid"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier through wrap")
	}
}

func TestDetailFallsBackToErrorText(t *testing.T) {
	if got := Detail(errors.New("boom")); got != "boom" {
		t.Fatalf("expected boom, got %q", got)
	}
}
