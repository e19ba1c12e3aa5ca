package ids

import (
	"errors"
	"testing"

	"spotifiuby/internal/apperr"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "valid lowercase", id: "625a1b2c3d4e5f6a7b8c9d0e"},
		{name: "valid uppercase", id: "625A1B2C3D4E5F6A7B8C9D0E"},
		{name: "too short", id: "123", wantErr: true},
		{name: "non hex", id: "zzza1b2c3d4e5f6a7b8c9d0e", wantErr: true},
		{name: "empty", id: "", wantErr: true},
		{name: "too long", id: "625a1b2c3d4e5f6a7b8c9d0e00", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(Song, tc.id)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.id)
				}
				if !errors.Is(err, apperr.ErrInvalidIdentifier) {
					t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.id {
				t.Fatalf("expected %q, got %q", tc.id, got)
			}
		})
	}
}

func TestValidateMessageNamesKind(t *testing.T) {
	_, err := Validate(Album, "123")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got, want := err.Error(), "Album ID '123' is not valid"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestValidateAllStopsAtFirstInvalid(t *testing.T) {
	err := ValidateAll(Song, []string{"625a1b2c3d4e5f6a7b8c9d0e", "bad", "also-bad"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got, want := err.Error(), "Song ID 'bad' is not valid"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNewProducesValidIdentifiers(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := New()
		if !Valid(id) {
			t.Fatalf("generated invalid id %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
