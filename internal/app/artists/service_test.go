package artists

import (
	"context"
	"errors"
	"testing"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/store"
)

const (
	artistID  = "625a1b2c3d4e5f6a7b8c9d01"
	missingID = "625a1b2c3d4e5f6a7b8c9dff"
)

type stubStore struct {
	artists    map[string]store.Artist
	lastFilter store.ArtistFilter
	created    store.Artist
}

func newStubStore() *stubStore {
	return &stubStore{artists: map[string]store.Artist{
		artistID: {ID: artistID, Name: "A", UserID: "u1", SubscriptionLevel: 1},
	}}
}

func (s *stubStore) ListArtists(_ context.Context, filter store.ArtistFilter) ([]store.Artist, error) {
	s.lastFilter = filter
	var out []store.Artist
	for _, a := range s.artists {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubStore) GetArtist(_ context.Context, id string) (store.Artist, error) {
	a, ok := s.artists[id]
	if !ok {
		return store.Artist{}, store.ErrNotFound
	}
	return a, nil
}

func (s *stubStore) ArtistByUser(_ context.Context, userID string) (store.Artist, error) {
	for _, a := range s.artists {
		if a.UserID == userID {
			return a, nil
		}
	}
	return store.Artist{}, store.ErrNotFound
}

func (s *stubStore) CreateArtist(_ context.Context, artist store.Artist) (store.Artist, error) {
	artist.ID = "625a1b2c3d4e5f6a7b8c9d99"
	s.created = artist
	return artist, nil
}

func (s *stubStore) UpdateArtist(_ context.Context, id string, patch store.ArtistPatch) (store.Artist, error) {
	a, ok := s.artists[id]
	if !ok {
		return store.Artist{}, store.ErrNotFound
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.SubscriptionLevel != nil {
		a.SubscriptionLevel = *patch.SubscriptionLevel
	}
	s.artists[id] = a
	return a, nil
}

func (s *stubStore) DeleteArtist(_ context.Context, id string) (bool, error) {
	if _, ok := s.artists[id]; !ok {
		return false, nil
	}
	delete(s.artists, id)
	return true, nil
}

func TestCreateDefaultsSubscriptionLevel(t *testing.T) {
	st := newStubStore()
	svc := New(st)

	artist, err := svc.Create(context.Background(), " A ", nil, "u9")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if artist.SubscriptionLevel != 0 || artist.UserID != "u9" || artist.Name != "A" {
		t.Fatalf("unexpected artist %+v", artist)
	}

	level := 3
	if _, err := svc.Create(context.Background(), "B", &level, "u9"); err != nil || st.created.SubscriptionLevel != 3 {
		t.Fatalf("expected level 3, got %v %+v", err, st.created)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(newStubStore())

	if _, err := svc.Create(context.Background(), "A", nil, ""); !errors.Is(err, apperr.ErrMissingUserID) {
		t.Fatalf("expected MissingUserID, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "  ", nil, "u1"); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
	negative := -1
	if _, err := svc.Create(context.Background(), "A", &negative, "u1"); !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	svc := New(newStubStore())

	got, err := svc.List(context.Background(), Filter{UserID: "u1"})
	if err != nil || len(got) != 1 || got[0].ID != artistID {
		t.Fatalf("expected the owned artist, got %v %v", got, err)
	}

	got, err = svc.List(context.Background(), Filter{UserID: "nobody"})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v %v", got, err)
	}
}

func TestListByQuery(t *testing.T) {
	st := newStubStore()
	svc := New(st)

	if _, err := svc.List(context.Background(), Filter{Query: " beat "}); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if st.lastFilter.Query != "beat" {
		t.Fatalf("expected trimmed query, got %q", st.lastFilter.Query)
	}
}

func TestGetAndByUser(t *testing.T) {
	svc := New(newStubStore())

	if _, err := svc.Get(context.Background(), "123"); !errors.Is(err, apperr.ErrInvalidIdentifier) {
		t.Fatalf("expected InvalidIdentifier, got %v", err)
	}
	_, err := svc.Get(context.Background(), missingID)
	if !errors.Is(err, apperr.ErrArtistNotFound) || apperr.Detail(err) != "Artist "+missingID+" not found" {
		t.Fatalf("expected ArtistNotFound, got %v", err)
	}
	if _, err := svc.ByUser(context.Background(), "nobody"); !errors.Is(err, apperr.ErrArtistNotFoundForUser) {
		t.Fatalf("expected ArtistNotFoundForUser, got %v", err)
	}
}

func TestUpdateEnforcesOwnership(t *testing.T) {
	svc := New(newStubStore())
	level := 2

	_, err := svc.Update(context.Background(), artistID, store.ArtistPatch{SubscriptionLevel: &level}, auth.Caller{UserID: "u2"})
	if !errors.Is(err, apperr.ErrArtistNotOwnedByUser) {
		t.Fatalf("expected ArtistNotOwnedByUser, got %v", err)
	}

	got, err := svc.Update(context.Background(), artistID, store.ArtistPatch{SubscriptionLevel: &level}, auth.Caller{UserID: "u1"})
	if err != nil || got.SubscriptionLevel != 2 || got.Name != "A" {
		t.Fatalf("expected partial update, got %v %+v", err, got)
	}

	name := "Admin Renamed"
	got, err = svc.Update(context.Background(), artistID, store.ArtistPatch{Name: &name}, auth.Caller{UserID: "root", IsAdmin: true})
	if err != nil || got.Name != name {
		t.Fatalf("expected admin update, got %v %+v", err, got)
	}

	if _, err := svc.Update(context.Background(), missingID, store.ArtistPatch{}, auth.Caller{UserID: "u1"}); !errors.Is(err, apperr.ErrArtistNotFound) {
		t.Fatalf("expected ArtistNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := New(newStubStore())

	if err := svc.Delete(context.Background(), artistID, auth.Caller{}); !errors.Is(err, apperr.ErrMissingUserID) {
		t.Fatalf("expected MissingUserID, got %v", err)
	}
	if err := svc.Delete(context.Background(), artistID, auth.Caller{UserID: "u1"}); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := svc.Delete(context.Background(), artistID, auth.Caller{UserID: "u1"}); !errors.Is(err, apperr.ErrArtistNotFound) {
		t.Fatalf("expected ArtistNotFound after delete, got %v", err)
	}
}
