package artists

import (
	"context"
	"errors"
	"strings"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/ids"
	"spotifiuby/internal/store"
)

// Store captures the persistence needs for artist workflows.
type Store interface {
	ListArtists(ctx context.Context, filter store.ArtistFilter) ([]store.Artist, error)
	GetArtist(ctx context.Context, id string) (store.Artist, error)
	ArtistByUser(ctx context.Context, userID string) (store.Artist, error)
	CreateArtist(ctx context.Context, artist store.Artist) (store.Artist, error)
	UpdateArtist(ctx context.Context, id string, patch store.ArtistPatch) (store.Artist, error)
	DeleteArtist(ctx context.Context, id string) (bool, error)
}

// Filter narrows an artist listing. UserID selects the artist owned by that user.
type Filter struct {
	Query  string
	UserID string
}

// Service coordinates artist-related operations.
type Service interface {
	List(ctx context.Context, filter Filter) ([]store.Artist, error)
	Get(ctx context.Context, id string) (store.Artist, error)
	ByUser(ctx context.Context, userID string) (store.Artist, error)
	Create(ctx context.Context, name string, subscriptionLevel *int, userID string) (store.Artist, error)
	Update(ctx context.Context, id string, patch store.ArtistPatch, caller auth.Caller) (store.Artist, error)
	Delete(ctx context.Context, id string, caller auth.Caller) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, filter Filter) ([]store.Artist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		artist, err := s.store.ArtistByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return []store.Artist{}, nil
			}
			return nil, err
		}
		return []store.Artist{artist}, nil
	}
	return s.store.ListArtists(ctx, store.ArtistFilter{Query: strings.TrimSpace(filter.Query)})
}

func (s *service) Get(ctx context.Context, id string) (store.Artist, error) {
	if err := ctx.Err(); err != nil {
		return store.Artist{}, err
	}
	if _, err := ids.Validate(ids.Artist, id); err != nil {
		return store.Artist{}, err
	}
	return s.get(ctx, id)
}

func (s *service) get(ctx context.Context, id string) (store.Artist, error) {
	artist, err := s.store.GetArtist(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Artist{}, apperr.ArtistNotFound(id)
		}
		return store.Artist{}, err
	}
	return artist, nil
}

func (s *service) ByUser(ctx context.Context, userID string) (store.Artist, error) {
	if err := ctx.Err(); err != nil {
		return store.Artist{}, err
	}
	if userID == "" {
		return store.Artist{}, apperr.MissingUserID()
	}
	artist, err := s.store.ArtistByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Artist{}, apperr.ArtistNotFoundForUser(userID)
		}
		return store.Artist{}, err
	}
	return artist, nil
}

func (s *service) Create(ctx context.Context, name string, subscriptionLevel *int, userID string) (store.Artist, error) {
	if err := ctx.Err(); err != nil {
		return store.Artist{}, err
	}
	if userID == "" {
		return store.Artist{}, apperr.MissingUserID()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Artist{}, apperr.InvalidRequest("name is required")
	}

	level := 0
	if subscriptionLevel != nil {
		level = *subscriptionLevel
	}
	if level < 0 {
		return store.Artist{}, apperr.InvalidRequest("subscription_level must not be negative")
	}

	return s.store.CreateArtist(ctx, store.Artist{
		Name:              name,
		UserID:            userID,
		SubscriptionLevel: level,
	})
}

func (s *service) Update(ctx context.Context, id string, patch store.ArtistPatch, caller auth.Caller) (store.Artist, error) {
	if err := ctx.Err(); err != nil {
		return store.Artist{}, err
	}
	if _, err := ids.Validate(ids.Artist, id); err != nil {
		return store.Artist{}, err
	}
	if err := s.authorize(ctx, id, caller); err != nil {
		return store.Artist{}, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return store.Artist{}, apperr.InvalidRequest("name must not be empty")
	}
	if patch.SubscriptionLevel != nil && *patch.SubscriptionLevel < 0 {
		return store.Artist{}, apperr.InvalidRequest("subscription_level must not be negative")
	}

	artist, err := s.store.UpdateArtist(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Artist{}, apperr.ArtistNotFound(id)
		}
		return store.Artist{}, err
	}
	return artist, nil
}

func (s *service) Delete(ctx context.Context, id string, caller auth.Caller) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ids.Validate(ids.Artist, id); err != nil {
		return err
	}
	if err := s.authorize(ctx, id, caller); err != nil {
		return err
	}

	deleted, err := s.store.DeleteArtist(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.ArtistNotFound(id)
	}
	return nil
}

// authorize allows the owning user or an admin.
func (s *service) authorize(ctx context.Context, id string, caller auth.Caller) error {
	if caller.UserID == "" {
		return apperr.MissingUserID()
	}
	artist, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if artist.UserID != caller.UserID && !caller.IsAdmin {
		return apperr.ArtistNotOwnedByUser(id, caller.UserID)
	}
	return nil
}
