package songs

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/events"
	"spotifiuby/internal/ids"
	"spotifiuby/internal/store"
	"spotifiuby/internal/tasks"
)

// Store captures the persistence needs for song workflows.
type Store interface {
	ListSongs(ctx context.Context, filter store.SongFilter) ([]store.Song, error)
	GetSong(ctx context.Context, id string) (store.Song, error)
	CreateSong(ctx context.Context, song store.Song) (store.Song, error)
	UpdateSong(ctx context.Context, id string, patch store.SongPatch) (store.Song, error)
	DeleteSong(ctx context.Context, id string) (bool, error)
}

// ArtistLookup resolves artist references.
type ArtistLookup interface {
	GetArtist(ctx context.Context, id string) (store.Artist, error)
	ArtistByUser(ctx context.Context, userID string) (store.Artist, error)
}

// Submitter runs work off the request path.
type Submitter interface {
	Submit(name string, fn tasks.Task) bool
}

// Filter narrows a song listing.
type Filter struct {
	Query    string
	ArtistID string
}

// CreateRequest is the client-supplied part of a new song.
type CreateRequest struct {
	Name    string
	Genre   string
	Artists []string
}

// Service exposes song-centric operations.
type Service interface {
	List(ctx context.Context, filter Filter, tier int) ([]store.Song, error)
	Get(ctx context.Context, id string) (store.Song, error)
	Create(ctx context.Context, req CreateRequest, userID string) (store.Song, error)
	Update(ctx context.Context, id string, patch store.SongPatch, caller auth.Caller) (store.Song, error)
	Delete(ctx context.Context, id string, caller auth.Caller) error
	IsOwner(ctx context.Context, songID, userID string) (bool, error)

	// CheckAvailable returns the song if it exists and is not inactive.
	CheckAvailable(ctx context.Context, id string) (store.Song, error)
	// ByIDs resolves ids in order, dropping songs above tier and missing songs.
	ByIDs(ctx context.Context, songIDs []string, tier int) ([]store.Song, error)
}

type service struct {
	store   Store
	artists ArtistLookup
	events  events.Publisher
	queue   Submitter
}

// New constructs a song Service. publisher and queue may be nil; without a
// queue events are published from a detached goroutine.
func New(store Store, artists ArtistLookup, publisher events.Publisher, queue Submitter) Service {
	return &service{store: store, artists: artists, events: publisher, queue: queue}
}

func (s *service) List(ctx context.Context, filter Filter, tier int) ([]store.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := store.SongFilter{
		Query:                strings.TrimSpace(filter.Query),
		MaxSubscriptionLevel: &tier,
	}
	if filter.ArtistID != "" {
		artistID, err := ids.Validate(ids.Artist, filter.ArtistID)
		if err != nil {
			return nil, err
		}
		f.ArtistID = artistID
	}
	return s.store.ListSongs(ctx, f)
}

func (s *service) Get(ctx context.Context, id string) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	if _, err := ids.Validate(ids.Song, id); err != nil {
		return store.Song{}, err
	}
	return s.get(ctx, id)
}

func (s *service) get(ctx context.Context, id string) (store.Song, error) {
	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Song{}, apperr.SongNotFound(id)
		}
		return store.Song{}, err
	}
	return song, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest, userID string) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	if userID == "" {
		return store.Song{}, apperr.MissingUserID()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return store.Song{}, apperr.InvalidRequest("name is required")
	}

	creator, err := s.artists.ArtistByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Song{}, apperr.ArtistNotFoundForUser(userID)
		}
		return store.Song{}, err
	}

	artistIDs := req.Artists
	if len(artistIDs) == 0 {
		artistIDs = []string{creator.ID}
	}
	for _, artistID := range artistIDs {
		if !ids.Valid(artistID) {
			return store.Song{}, apperr.ArtistNotFoundForUser(userID)
		}
		if _, err := s.artists.GetArtist(ctx, artistID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Song{}, apperr.ArtistNotFoundForUser(userID)
			}
			return store.Song{}, err
		}
	}

	song, err := s.store.CreateSong(ctx, store.Song{
		Name:    name,
		Genre:   strings.TrimSpace(req.Genre),
		Artists: artistIDs,
	})
	if err != nil {
		return store.Song{}, err
	}

	zerolog.Ctx(ctx).Info().Str("song_id", song.ID).Str("user_id", userID).Msg("song created")
	s.publish(ctx, events.SongCreated, song)
	return song, nil
}

func (s *service) publish(ctx context.Context, eventType string, payload any) {
	if s.events == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	fn := func(taskCtx context.Context) error {
		s.events.Publish(logger.WithContext(taskCtx), eventType, payload)
		return nil
	}
	if s.queue != nil {
		if !s.queue.Submit("event:"+eventType, fn) {
			logger.Warn().Str("event", eventType).Msg("event dropped")
		}
		return
	}
	go func() {
		if err := fn(context.Background()); err != nil {
			log.Warn().Str("event", eventType).Err(err).Msg("publish failed")
		}
	}()
}

func (s *service) Update(ctx context.Context, id string, patch store.SongPatch, caller auth.Caller) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	if _, err := ids.Validate(ids.Song, id); err != nil {
		return store.Song{}, err
	}
	if err := s.authorize(ctx, id, caller); err != nil {
		return store.Song{}, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return store.Song{}, apperr.InvalidRequest("name must not be empty")
	}
	for _, artistID := range patch.Artists {
		if _, err := ids.Validate(ids.Artist, artistID); err != nil {
			return store.Song{}, err
		}
		if _, err := s.artists.GetArtist(ctx, artistID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Song{}, apperr.ArtistNotFound(artistID)
			}
			return store.Song{}, err
		}
	}

	song, err := s.store.UpdateSong(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Song{}, apperr.SongNotFound(id)
		}
		return store.Song{}, err
	}
	return song, nil
}

func (s *service) Delete(ctx context.Context, id string, caller auth.Caller) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ids.Validate(ids.Song, id); err != nil {
		return err
	}
	if err := s.authorize(ctx, id, caller); err != nil {
		return err
	}

	deleted, err := s.store.DeleteSong(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.SongNotFound(id)
	}
	return nil
}

// authorize allows the owner of any listed artist, or an admin.
func (s *service) authorize(ctx context.Context, id string, caller auth.Caller) error {
	if caller.UserID == "" {
		return apperr.MissingUserID()
	}
	owner, err := s.IsOwner(ctx, id, caller.UserID)
	if err != nil {
		return err
	}
	if !owner && !caller.IsAdmin {
		return apperr.SongNotOwnedByUser(id, caller.UserID)
	}
	return nil
}

func (s *service) IsOwner(ctx context.Context, songID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	song, err := s.get(ctx, songID)
	if err != nil {
		return false, err
	}
	for _, artistID := range song.Artists {
		artist, err := s.artists.GetArtist(ctx, artistID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return false, err
		}
		if artist.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) CheckAvailable(ctx context.Context, id string) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	if _, err := ids.Validate(ids.Song, id); err != nil {
		return store.Song{}, err
	}
	song, err := s.get(ctx, id)
	if err != nil {
		return store.Song{}, err
	}
	if !song.Status.Available() {
		return store.Song{}, apperr.SongNotAvailable(id)
	}
	return song, nil
}

func (s *service) ByIDs(ctx context.Context, songIDs []string, tier int) ([]store.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(songIDs) == 0 {
		return []store.Song{}, nil
	}

	found, err := s.store.ListSongs(ctx, store.SongFilter{
		IDs:                  songIDs,
		MaxSubscriptionLevel: &tier,
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]store.Song, len(found))
	for _, song := range found {
		byID[song.ID] = song
	}
	ordered := make([]store.Song, 0, len(songIDs))
	for _, id := range songIDs {
		if song, ok := byID[id]; ok {
			ordered = append(ordered, song)
		}
	}
	return ordered, nil
}
