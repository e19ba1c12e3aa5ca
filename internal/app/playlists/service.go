package playlists

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/ids"
	"spotifiuby/internal/store"
)

// Store captures the persistence needs for playlist workflows.
type Store interface {
	ListPlaylists(ctx context.Context, filter store.PlaylistFilter) ([]store.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (store.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist store.Playlist) (store.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, patch store.PlaylistPatch) (store.Playlist, error)
	AppendPlaylistSongs(ctx context.Context, id string, songIDs []string) (store.Playlist, error)
	RemovePlaylistSong(ctx context.Context, id, songID string) (store.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) (bool, error)
}

// SongCatalog is the slice of the song service playlists depend on.
type SongCatalog interface {
	CheckAvailable(ctx context.Context, id string) (store.Song, error)
	ByIDs(ctx context.Context, songIDs []string, tier int) ([]store.Song, error)
}

// CreateRequest is the client-supplied part of a new playlist.
type CreateRequest struct {
	Name  string
	Songs []string
	Cover *string
}

// Service coordinates playlist-related operations.
// Mutations other than Create are restricted to the playlist owner.
type Service interface {
	List(ctx context.Context, query string) ([]store.Playlist, error)
	Get(ctx context.Context, id string) (store.Playlist, error)
	Create(ctx context.Context, req CreateRequest, ownerID string) (store.Playlist, error)
	Update(ctx context.Context, id string, patch store.PlaylistPatch, userID string) (store.Playlist, error)
	Delete(ctx context.Context, id string, userID string) error
	IsOwner(ctx context.Context, id, userID string) (bool, error)
	AddSongs(ctx context.Context, id string, songIDs []string, userID string) (store.Playlist, error)
	DeleteSong(ctx context.Context, id, songID, userID string) (store.Playlist, error)
	Songs(ctx context.Context, id string, tier int) ([]store.Song, error)
}

type service struct {
	store Store
	songs SongCatalog
}

// New constructs a Service backed by the provided Store.
func New(store Store, songs SongCatalog) Service {
	return &service{store: store, songs: songs}
}

func (s *service) List(ctx context.Context, query string) ([]store.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPlaylists(ctx, store.PlaylistFilter{Query: strings.TrimSpace(query)})
}

func (s *service) Get(ctx context.Context, id string) (store.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Playlist{}, err
	}
	if _, err := ids.Validate(ids.Playlist, id); err != nil {
		return store.Playlist{}, err
	}
	return s.get(ctx, id)
}

func (s *service) get(ctx context.Context, id string) (store.Playlist, error) {
	playlist, err := s.store.GetPlaylist(ctx, id)
	return playlist, translate(id, err)
}

func (s *service) Create(ctx context.Context, req CreateRequest, ownerID string) (store.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Playlist{}, err
	}
	if ownerID == "" {
		return store.Playlist{}, apperr.MissingUserID()
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return store.Playlist{}, apperr.InvalidRequest("name is required")
	}
	for _, songID := range req.Songs {
		if _, err := s.songs.CheckAvailable(ctx, songID); err != nil {
			return store.Playlist{}, err
		}
	}

	return s.store.CreatePlaylist(ctx, store.Playlist{
		Name:  name,
		Owner: ownerID,
		Songs: req.Songs,
		Cover: req.Cover,
	})
}

// Update replaces fields without checking that referenced songs exist.
func (s *service) Update(ctx context.Context, id string, patch store.PlaylistPatch, userID string) (store.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Playlist{}, err
	}
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return store.Playlist{}, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return store.Playlist{}, apperr.InvalidRequest("name must not be empty")
	}
	if err := ids.ValidateAll(ids.Song, patch.Songs); err != nil {
		return store.Playlist{}, err
	}

	playlist, err := s.store.UpdatePlaylist(ctx, id, patch)
	return playlist, translate(id, err)
}

func (s *service) Delete(ctx context.Context, id string, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return err
	}

	deleted, err := s.store.DeletePlaylist(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.PlaylistNotFound(id)
	}
	return nil
}

func (s *service) IsOwner(ctx context.Context, id, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := ids.Validate(ids.Playlist, id); err != nil {
		return false, err
	}
	playlist, err := s.get(ctx, id)
	if err != nil {
		return false, err
	}
	return playlist.Owner == userID, nil
}

// AddSongs validates every song before appending any of them.
func (s *service) AddSongs(ctx context.Context, id string, songIDs []string, userID string) (store.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Playlist{}, err
	}
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return store.Playlist{}, err
	}
	for _, songID := range songIDs {
		if _, err := s.songs.CheckAvailable(ctx, songID); err != nil {
			return store.Playlist{}, err
		}
	}
	if len(songIDs) == 0 {
		return s.get(ctx, id)
	}

	playlist, err := s.store.AppendPlaylistSongs(ctx, id, songIDs)
	if err != nil {
		return store.Playlist{}, translate(id, err)
	}
	zerolog.Ctx(ctx).Info().Str("playlist_id", id).Int("songs", len(songIDs)).Msg("songs added to playlist")
	return playlist, nil
}

func (s *service) DeleteSong(ctx context.Context, id, songID, userID string) (store.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return store.Playlist{}, err
	}
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return store.Playlist{}, err
	}
	if _, err := ids.Validate(ids.Song, songID); err != nil {
		return store.Playlist{}, err
	}

	playlist, err := s.store.RemovePlaylistSong(ctx, id, songID)
	return playlist, translate(id, err)
}

func (s *service) Songs(ctx context.Context, id string, tier int) ([]store.Song, error) {
	playlist, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.songs.ByIDs(ctx, playlist.Songs, tier)
}

func (s *service) requireOwner(ctx context.Context, id, userID string) error {
	if _, err := ids.Validate(ids.Playlist, id); err != nil {
		return err
	}
	if userID == "" {
		return apperr.MissingUserID()
	}
	owner, err := s.IsOwner(ctx, id, userID)
	if err != nil {
		return err
	}
	if !owner {
		return apperr.PlaylistNotOwnedByUser(id, userID)
	}
	return nil
}

func translate(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.PlaylistNotFound(id)
	}
	return err
}
