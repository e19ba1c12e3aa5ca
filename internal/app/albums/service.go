package albums

import (
	"context"
	"errors"
	"strings"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/ids"
	"spotifiuby/internal/store"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	ListAlbums(ctx context.Context, filter store.AlbumFilter) ([]store.Album, error)
	GetAlbum(ctx context.Context, id string) (store.Album, error)
	CreateAlbum(ctx context.Context, album store.Album) (store.Album, error)
	UpdateAlbum(ctx context.Context, id string, patch store.AlbumPatch) (store.Album, error)
	AddAlbumSong(ctx context.Context, id, songID string) (store.Album, error)
	AddAlbumArtist(ctx context.Context, id, artistID string) (store.Album, error)
	DeleteAlbum(ctx context.Context, id string) (bool, error)
}

// SongCatalog is the slice of the song service albums depend on.
type SongCatalog interface {
	CheckAvailable(ctx context.Context, id string) (store.Song, error)
	ByIDs(ctx context.Context, songIDs []string, tier int) ([]store.Song, error)
}

// ArtistLookup resolves artist references.
type ArtistLookup interface {
	GetArtist(ctx context.Context, id string) (store.Artist, error)
}

// Filter narrows an album listing.
type Filter struct {
	Query    string
	ArtistID string
}

// CreateRequest is the client-supplied part of a new album.
type CreateRequest struct {
	Name    string
	Artists []string
	Songs   []string
	Year    int
	Cover   *string
}

// Service exposes album operations.
type Service interface {
	List(ctx context.Context, filter Filter, tier int) ([]store.Album, error)
	Get(ctx context.Context, id string) (store.Album, error)
	Create(ctx context.Context, req CreateRequest) (store.Album, error)
	Update(ctx context.Context, id string, patch store.AlbumPatch) (store.Album, error)
	Delete(ctx context.Context, id string) error
	AddSong(ctx context.Context, id, songID string) (store.Album, error)
	AddArtist(ctx context.Context, id, artistID string) (store.Album, error)
	Songs(ctx context.Context, id string, tier int) ([]store.Song, error)
}

type service struct {
	store   Store
	songs   SongCatalog
	artists ArtistLookup
}

// New constructs an album Service.
func New(store Store, songs SongCatalog, artists ArtistLookup) Service {
	return &service{store: store, songs: songs, artists: artists}
}

func (s *service) List(ctx context.Context, filter Filter, tier int) ([]store.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := store.AlbumFilter{
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
	return s.store.ListAlbums(ctx, f)
}

func (s *service) Get(ctx context.Context, id string) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	if _, err := ids.Validate(ids.Album, id); err != nil {
		return store.Album{}, err
	}
	return s.get(ctx, id)
}

func (s *service) get(ctx context.Context, id string) (store.Album, error) {
	album, err := s.store.GetAlbum(ctx, id)
	return album, s.translate(id, err)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return store.Album{}, apperr.InvalidRequest("name is required")
	}
	if err := s.checkSongs(ctx, req.Songs); err != nil {
		return store.Album{}, err
	}
	if err := s.checkArtists(ctx, req.Artists); err != nil {
		return store.Album{}, err
	}

	return s.store.CreateAlbum(ctx, store.Album{
		Name:    name,
		Artists: req.Artists,
		Songs:   req.Songs,
		Year:    req.Year,
		Cover:   req.Cover,
	})
}

func (s *service) Update(ctx context.Context, id string, patch store.AlbumPatch) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	if _, err := ids.Validate(ids.Album, id); err != nil {
		return store.Album{}, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return store.Album{}, apperr.InvalidRequest("name must not be empty")
	}
	if err := s.checkSongs(ctx, patch.Songs); err != nil {
		return store.Album{}, err
	}
	if err := s.checkArtists(ctx, patch.Artists); err != nil {
		return store.Album{}, err
	}

	album, err := s.store.UpdateAlbum(ctx, id, patch)
	return album, s.translate(id, err)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ids.Validate(ids.Album, id); err != nil {
		return err
	}

	deleted, err := s.store.DeleteAlbum(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.AlbumNotFound(id)
	}
	return nil
}

func (s *service) AddSong(ctx context.Context, id, songID string) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	if _, err := ids.Validate(ids.Album, id); err != nil {
		return store.Album{}, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return store.Album{}, err
	}
	if _, err := s.songs.CheckAvailable(ctx, songID); err != nil {
		return store.Album{}, err
	}

	album, err := s.store.AddAlbumSong(ctx, id, songID)
	return album, s.translate(id, err)
}

func (s *service) AddArtist(ctx context.Context, id, artistID string) (store.Album, error) {
	if err := ctx.Err(); err != nil {
		return store.Album{}, err
	}
	if _, err := ids.Validate(ids.Album, id); err != nil {
		return store.Album{}, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return store.Album{}, err
	}
	if err := s.checkArtists(ctx, []string{artistID}); err != nil {
		return store.Album{}, err
	}

	album, err := s.store.AddAlbumArtist(ctx, id, artistID)
	return album, s.translate(id, err)
}

func (s *service) Songs(ctx context.Context, id string, tier int) ([]store.Song, error) {
	album, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.songs.ByIDs(ctx, album.Songs, tier)
}

// checkSongs requires every song to exist and be available.
func (s *service) checkSongs(ctx context.Context, songIDs []string) error {
	for _, songID := range songIDs {
		if _, err := s.songs.CheckAvailable(ctx, songID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) checkArtists(ctx context.Context, artistIDs []string) error {
	for _, artistID := range artistIDs {
		if _, err := ids.Validate(ids.Artist, artistID); err != nil {
			return err
		}
		if _, err := s.artists.GetArtist(ctx, artistID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ArtistNotFound(artistID)
			}
			return err
		}
	}
	return nil
}

func (s *service) translate(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.AlbumNotFound(id)
	}
	return err
}
