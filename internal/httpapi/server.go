package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"spotifiuby/internal/app/albums"
	"spotifiuby/internal/app/artists"
	"spotifiuby/internal/app/playlists"
	"spotifiuby/internal/app/songs"
	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/store"
)

const (
	headerUserID        = "X-User-Id"
	headerAPIKey        = "X-Api-Key"
	headerAuthorization = "Authorization"
)

// SongService coordinates track-level operations.
type SongService interface {
	List(ctx context.Context, filter songs.Filter, tier int) ([]store.Song, error)
	Get(ctx context.Context, id string) (store.Song, error)
	Create(ctx context.Context, req songs.CreateRequest, userID string) (store.Song, error)
	Update(ctx context.Context, id string, patch store.SongPatch, caller auth.Caller) (store.Song, error)
	Delete(ctx context.Context, id string, caller auth.Caller) error
}

// ArtistService describes artist catalogue workflows.
type ArtistService interface {
	List(ctx context.Context, filter artists.Filter) ([]store.Artist, error)
	Get(ctx context.Context, id string) (store.Artist, error)
	Create(ctx context.Context, name string, subscriptionLevel *int, userID string) (store.Artist, error)
	Update(ctx context.Context, id string, patch store.ArtistPatch, caller auth.Caller) (store.Artist, error)
	Delete(ctx context.Context, id string, caller auth.Caller) error
}

// AlbumService exposes album-specific workflows.
type AlbumService interface {
	List(ctx context.Context, filter albums.Filter, tier int) ([]store.Album, error)
	Get(ctx context.Context, id string) (store.Album, error)
	Create(ctx context.Context, req albums.CreateRequest) (store.Album, error)
	Update(ctx context.Context, id string, patch store.AlbumPatch) (store.Album, error)
	Delete(ctx context.Context, id string) error
	AddSong(ctx context.Context, id, songID string) (store.Album, error)
	AddArtist(ctx context.Context, id, artistID string) (store.Album, error)
	Songs(ctx context.Context, id string, tier int) ([]store.Song, error)
}

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	List(ctx context.Context, query string) ([]store.Playlist, error)
	Get(ctx context.Context, id string) (store.Playlist, error)
	Create(ctx context.Context, req playlists.CreateRequest, ownerID string) (store.Playlist, error)
	Update(ctx context.Context, id string, patch store.PlaylistPatch, userID string) (store.Playlist, error)
	Delete(ctx context.Context, id string, userID string) error
	AddSongs(ctx context.Context, id string, songIDs []string, userID string) (store.Playlist, error)
	DeleteSong(ctx context.Context, id, songID, userID string) (store.Playlist, error)
	Songs(ctx context.Context, id string, tier int) ([]store.Song, error)
}

// ContentService streams and accepts song audio.
type ContentService interface {
	Download(ctx context.Context, songID string, caller auth.Caller) ([]byte, error)
	Upload(ctx context.Context, songID string, data []byte) (store.Song, error)
}

// Authorizer checks service keys and resolves callers.
type Authorizer interface {
	VerifyServiceAPIKey(key string) error
	ResolveCaller(ctx context.Context, p auth.Principal) auth.Caller
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	songs     SongService
	artists   ArtistService
	albums    AlbumService
	playlists PlaylistService
	content   ContentService
	gate      Authorizer
}

// New configures a Server.
func New(
	songs SongService,
	artists ArtistService,
	albums AlbumService,
	playlists PlaylistService,
	content ContentService,
	gate Authorizer,
) *Server {
	return &Server{
		songs:     songs,
		artists:   artists,
		albums:    albums,
		playlists: playlists,
		content:   content,
		gate:      gate,
	}
}

// Routes exposes the catalog endpoints. Liveness routes skip the API key check.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(s.requireAPIKey, echoAuthorization)

	api.HandleFunc("/songs", s.handleListSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs", s.handleCreateSong).Methods(http.MethodPost)
	api.HandleFunc("/songs/{song_id}", s.handleGetSong).Methods(http.MethodGet)
	api.HandleFunc("/songs/{song_id}", s.handleUpdateSong).Methods(http.MethodPut)
	api.HandleFunc("/songs/{song_id}", s.handleDeleteSong).Methods(http.MethodDelete)
	api.HandleFunc("/songs/{song_id}/content", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/songs/{song_id}/content", s.handleUpload).Methods(http.MethodPost)

	api.HandleFunc("/artists", s.handleListArtists).Methods(http.MethodGet)
	api.HandleFunc("/artists", s.handleCreateArtist).Methods(http.MethodPost)
	api.HandleFunc("/artists/{artist_id}", s.handleGetArtist).Methods(http.MethodGet)
	api.HandleFunc("/artists/{artist_id}", s.handleUpdateArtist).Methods(http.MethodPut)
	api.HandleFunc("/artists/{artist_id}", s.handleDeleteArtist).Methods(http.MethodDelete)

	api.HandleFunc("/albums", s.handleListAlbums).Methods(http.MethodGet)
	api.HandleFunc("/albums", s.handleCreateAlbum).Methods(http.MethodPost)
	api.HandleFunc("/albums/{album_id}", s.handleGetAlbum).Methods(http.MethodGet)
	api.HandleFunc("/albums/{album_id}", s.handleUpdateAlbum).Methods(http.MethodPut)
	api.HandleFunc("/albums/{album_id}", s.handleDeleteAlbum).Methods(http.MethodDelete)
	api.HandleFunc("/albums/{album_id}/songs", s.handleAlbumSongs).Methods(http.MethodGet)
	api.HandleFunc("/albums/{album_id}/songs", s.handleAlbumAddSong).Methods(http.MethodPut)
	api.HandleFunc("/albums/{album_id}/artists", s.handleAlbumAddArtist).Methods(http.MethodPut)

	api.HandleFunc("/playlists", s.handleListPlaylists).Methods(http.MethodGet)
	api.HandleFunc("/playlists", s.handleCreatePlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{playlist_id}", s.handleGetPlaylist).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{playlist_id}", s.handleAppendPlaylistSongs).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{playlist_id}", s.handleUpdatePlaylist).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{playlist_id}", s.handleDeletePlaylist).Methods(http.MethodDelete)
	api.HandleFunc("/playlists/{playlist_id}/songs", s.handlePlaylistSongs).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{playlist_id}/songs", s.handlePlaylistAddSong).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{playlist_id}/delete/{song_id}", s.handlePlaylistDeleteSong).Methods(http.MethodDelete)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.gate.VerifyServiceAPIKey(r.Header.Get(headerAPIKey)); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// echoAuthorization returns the caller's authorization header on the response.
func echoAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if value := r.Header.Get(headerAuthorization); value != "" {
			w.Header().Set(headerAuthorization, value)
		}
		next.ServeHTTP(w, r)
	})
}

func principal(r *http.Request) auth.Principal {
	return auth.Principal{
		UserID:        strings.TrimSpace(r.Header.Get(headerUserID)),
		Authorization: r.Header.Get(headerAuthorization),
	}
}

func (s *Server) caller(r *http.Request) auth.Caller {
	return s.gate.ResolveCaller(r.Context(), principal(r))
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerUserID))
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidIdentifier),
		errors.Is(err, apperr.ErrInvalidRequest),
		errors.Is(err, apperr.ErrSongNotAvailable),
		errors.Is(err, apperr.ErrMissingUserID),
		errors.Is(err, apperr.ErrInvalidAPIKey),
		errors.Is(err, apperr.ErrInvalidToken),
		errors.Is(err, apperr.ErrPlaylistNotOwnedByUser):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrSongNotOwnedByUser),
		errors.Is(err, apperr.ErrArtistNotOwnedByUser),
		errors.Is(err, apperr.ErrContentForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrSongNotFound),
		errors.Is(err, apperr.ErrArtistNotFound),
		errors.Is(err, apperr.ErrArtistNotFoundForUser),
		errors.Is(err, apperr.ErrAlbumNotFound),
		errors.Is(err, apperr.ErrPlaylistNotFound),
		errors.Is(err, apperr.ErrContentNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, errorResponse{Detail: "Internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Detail: apperr.Detail(err)})
}

// decodeJSON reads the request body into dst, reporting malformed bodies as InvalidRequest.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.InvalidRequest("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
