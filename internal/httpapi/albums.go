package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"spotifiuby/internal/app/albums"
	"spotifiuby/internal/store"
)

type albumRequest struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Songs   []string `json:"songs"`
	Year    int      `json:"year"`
	Cover   *string  `json:"cover"`
}

type albumUpdateRequest struct {
	Name    *string  `json:"name"`
	Artists []string `json:"artists"`
	Songs   []string `json:"songs"`
	Year    *int     `json:"year"`
	Cover   *string  `json:"cover"`
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	caller := s.caller(r)
	result, err := s.albums.List(r.Context(), albums.Filter{
		Query:    query.Get("q"),
		ArtistID: query.Get("artist"),
	}, caller.Tier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(result))
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var payload albumRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	album, err := s.albums.Create(r.Context(), albums.CreateRequest{
		Name:    payload.Name,
		Artists: payload.Artists,
		Songs:   payload.Songs,
		Year:    payload.Year,
		Cover:   payload.Cover,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, album)
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.albums.Get(r.Context(), mux.Vars(r)["album_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	var payload albumUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	album, err := s.albums.Update(r.Context(), mux.Vars(r)["album_id"], store.AlbumPatch{
		Name:    payload.Name,
		Artists: payload.Artists,
		Songs:   payload.Songs,
		Year:    payload.Year,
		Cover:   payload.Cover,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := s.albums.Delete(r.Context(), mux.Vars(r)["album_id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlbumSongs(w http.ResponseWriter, r *http.Request) {
	caller := s.caller(r)
	result, err := s.albums.Songs(r.Context(), mux.Vars(r)["album_id"], caller.Tier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(result))
}

func (s *Server) handleAlbumAddSong(w http.ResponseWriter, r *http.Request) {
	album, err := s.albums.AddSong(r.Context(), mux.Vars(r)["album_id"], r.URL.Query().Get("song_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleAlbumAddArtist(w http.ResponseWriter, r *http.Request) {
	album, err := s.albums.AddArtist(r.Context(), mux.Vars(r)["album_id"], r.URL.Query().Get("artist_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}
