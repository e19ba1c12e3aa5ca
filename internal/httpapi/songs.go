package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"spotifiuby/internal/app/songs"
	"spotifiuby/internal/apperr"
	"spotifiuby/internal/store"
)

type songRequest struct {
	Name    string   `json:"name"`
	Genre   string   `json:"genre"`
	Artists []string `json:"artists"`
}

type songUpdateRequest struct {
	Name    *string  `json:"name"`
	Genre   *string  `json:"genre"`
	Artists []string `json:"artists"`
	Status  *string  `json:"status"`
}

func (req songUpdateRequest) patch() (store.SongPatch, error) {
	patch := store.SongPatch{Name: req.Name, Genre: req.Genre, Artists: req.Artists}
	if req.Status != nil {
		status, err := store.ParseSongStatus(*req.Status)
		if err != nil {
			return store.SongPatch{}, apperr.InvalidRequest("status must be one of not_uploaded, active, inactive")
		}
		patch.Status = &status
	}
	return patch, nil
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	caller := s.caller(r)
	result, err := s.songs.List(r.Context(), songs.Filter{
		Query:    query.Get("q"),
		ArtistID: query.Get("artist"),
	}, caller.Tier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(result))
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var payload songRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	song, err := s.songs.Create(r.Context(), songs.CreateRequest{
		Name:    payload.Name,
		Genre:   payload.Genre,
		Artists: payload.Artists,
	}, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := s.songs.Get(r.Context(), mux.Vars(r)["song_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	var payload songUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := payload.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	song, err := s.songs.Update(r.Context(), mux.Vars(r)["song_id"], patch, s.caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := s.songs.Delete(r.Context(), mux.Vars(r)["song_id"], s.caller(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listOf[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
