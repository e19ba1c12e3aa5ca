package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"spotifiuby/internal/app/artists"
	"spotifiuby/internal/store"
)

type artistRequest struct {
	Name              string `json:"name"`
	SubscriptionLevel *int   `json:"subscription_level"`
}

type artistUpdateRequest struct {
	Name              *string `json:"name"`
	SubscriptionLevel *int    `json:"subscription_level"`
}

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := s.artists.List(r.Context(), artists.Filter{
		Query:  query.Get("q"),
		UserID: query.Get("user_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(result))
}

func (s *Server) handleCreateArtist(w http.ResponseWriter, r *http.Request) {
	var payload artistRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	artist, err := s.artists.Create(r.Context(), payload.Name, payload.SubscriptionLevel, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

func (s *Server) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	artist, err := s.artists.Get(r.Context(), mux.Vars(r)["artist_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (s *Server) handleUpdateArtist(w http.ResponseWriter, r *http.Request) {
	var payload artistUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	artist, err := s.artists.Update(r.Context(), mux.Vars(r)["artist_id"], store.ArtistPatch{
		Name:              payload.Name,
		SubscriptionLevel: payload.SubscriptionLevel,
	}, s.caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (s *Server) handleDeleteArtist(w http.ResponseWriter, r *http.Request) {
	if err := s.artists.Delete(r.Context(), mux.Vars(r)["artist_id"], s.caller(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
