package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"spotifiuby/internal/app/playlists"
	"spotifiuby/internal/store"
)

type playlistRequest struct {
	Name  string   `json:"name"`
	Songs []string `json:"songs"`
	Cover *string  `json:"cover"`
}

type playlistUpdateRequest struct {
	Name  *string  `json:"name"`
	Songs []string `json:"songs"`
	Cover *string  `json:"cover"`
}

type playlistSongsRequest struct {
	Songs []string `json:"songs"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	result, err := s.playlists.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(result))
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var payload playlistRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := s.playlists.Create(r.Context(), playlists.CreateRequest{
		Name:  payload.Name,
		Songs: payload.Songs,
		Cover: payload.Cover,
	}, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.playlists.Get(r.Context(), mux.Vars(r)["playlist_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var payload playlistUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := s.playlists.Update(r.Context(), mux.Vars(r)["playlist_id"], store.PlaylistPatch{
		Name:  payload.Name,
		Songs: payload.Songs,
		Cover: payload.Cover,
	}, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), mux.Vars(r)["playlist_id"], userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendPlaylistSongs(w http.ResponseWriter, r *http.Request) {
	var payload playlistSongsRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	s.addPlaylistSongs(w, r, payload.Songs)
}

func (s *Server) handlePlaylistAddSong(w http.ResponseWriter, r *http.Request) {
	s.addPlaylistSongs(w, r, []string{r.URL.Query().Get("song_id")})
}

func (s *Server) addPlaylistSongs(w http.ResponseWriter, r *http.Request, songIDs []string) {
	playlist, err := s.playlists.AddSongs(r.Context(), mux.Vars(r)["playlist_id"], songIDs, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (s *Server) handlePlaylistSongs(w http.ResponseWriter, r *http.Request) {
	caller := s.caller(r)
	result, err := s.playlists.Songs(r.Context(), mux.Vars(r)["playlist_id"], caller.Tier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(result))
}

func (s *Server) handlePlaylistDeleteSong(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	playlist, err := s.playlists.DeleteSong(r.Context(), vars["playlist_id"], vars["song_id"], userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}
