package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/ids"
)

const (
	maxUploadMemory = 32 << 20
	maxUploadSize   = 50 << 20
)

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, err := s.content.Download(r.Context(), mux.Vars(r)["song_id"], s.caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	songID := mux.Vars(r)["song_id"]
	if _, err := ids.Validate(ids.Song, songID); err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.InvalidRequest("file exceeds %d bytes", maxUploadSize))
			return
		}
		writeError(w, r, apperr.InvalidRequest("multipart form with a file field is required"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, r, apperr.InvalidRequest("file is required"))
			return
		}
		writeError(w, r, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	song, err := s.content.Upload(r.Context(), songID, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}
