package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spotifiuby/internal/app/albums"
	"spotifiuby/internal/app/artists"
	"spotifiuby/internal/app/playlists"
	"spotifiuby/internal/app/songs"
	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/store"
)

const (
	songID     = "625a1b2c3d4e5f6a7b8c9d10"
	artistID   = "625a1b2c3d4e5f6a7b8c9d01"
	albumID    = "625a1b2c3d4e5f6a7b8c9d20"
	playlistID = "625a1b2c3d4e5f6a7b8c9d30"
	validKey   = "service-key"
)

type stubGate struct {
	caller     auth.Caller
	principals []auth.Principal
}

func (g *stubGate) VerifyServiceAPIKey(key string) error {
	if key != validKey {
		return apperr.InvalidAPIKey()
	}
	return nil
}

func (g *stubGate) ResolveCaller(_ context.Context, p auth.Principal) auth.Caller {
	g.principals = append(g.principals, p)
	caller := g.caller
	caller.UserID = p.UserID
	return caller
}

type stubSongService struct {
	listed     []store.Song
	lastFilter songs.Filter
	lastTier   int
	created    songs.CreateRequest
	createUser string
	lastPatch  store.SongPatch
	err        error
}

func (s *stubSongService) List(_ context.Context, filter songs.Filter, tier int) ([]store.Song, error) {
	s.lastFilter, s.lastTier = filter, tier
	return s.listed, s.err
}

func (s *stubSongService) Get(_ context.Context, id string) (store.Song, error) {
	if s.err != nil {
		return store.Song{}, s.err
	}
	return store.Song{ID: id, Name: "Song", Status: store.SongActive}, nil
}

func (s *stubSongService) Create(_ context.Context, req songs.CreateRequest, userID string) (store.Song, error) {
	s.created, s.createUser = req, userID
	if userID == "" {
		return store.Song{}, apperr.MissingUserID()
	}
	return store.Song{ID: songID, Name: req.Name, Artists: []string{artistID}, Status: store.SongNotUploaded}, nil
}

func (s *stubSongService) Update(_ context.Context, id string, patch store.SongPatch, _ auth.Caller) (store.Song, error) {
	s.lastPatch = patch
	return store.Song{ID: id}, s.err
}

func (s *stubSongService) Delete(_ context.Context, _ string, caller auth.Caller) error {
	if s.err != nil {
		return s.err
	}
	if !caller.IsAdmin {
		return apperr.SongNotOwnedByUser(songID, caller.UserID)
	}
	return nil
}

type stubArtistService struct {
	lastFilter artists.Filter
	level      *int
}

func (s *stubArtistService) List(_ context.Context, filter artists.Filter) ([]store.Artist, error) {
	s.lastFilter = filter
	return nil, nil
}

func (s *stubArtistService) Get(_ context.Context, id string) (store.Artist, error) {
	if id == "123" {
		return store.Artist{}, apperr.InvalidIdentifier("Artist", id)
	}
	return store.Artist{ID: id}, nil
}

func (s *stubArtistService) Create(_ context.Context, name string, level *int, userID string) (store.Artist, error) {
	s.level = level
	return store.Artist{ID: artistID, Name: name, UserID: userID}, nil
}

func (s *stubArtistService) Update(_ context.Context, id string, _ store.ArtistPatch, _ auth.Caller) (store.Artist, error) {
	return store.Artist{ID: id}, nil
}

func (s *stubArtistService) Delete(context.Context, string, auth.Caller) error { return nil }

type stubAlbumService struct {
	addedSong   string
	addedArtist string
	songsTier   int
}

func (s *stubAlbumService) List(context.Context, albums.Filter, int) ([]store.Album, error) {
	return []store.Album{{ID: albumID}}, nil
}

func (s *stubAlbumService) Get(_ context.Context, id string) (store.Album, error) {
	return store.Album{}, apperr.AlbumNotFound(id)
}

func (s *stubAlbumService) Create(_ context.Context, req albums.CreateRequest) (store.Album, error) {
	return store.Album{ID: albumID, Name: req.Name, Year: req.Year}, nil
}

func (s *stubAlbumService) Update(_ context.Context, id string, _ store.AlbumPatch) (store.Album, error) {
	return store.Album{ID: id}, nil
}

func (s *stubAlbumService) Delete(context.Context, string) error { return nil }

func (s *stubAlbumService) AddSong(_ context.Context, id, songID string) (store.Album, error) {
	s.addedSong = songID
	return store.Album{ID: id, Songs: []string{songID}}, nil
}

func (s *stubAlbumService) AddArtist(_ context.Context, id, artistID string) (store.Album, error) {
	s.addedArtist = artistID
	return store.Album{ID: id, Artists: []string{artistID}}, nil
}

func (s *stubAlbumService) Songs(_ context.Context, _ string, tier int) ([]store.Song, error) {
	s.songsTier = tier
	return nil, nil
}

type stubPlaylistService struct {
	added      []string
	addedBy    string
	removed    string
	deleteUser string
}

func (s *stubPlaylistService) List(context.Context, string) ([]store.Playlist, error) {
	return nil, nil
}

func (s *stubPlaylistService) Get(_ context.Context, id string) (store.Playlist, error) {
	return store.Playlist{ID: id}, nil
}

func (s *stubPlaylistService) Create(_ context.Context, req playlists.CreateRequest, ownerID string) (store.Playlist, error) {
	return store.Playlist{ID: playlistID, Name: req.Name, Owner: ownerID, Songs: req.Songs}, nil
}

func (s *stubPlaylistService) Update(_ context.Context, id string, _ store.PlaylistPatch, _ string) (store.Playlist, error) {
	return store.Playlist{ID: id}, nil
}

func (s *stubPlaylistService) Delete(_ context.Context, id string, userID string) error {
	s.deleteUser = userID
	return apperr.PlaylistNotFound(id)
}

func (s *stubPlaylistService) AddSongs(_ context.Context, id string, songIDs []string, userID string) (store.Playlist, error) {
	s.added, s.addedBy = songIDs, userID
	if userID != "owner" {
		return store.Playlist{}, apperr.PlaylistNotOwnedByUser(id, userID)
	}
	return store.Playlist{ID: id, Owner: userID, Songs: songIDs}, nil
}

func (s *stubPlaylistService) DeleteSong(_ context.Context, id, songID, userID string) (store.Playlist, error) {
	s.removed = songID
	return store.Playlist{ID: id, Owner: userID, Songs: []string{}}, nil
}

func (s *stubPlaylistService) Songs(context.Context, string, int) ([]store.Song, error) {
	return nil, nil
}

type stubContentService struct {
	data     []byte
	uploaded []byte
	uploads  int
	err      error
}

func (s *stubContentService) Download(context.Context, string, auth.Caller) ([]byte, error) {
	return s.data, s.err
}

func (s *stubContentService) Upload(_ context.Context, id string, data []byte) (store.Song, error) {
	s.uploaded = data
	s.uploads++
	return store.Song{ID: id, Status: store.SongActive}, s.err
}

type testServer struct {
	gate      *stubGate
	songs     *stubSongService
	artists   *stubArtistService
	albums    *stubAlbumService
	playlists *stubPlaylistService
	content   *stubContentService
	handler   http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		gate:      &stubGate{},
		songs:     &stubSongService{},
		artists:   &stubArtistService{},
		albums:    &stubAlbumService{},
		playlists: &stubPlaylistService{},
		content:   &stubContentService{},
	}
	ts.handler = New(ts.songs, ts.artists, ts.albums, ts.playlists, ts.content, ts.gate).Routes()
	return ts
}

func (ts *testServer) do(method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("x-api-key", validKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Detail
}

func TestHealthSkipsAPIKey(t *testing.T) {
	ts := newTestServer()

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("%s: expected empty body, got %q", path, rec.Body.String())
		}
	}
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/songs", nil, map[string]string{"x-api-key": "wrong"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Invalid API key" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestListSongsPassesFilterAndTier(t *testing.T) {
	ts := newTestServer()
	ts.gate.caller = auth.Caller{Tier: 2}

	rec := ts.do(http.MethodGet, "/songs?q=rock&artist="+artistID, nil, map[string]string{
		"x-user-id":     "u1",
		"authorization": "Bearer tok",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected bare empty array, got %q", rec.Body.String())
	}
	if ts.songs.lastFilter.Query != "rock" || ts.songs.lastFilter.ArtistID != artistID || ts.songs.lastTier != 2 {
		t.Fatalf("unexpected filter %+v tier %d", ts.songs.lastFilter, ts.songs.lastTier)
	}
	if got := ts.gate.principals[0]; got.UserID != "u1" || got.Authorization != "Bearer tok" {
		t.Fatalf("unexpected principal %+v", got)
	}
	if rec.Header().Get("Authorization") != "Bearer tok" {
		t.Fatalf("expected authorization header to be echoed")
	}
}

func TestCreateSong(t *testing.T) {
	ts := newTestServer()

	body := []byte(`{"name":"S","genre":"rock","artists":[]}`)
	rec := ts.do(http.MethodPost, "/songs", body, map[string]string{"x-user-id": "u1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var song store.Song
	if err := json.NewDecoder(rec.Body).Decode(&song); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if song.Status != store.SongNotUploaded || ts.songs.createUser != "u1" || ts.songs.created.Genre != "rock" {
		t.Fatalf("unexpected song %+v request %+v", song, ts.songs.created)
	}

	rec = ts.do(http.MethodPost, "/songs", body, nil)
	if rec.Code != http.StatusBadRequest || decodeDetail(t, rec) != "x_user_id is missing" {
		t.Fatalf("expected missing user id, got %d", rec.Code)
	}

	rec = ts.do(http.MethodPost, "/songs", []byte("{"), map[string]string{"x-user-id": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestUpdateSongParsesStatus(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPut, "/songs/"+songID, []byte(`{"status":"inactive"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ts.songs.lastPatch.Status == nil || *ts.songs.lastPatch.Status != store.SongInactive {
		t.Fatalf("unexpected patch %+v", ts.songs.lastPatch)
	}

	rec = ts.do(http.MethodPut, "/songs/"+songID, []byte(`{"status":"paused"}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestDeleteSong(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodDelete, "/songs/"+songID, nil, map[string]string{"x-user-id": "u2"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "The owner of song "+songID+" is not u2" {
		t.Fatalf("unexpected detail %q", got)
	}

	ts.gate.caller = auth.Caller{IsAdmin: true}
	rec = ts.do(http.MethodDelete, "/songs/"+songID, nil, nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("expected 204 without body, got %d", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.InvalidIdentifier("Song", "123"), http.StatusBadRequest},
		{apperr.SongNotAvailable(songID), http.StatusBadRequest},
		{apperr.PlaylistNotOwnedByUser(playlistID, "u"), http.StatusBadRequest},
		{apperr.ArtistNotOwnedByUser(artistID, "u"), http.StatusForbidden},
		{apperr.ContentForbidden(songID, "u"), http.StatusForbidden},
		{apperr.ArtistNotFoundForUser("u"), http.StatusNotFound},
		{apperr.ContentNotFound(songID), http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, got)
		}
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	ts := newTestServer()
	ts.songs.err = errors.New("dial tcp: connection refused")

	rec := ts.do(http.MethodGet, "/songs/"+songID, nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Internal server error" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestMalformedArtistID(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/artists/123", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Artist ID '123' is not valid" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestArtistRoutes(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodGet, "/artists?user_id=u1", nil, nil)
	if rec.Code != http.StatusOK || ts.artists.lastFilter.UserID != "u1" {
		t.Fatalf("unexpected response %d filter %+v", rec.Code, ts.artists.lastFilter)
	}

	rec = ts.do(http.MethodPost, "/artists", []byte(`{"name":"A","subscription_level":2}`), map[string]string{"x-user-id": "u1"})
	if rec.Code != http.StatusCreated || ts.artists.level == nil || *ts.artists.level != 2 {
		t.Fatalf("unexpected create %d level %v", rec.Code, ts.artists.level)
	}
}

func TestAlbumRoutes(t *testing.T) {
	ts := newTestServer()
	ts.gate.caller = auth.Caller{Tier: 3}

	rec := ts.do(http.MethodPut, "/albums/"+albumID+"/songs?song_id="+songID, nil, nil)
	if rec.Code != http.StatusOK || ts.albums.addedSong != songID {
		t.Fatalf("add song: %d %q", rec.Code, ts.albums.addedSong)
	}

	rec = ts.do(http.MethodPut, "/albums/"+albumID+"/artists?artist_id="+artistID, nil, nil)
	if rec.Code != http.StatusOK || ts.albums.addedArtist != artistID {
		t.Fatalf("add artist: %d %q", rec.Code, ts.albums.addedArtist)
	}

	rec = ts.do(http.MethodGet, "/albums/"+albumID+"/songs", nil, nil)
	if rec.Code != http.StatusOK || ts.albums.songsTier != 3 {
		t.Fatalf("album songs: %d tier %d", rec.Code, ts.albums.songsTier)
	}

	rec = ts.do(http.MethodGet, "/albums/"+albumID, nil, nil)
	if rec.Code != http.StatusNotFound || decodeDetail(t, rec) != "Album "+albumID+" not found" {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPlaylistAddSongs(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/playlists/"+playlistID, []byte(`{"songs":["a","b"]}`), map[string]string{"x-user-id": "owner"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(ts.playlists.added) != 2 || ts.playlists.addedBy != "owner" {
		t.Fatalf("unexpected add %v by %q", ts.playlists.added, ts.playlists.addedBy)
	}

	rec = ts.do(http.MethodPut, "/playlists/"+playlistID+"/songs?song_id="+songID, nil, map[string]string{"x-user-id": "other"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "The owner of playlist "+playlistID+" is not other" {
		t.Fatalf("unexpected detail %q", got)
	}
	if len(ts.playlists.added) != 1 || ts.playlists.added[0] != songID {
		t.Fatalf("expected single song add, got %v", ts.playlists.added)
	}
}

func TestPlaylistDeleteRoutes(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodDelete, "/playlists/"+playlistID+"/delete/"+songID, nil, map[string]string{"x-user-id": "owner"})
	if rec.Code != http.StatusOK || ts.playlists.removed != songID {
		t.Fatalf("delete song: %d removed %q", rec.Code, ts.playlists.removed)
	}

	rec = ts.do(http.MethodDelete, "/playlists/"+playlistID, nil, map[string]string{"x-user-id": "owner"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Playlist "+playlistID+" not found" {
		t.Fatalf("unexpected detail %q", got)
	}
	if ts.playlists.deleteUser != "owner" {
		t.Fatalf("expected caller forwarded, got %q", ts.playlists.deleteUser)
	}
}

func TestCreatePlaylistOwnerFromHeader(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/playlists", []byte(`{"name":"Mix","songs":[]}`), map[string]string{"x-user-id": "u9"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var playlist store.Playlist
	if err := json.NewDecoder(rec.Body).Decode(&playlist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if playlist.Owner != "u9" {
		t.Fatalf("expected owner u9, got %q", playlist.Owner)
	}
}

func TestDownloadContent(t *testing.T) {
	ts := newTestServer()
	ts.content.data = []byte("x")

	rec := ts.do(http.MethodGet, "/songs/"+songID+"/content", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "audio/mpeg" || rec.Body.String() != "x" {
		t.Fatalf("unexpected response %q %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}

	ts.content.err = apperr.ContentForbidden(songID, "u1")
	rec = ts.do(http.MethodGet, "/songs/"+songID+"/content", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUploadContent(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "song.mp3")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("audio"))
	_ = form.Close()

	rec := ts.do(http.MethodPost, "/songs/"+songID+"/content", buf.Bytes(), map[string]string{"Content-Type": form.FormDataContentType()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(ts.content.uploaded) != "audio" {
		t.Fatalf("unexpected upload %q", ts.content.uploaded)
	}

	var empty bytes.Buffer
	emptyForm := multipart.NewWriter(&empty)
	_ = emptyForm.WriteField("other", "v")
	_ = emptyForm.Close()
	rec = ts.do(http.MethodPost, "/songs/"+songID+"/content", empty.Bytes(), map[string]string{"Content-Type": emptyForm.FormDataContentType()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rec.Code)
	}
}

func TestUploadRejectsMalformedSongIDBeforeReadingBody(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(http.MethodPost, "/songs/123/content", []byte("not a multipart body"), map[string]string{"Content-Type": "text/plain"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Song ID '123' is not valid" {
		t.Fatalf("unexpected detail %q", got)
	}
	if ts.content.uploads != 0 {
		t.Fatalf("expected no upload, got %d", ts.content.uploads)
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	ts := newTestServer()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "song.mp3")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(bytes.Repeat([]byte{'a'}, maxUploadSize+1))
	_ = form.Close()

	rec := ts.do(http.MethodPost, "/songs/"+songID+"/content", buf.Bytes(), map[string]string{"Content-Type": form.FormDataContentType()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ts.content.uploads != 0 {
		t.Fatalf("expected no upload, got %d", ts.content.uploads)
	}
}
