package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const testPlaylistID = "625a1b2c3d4e5f6a7b8c9d03"

func playlistRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "owner", "songs", "cover", "date_created"})
}

func TestAppendPlaylistSongs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SET songs = array_cat(songs, $2::text[])`)).
		WithArgs(testPlaylistID, sqlmock.AnyArg()).
		WillReturnRows(playlistRows().AddRow(testPlaylistID, "Mix", "u1", "{"+testSongID+"}", nil, testNow))

	got, err := s.AppendPlaylistSongs(context.Background(), testPlaylistID, []string{testSongID})
	if err != nil {
		t.Fatalf("AppendPlaylistSongs error: %v", err)
	}
	if len(got.Songs) != 1 || got.Songs[0] != testSongID {
		t.Fatalf("unexpected songs %v", got.Songs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemovePlaylistSongPullsAllOccurrences(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SET songs = array_remove(songs, $2)`)).
		WithArgs(testPlaylistID, testSongID).
		WillReturnRows(playlistRows().AddRow(testPlaylistID, "Mix", "u1", "{}", nil, testNow))

	got, err := s.RemovePlaylistSong(context.Background(), testPlaylistID, testSongID)
	if err != nil {
		t.Fatalf("RemovePlaylistSong error: %v", err)
	}
	if len(got.Songs) != 0 {
		t.Fatalf("expected empty song list, got %v", got.Songs)
	}
}

func TestGetPlaylistNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM playlists`)).
		WithArgs(testPlaylistID).
		WillReturnRows(playlistRows())

	_, err := s.GetPlaylist(context.Background(), testPlaylistID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPlaylistsMatchesOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`(name ILIKE $1 OR owner ILIKE $1)`)).
		WithArgs("%u1%").
		WillReturnRows(playlistRows().AddRow(testPlaylistID, "Mix", "u1", "{}", "cover.png", testNow))

	got, err := s.ListPlaylists(context.Background(), PlaylistFilter{Query: "u1"})
	if err != nil {
		t.Fatalf("ListPlaylists error: %v", err)
	}
	if len(got) != 1 || got[0].Cover == nil || *got[0].Cover != "cover.png" {
		t.Fatalf("unexpected playlists %+v", got)
	}
}

func TestCreatePlaylistWrapsFailures(t *testing.T) {
	s, mock := newMockStore(t)
	s.newID = func() string { return testPlaylistID }

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO playlists`)).
		WithArgs(testPlaylistID, "Mix", "u1", sqlmock.AnyArg(), nil, testNow).
		WillReturnError(errors.New("connection reset"))

	_, err := s.CreatePlaylist(context.Background(), Playlist{Name: "Mix", Owner: "u1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrDuplicateID) {
		t.Fatalf("connection failure should not map to ErrDuplicateID")
	}
}
