package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Playlist is a user-curated list of songs.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	Songs       []string  `json:"songs"`
	Cover       *string   `json:"cover"`
	DateCreated time.Time `json:"date_created"`
}

// PlaylistFilter constrains the results returned by ListPlaylists.
type PlaylistFilter struct {
	// Query matches the playlist name or owner, case-insensitively.
	Query string
	Owner string
}

// PlaylistPatch carries the fields of a partial playlist update.
type PlaylistPatch struct {
	Name  *string
	Songs []string
	Cover *string
}

const playlistColumns = `id, name, owner, songs, cover, date_created`

// ListPlaylists returns playlists matching the filter.
func (s *Store) ListPlaylists(ctx context.Context, filter PlaylistFilter) ([]Playlist, error) {
	var where whereBuilder
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := where.arg(likePattern(q))
		where.add(fmt.Sprintf("(name ILIKE %[1]s OR owner ILIKE %[1]s)", p))
	}
	if filter.Owner != "" {
		where.add(fmt.Sprintf("owner = %s", where.arg(filter.Owner)))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists`+where.String()+`
		ORDER BY date_created ASC, id ASC`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("select playlists: %w", err)
	}
	defer rows.Close()

	playlists := []Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, nil
}

// GetPlaylist returns a single playlist by its identifier.
func (s *Store) GetPlaylist(ctx context.Context, id string) (Playlist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE id = $1
	`, id)

	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Playlist{}, ErrNotFound
		}
		return Playlist{}, err
	}
	return playlist, nil
}

// CreatePlaylist inserts a playlist and returns the stored row.
func (s *Store) CreatePlaylist(ctx context.Context, playlist Playlist) (Playlist, error) {
	playlist.ID = s.newID()
	playlist.Name = strings.TrimSpace(playlist.Name)
	playlist.Songs = nonNil(playlist.Songs)
	playlist.DateCreated = s.now()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO playlists (id, name, owner, songs, cover, date_created)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+playlistColumns,
		playlist.ID, playlist.Name, playlist.Owner, pq.Array(playlist.Songs), playlist.Cover, playlist.DateCreated)

	created, err := scanPlaylist(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Playlist{}, ErrDuplicateID
		}
		return Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return created, nil
}

// UpdatePlaylist applies the patch and returns the row as stored after the write.
func (s *Store) UpdatePlaylist(ctx context.Context, id string, patch PlaylistPatch) (Playlist, error) {
	set := newUpdateSet(id)
	if patch.Name != nil {
		set.add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Songs != nil {
		set.add("songs", pq.Array(patch.Songs))
	}
	if patch.Cover != nil {
		set.add("cover", *patch.Cover)
	}
	if set.empty() {
		return s.GetPlaylist(ctx, id)
	}

	return s.returningPlaylist(ctx, "update playlist", `
		UPDATE playlists
		SET `+set.String()+`
		WHERE id = $1
		RETURNING `+playlistColumns, set.args...)
}

// AppendPlaylistSongs appends songIDs, in order, to the playlist's song list.
func (s *Store) AppendPlaylistSongs(ctx context.Context, id string, songIDs []string) (Playlist, error) {
	return s.returningPlaylist(ctx, "push playlist songs", `
		UPDATE playlists
		SET songs = array_cat(songs, $2::text[])
		WHERE id = $1
		RETURNING `+playlistColumns, id, pq.Array(nonNil(songIDs)))
}

// RemovePlaylistSong drops every occurrence of songID from the playlist.
func (s *Store) RemovePlaylistSong(ctx context.Context, id, songID string) (Playlist, error) {
	return s.returningPlaylist(ctx, "pull playlist song", `
		UPDATE playlists
		SET songs = array_remove(songs, $2)
		WHERE id = $1
		RETURNING `+playlistColumns, id, songID)
}

// DeletePlaylist removes a playlist and reports whether a row was deleted.
func (s *Store) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM playlists
		WHERE id = $1
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete playlist: %w", err)
	}
	return rowsAffected(res, "delete playlist")
}

func (s *Store) returningPlaylist(ctx context.Context, op, query string, args ...any) (Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Playlist{}, ErrNotFound
		}
		return Playlist{}, fmt.Errorf("%s: %w", op, err)
	}
	return playlist, nil
}

func scanPlaylist(scanner rowScanner) (Playlist, error) {
	var (
		p     Playlist
		cover sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.Name, &p.Owner, pq.Array(&p.Songs), &cover, &p.DateCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Playlist{}, err
		}
		return Playlist{}, fmt.Errorf("scan playlist: %w", err)
	}
	p.Songs = nonNil(p.Songs)
	if cover.Valid {
		c := cover.String
		p.Cover = &c
	}
	return p, nil
}
