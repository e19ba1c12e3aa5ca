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

// SongStatus is the lifecycle state of a song.
type SongStatus string

const (
	// SongNotUploaded is the initial state: metadata exists, content does not.
	SongNotUploaded SongStatus = "not_uploaded"
	// SongActive marks a song whose content has been uploaded.
	SongActive SongStatus = "active"
	// SongInactive is set administratively to withdraw a song.
	SongInactive SongStatus = "inactive"
)

// ErrInvalidSongStatus is returned when parsing an unknown status value.
var ErrInvalidSongStatus = errors.New("invalid song status")

// ParseSongStatus converts a raw value into a SongStatus.
func ParseSongStatus(raw string) (SongStatus, error) {
	switch s := SongStatus(strings.TrimSpace(raw)); s {
	case SongNotUploaded, SongActive, SongInactive:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSongStatus, raw)
	}
}

// Available reports whether the song may be referenced, streamed or uploaded to.
func (s SongStatus) Available() bool {
	switch s {
	case SongNotUploaded, SongActive:
		return true
	default:
		return false
	}
}

// Song is a track in the catalog.
type Song struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Artists      []string   `json:"artists"`
	Genre        string     `json:"genre"`
	Status       SongStatus `json:"status"`
	DateCreated  time.Time  `json:"date_created"`
	DateUploaded *time.Time `json:"date_uploaded"`
}

// SongFilter constrains the results returned by ListSongs.
type SongFilter struct {
	// Query matches name, genre or any artist name, case-insensitively.
	Query string
	// ArtistID keeps songs listing that artist.
	ArtistID string
	// IDs restricts results to the given identifiers. A non-nil empty slice matches nothing.
	IDs []string
	// MaxSubscriptionLevel drops songs whose effective level exceeds the ceiling.
	MaxSubscriptionLevel *int
}

// SongPatch carries the fields of a partial song update. Nil fields are left untouched.
type SongPatch struct {
	Name    *string
	Artists []string
	Genre   *string
	Status  *SongStatus
}

const songColumns = `id, name, artists, genre, status, date_created, date_uploaded`

// ListSongs returns songs matching the filter.
func (s *Store) ListSongs(ctx context.Context, filter SongFilter) ([]Song, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []Song{}, nil
	}

	var where whereBuilder
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := where.arg(likePattern(q))
		where.add(fmt.Sprintf(
			"(s.name ILIKE %[1]s OR s.genre ILIKE %[1]s OR EXISTS (SELECT 1 FROM artists a WHERE a.id = ANY(s.artists) AND a.name ILIKE %[1]s))",
			p,
		))
	}
	if filter.ArtistID != "" {
		where.add(fmt.Sprintf("%s = ANY(s.artists)", where.arg(filter.ArtistID)))
	}
	if filter.IDs != nil {
		where.add(fmt.Sprintf("s.id = ANY(%s)", where.arg(pq.Array(filter.IDs))))
	}
	if filter.MaxSubscriptionLevel != nil {
		where.add(fmt.Sprintf("%s <= %s", effectiveLevelExpr("s.artists"), where.arg(*filter.MaxSubscriptionLevel)))
	}

	query := `
		SELECT ` + songColumns + `
		FROM songs s` + where.String() + `
		ORDER BY date_created ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}

	return songs, nil
}

// GetSong returns a single song by its identifier.
func (s *Store) GetSong(ctx context.Context, id string) (Song, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = $1
	`, id)

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrNotFound
		}
		return Song{}, err
	}
	return song, nil
}

// CreateSong inserts a song in the not_uploaded state and returns the stored row.
func (s *Store) CreateSong(ctx context.Context, song Song) (Song, error) {
	song.ID = s.newID()
	song.Name = strings.TrimSpace(song.Name)
	song.Artists = nonNil(song.Artists)
	song.Status = SongNotUploaded
	song.DateCreated = s.now()
	song.DateUploaded = nil

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO songs (id, name, artists, genre, status, date_created, date_uploaded)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
		RETURNING `+songColumns,
		song.ID, song.Name, pq.Array(song.Artists), song.Genre, string(song.Status), song.DateCreated)

	created, err := scanSong(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Song{}, ErrDuplicateID
		}
		return Song{}, fmt.Errorf("insert song: %w", err)
	}
	return created, nil
}

// UpdateSong applies the patch and returns the row as stored after the write.
func (s *Store) UpdateSong(ctx context.Context, id string, patch SongPatch) (Song, error) {
	set := newUpdateSet(id)
	if patch.Name != nil {
		set.add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Artists != nil {
		set.add("artists", pq.Array(patch.Artists))
	}
	if patch.Genre != nil {
		set.add("genre", *patch.Genre)
	}
	if patch.Status != nil {
		set.add("status", string(*patch.Status))
	}
	if set.empty() {
		return s.GetSong(ctx, id)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE songs
		SET `+set.String()+`
		WHERE id = $1
		RETURNING `+songColumns,
		set.args...)

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrNotFound
		}
		return Song{}, fmt.Errorf("update song: %w", err)
	}
	return song, nil
}

// ActivateSong marks the song active. The upload timestamp is only stamped the first time.
func (s *Store) ActivateSong(ctx context.Context, id string, at time.Time) (Song, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE songs
		SET status = $2, date_uploaded = COALESCE(date_uploaded, $3)
		WHERE id = $1
		RETURNING `+songColumns,
		id, string(SongActive), at.UTC())

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrNotFound
		}
		return Song{}, fmt.Errorf("activate song: %w", err)
	}
	return song, nil
}

// DeleteSong removes a song and reports whether a row was deleted.
func (s *Store) DeleteSong(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM songs
		WHERE id = $1
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete song: %w", err)
	}
	return rowsAffected(res, "delete song")
}

func scanSong(scanner rowScanner) (Song, error) {
	var (
		song     Song
		status   string
		uploaded sql.NullTime
	)

	if err := scanner.Scan(&song.ID, &song.Name, pq.Array(&song.Artists), &song.Genre, &status, &song.DateCreated, &uploaded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, err
		}
		return Song{}, fmt.Errorf("scan song: %w", err)
	}

	parsed, err := ParseSongStatus(status)
	if err != nil {
		return Song{}, err
	}
	song.Status = parsed
	song.Artists = nonNil(song.Artists)
	if uploaded.Valid {
		t := uploaded.Time
		song.DateUploaded = &t
	}

	return song, nil
}
