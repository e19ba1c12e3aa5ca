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

// Album groups songs released together by one or more artists.
type Album struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Artists     []string  `json:"artists"`
	Songs       []string  `json:"songs"`
	Year        int       `json:"year"`
	Cover       *string   `json:"cover"`
	DateCreated time.Time `json:"date_created"`
}

// AlbumFilter constrains the results returned by ListAlbums.
type AlbumFilter struct {
	// Query matches the album name or any artist name, case-insensitively.
	Query                string
	ArtistID             string
	IDs                  []string
	MaxSubscriptionLevel *int
}

// AlbumPatch carries the fields of a partial album update.
type AlbumPatch struct {
	Name    *string
	Artists []string
	Songs   []string
	Year    *int
	Cover   *string
}

const albumColumns = `id, name, artists, songs, year, cover, date_created`

// ListAlbums returns albums matching the filter.
func (s *Store) ListAlbums(ctx context.Context, filter AlbumFilter) ([]Album, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []Album{}, nil
	}

	var where whereBuilder
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := where.arg(likePattern(q))
		where.add(fmt.Sprintf(
			"(al.name ILIKE %[1]s OR EXISTS (SELECT 1 FROM artists a WHERE a.id = ANY(al.artists) AND a.name ILIKE %[1]s))",
			p,
		))
	}
	if filter.ArtistID != "" {
		where.add(fmt.Sprintf("%s = ANY(al.artists)", where.arg(filter.ArtistID)))
	}
	if filter.IDs != nil {
		where.add(fmt.Sprintf("al.id = ANY(%s)", where.arg(pq.Array(filter.IDs))))
	}
	if filter.MaxSubscriptionLevel != nil {
		where.add(fmt.Sprintf("%s <= %s", effectiveLevelExpr("al.artists"), where.arg(*filter.MaxSubscriptionLevel)))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+albumColumns+`
		FROM albums al`+where.String()+`
		ORDER BY date_created ASC, id ASC`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("select albums: %w", err)
	}
	defer rows.Close()

	albums := []Album{}
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}

	return albums, nil
}

// GetAlbum returns a single album by its identifier.
func (s *Store) GetAlbum(ctx context.Context, id string) (Album, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		WHERE id = $1
	`, id)

	album, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrNotFound
		}
		return Album{}, err
	}
	return album, nil
}

// CreateAlbum inserts an album and returns the stored row.
func (s *Store) CreateAlbum(ctx context.Context, album Album) (Album, error) {
	album.ID = s.newID()
	album.Name = strings.TrimSpace(album.Name)
	album.Artists = nonNil(album.Artists)
	album.Songs = nonNil(album.Songs)
	album.DateCreated = s.now()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO albums (id, name, artists, songs, year, cover, date_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+albumColumns,
		album.ID, album.Name, pq.Array(album.Artists), pq.Array(album.Songs), album.Year, album.Cover, album.DateCreated)

	created, err := scanAlbum(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Album{}, ErrDuplicateID
		}
		return Album{}, fmt.Errorf("insert album: %w", err)
	}
	return created, nil
}

// UpdateAlbum applies the patch and returns the row as stored after the write.
func (s *Store) UpdateAlbum(ctx context.Context, id string, patch AlbumPatch) (Album, error) {
	set := newUpdateSet(id)
	if patch.Name != nil {
		set.add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Artists != nil {
		set.add("artists", pq.Array(patch.Artists))
	}
	if patch.Songs != nil {
		set.add("songs", pq.Array(patch.Songs))
	}
	if patch.Year != nil {
		set.add("year", *patch.Year)
	}
	if patch.Cover != nil {
		set.add("cover", *patch.Cover)
	}
	if set.empty() {
		return s.GetAlbum(ctx, id)
	}

	return s.returningAlbum(ctx, "update album", `
		UPDATE albums
		SET `+set.String()+`
		WHERE id = $1
		RETURNING `+albumColumns, set.args...)
}

// AddAlbumSong appends songID to the album's song list.
func (s *Store) AddAlbumSong(ctx context.Context, id, songID string) (Album, error) {
	return s.returningAlbum(ctx, "push album song", `
		UPDATE albums
		SET songs = array_append(songs, $2)
		WHERE id = $1
		RETURNING `+albumColumns, id, songID)
}

// AddAlbumArtist appends artistID to the album's artist list.
func (s *Store) AddAlbumArtist(ctx context.Context, id, artistID string) (Album, error) {
	return s.returningAlbum(ctx, "push album artist", `
		UPDATE albums
		SET artists = array_append(artists, $2)
		WHERE id = $1
		RETURNING `+albumColumns, id, artistID)
}

// DeleteAlbum removes an album and reports whether a row was deleted.
func (s *Store) DeleteAlbum(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM albums
		WHERE id = $1
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete album: %w", err)
	}
	return rowsAffected(res, "delete album")
}

func (s *Store) returningAlbum(ctx context.Context, op, query string, args ...any) (Album, error) {
	album, err := scanAlbum(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrNotFound
		}
		return Album{}, fmt.Errorf("%s: %w", op, err)
	}
	return album, nil
}

func scanAlbum(scanner rowScanner) (Album, error) {
	var (
		a     Album
		cover sql.NullString
	)
	if err := scanner.Scan(&a.ID, &a.Name, pq.Array(&a.Artists), pq.Array(&a.Songs), &a.Year, &cover, &a.DateCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, err
		}
		return Album{}, fmt.Errorf("scan album: %w", err)
	}
	a.Artists = nonNil(a.Artists)
	a.Songs = nonNil(a.Songs)
	if cover.Valid {
		c := cover.String
		a.Cover = &c
	}
	return a, nil
}
