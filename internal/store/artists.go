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

// Artist is a catalog artist profile owned by an external user.
type Artist struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	UserID            string    `json:"user_id"`
	SubscriptionLevel int       `json:"subscription_level"`
	DateCreated       time.Time `json:"date_created"`
}

// ArtistFilter constrains the results returned by ListArtists.
type ArtistFilter struct {
	Query  string
	UserID string
	IDs    []string
}

// ArtistPatch carries the fields of a partial artist update.
type ArtistPatch struct {
	Name              *string
	SubscriptionLevel *int
}

const artistColumns = `id, name, user_id, subscription_level, date_created`

// ListArtists returns artists matching the filter.
func (s *Store) ListArtists(ctx context.Context, filter ArtistFilter) ([]Artist, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []Artist{}, nil
	}

	var where whereBuilder
	if q := strings.TrimSpace(filter.Query); q != "" {
		where.add(fmt.Sprintf("name ILIKE %s", where.arg(likePattern(q))))
	}
	if filter.UserID != "" {
		where.add(fmt.Sprintf("user_id = %s", where.arg(filter.UserID)))
	}
	if filter.IDs != nil {
		where.add(fmt.Sprintf("id = ANY(%s)", where.arg(pq.Array(filter.IDs))))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+artistColumns+`
		FROM artists`+where.String()+`
		ORDER BY date_created ASC, id ASC`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("select artists: %w", err)
	}
	defer rows.Close()

	artists := []Artist{}
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}

	return artists, nil
}

// GetArtist returns a single artist by its identifier.
func (s *Store) GetArtist(ctx context.Context, id string) (Artist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		WHERE id = $1
	`, id)

	artist, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artist{}, ErrNotFound
		}
		return Artist{}, err
	}
	return artist, nil
}

// ArtistByUser returns the oldest artist profile owned by userID.
func (s *Store) ArtistByUser(ctx context.Context, userID string) (Artist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		WHERE user_id = $1
		ORDER BY date_created ASC, id ASC
		LIMIT 1
	`, userID)

	artist, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artist{}, ErrNotFound
		}
		return Artist{}, err
	}
	return artist, nil
}

// CreateArtist inserts an artist and returns the stored row.
func (s *Store) CreateArtist(ctx context.Context, artist Artist) (Artist, error) {
	artist.ID = s.newID()
	artist.Name = strings.TrimSpace(artist.Name)
	artist.DateCreated = s.now()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO artists (id, name, user_id, subscription_level, date_created)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+artistColumns,
		artist.ID, artist.Name, artist.UserID, artist.SubscriptionLevel, artist.DateCreated)

	created, err := scanArtist(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Artist{}, ErrDuplicateID
		}
		return Artist{}, fmt.Errorf("insert artist: %w", err)
	}
	return created, nil
}

// UpdateArtist applies the patch and returns the row as stored after the write.
func (s *Store) UpdateArtist(ctx context.Context, id string, patch ArtistPatch) (Artist, error) {
	set := newUpdateSet(id)
	if patch.Name != nil {
		set.add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.SubscriptionLevel != nil {
		set.add("subscription_level", *patch.SubscriptionLevel)
	}
	if set.empty() {
		return s.GetArtist(ctx, id)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE artists
		SET `+set.String()+`
		WHERE id = $1
		RETURNING `+artistColumns,
		set.args...)

	artist, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artist{}, ErrNotFound
		}
		return Artist{}, fmt.Errorf("update artist: %w", err)
	}
	return artist, nil
}

// DeleteArtist removes an artist and reports whether a row was deleted.
func (s *Store) DeleteArtist(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM artists
		WHERE id = $1
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete artist: %w", err)
	}
	return rowsAffected(res, "delete artist")
}

func scanArtist(scanner rowScanner) (Artist, error) {
	var a Artist
	if err := scanner.Scan(&a.ID, &a.Name, &a.UserID, &a.SubscriptionLevel, &a.DateCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artist{}, err
		}
		return Artist{}, fmt.Errorf("scan artist: %w", err)
	}
	return a, nil
}
