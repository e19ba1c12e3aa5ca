// Package content serves and accepts song audio, drives the song lifecycle on
// upload and dispatches per-download payment notifications.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/events"
	"spotifiuby/internal/ids"
	"spotifiuby/internal/payments"
	"spotifiuby/internal/store"
	"spotifiuby/internal/tasks"
)

// SongStore reads songs and performs the activation transition.
type SongStore interface {
	GetSong(ctx context.Context, id string) (store.Song, error)
	ActivateSong(ctx context.Context, id string, at time.Time) (store.Song, error)
}

// ArtistLookup resolves the artists credited on a song.
type ArtistLookup interface {
	GetArtist(ctx context.Context, id string) (store.Artist, error)
}

// Blobs holds the audio bytes.
type Blobs interface {
	Get(ctx context.Context, songID string) ([]byte, bool, error)
	Put(ctx context.Context, songID string, data []byte) error
}

// Submitter runs work off the request path.
type Submitter interface {
	Submit(name string, fn tasks.Task) bool
}

// Service handles audio downloads and uploads.
type Service interface {
	Download(ctx context.Context, songID string, caller auth.Caller) ([]byte, error)
	Upload(ctx context.Context, songID string, data []byte) (store.Song, error)
}

// Deps groups the collaborators of the content Service.
type Deps struct {
	Songs     SongStore
	Artists   ArtistLookup
	Blobs     Blobs
	Payments  payments.PaymentNotifier
	Prices    payments.Prices
	Queue     Submitter
	Publisher events.Publisher
}

type service struct {
	songs     SongStore
	artists   ArtistLookup
	blobs     Blobs
	payments  payments.PaymentNotifier
	prices    payments.Prices
	queue     Submitter
	publisher events.Publisher
	now       func() time.Time
}

// New constructs a content Service.
func New(deps Deps) Service {
	prices := deps.Prices
	if prices == nil {
		prices = payments.DefaultPrices()
	}
	notifier := deps.Payments
	if notifier == nil {
		notifier = payments.Discard{}
	}
	return &service{
		songs:     deps.Songs,
		artists:   deps.Artists,
		blobs:     deps.Blobs,
		payments:  notifier,
		prices:    prices,
		queue:     deps.Queue,
		publisher: deps.Publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Download(ctx context.Context, songID string, caller auth.Caller) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	song, err := s.availableSong(ctx, songID)
	if err != nil {
		return nil, err
	}

	artists, err := s.creditedArtists(ctx, song)
	if err != nil {
		return nil, err
	}
	if !canDownload(caller, artists) {
		return nil, apperr.ContentForbidden(songID, caller.UserID)
	}

	data, found, err := s.blobs.Get(ctx, songID)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if !found {
		return nil, apperr.ContentNotFound(songID)
	}

	s.notifyPayments(ctx, song, artists, caller.UserID)
	s.publish(ctx, events.SongDownloaded, map[string]string{"song_id": song.ID, "user_id": caller.UserID})
	return data, nil
}

func (s *service) Upload(ctx context.Context, songID string, data []byte) (store.Song, error) {
	if err := ctx.Err(); err != nil {
		return store.Song{}, err
	}
	if _, err := s.availableSong(ctx, songID); err != nil {
		return store.Song{}, err
	}
	if len(data) == 0 {
		return store.Song{}, apperr.InvalidRequest("file is empty")
	}

	if err := s.blobs.Put(ctx, songID, data); err != nil {
		return store.Song{}, fmt.Errorf("write content: %w", err)
	}

	song, err := s.songs.ActivateSong(ctx, songID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Song{}, apperr.SongNotFound(songID)
		}
		return store.Song{}, err
	}

	zerolog.Ctx(ctx).Info().Str("song_id", songID).Int("bytes", len(data)).Msg("content uploaded")
	s.publish(ctx, events.SongActivated, song)
	return song, nil
}

// availableSong rejects malformed ids, unknown songs and inactive songs.
func (s *service) availableSong(ctx context.Context, songID string) (store.Song, error) {
	if _, err := ids.Validate(ids.Song, songID); err != nil {
		return store.Song{}, err
	}
	song, err := s.songs.GetSong(ctx, songID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Song{}, apperr.SongNotFound(songID)
		}
		return store.Song{}, err
	}
	if !song.Status.Available() {
		return store.Song{}, apperr.SongNotAvailable(songID)
	}
	return song, nil
}

// creditedArtists loads the song's artists, skipping dangling references.
func (s *service) creditedArtists(ctx context.Context, song store.Song) ([]store.Artist, error) {
	artists := make([]store.Artist, 0, len(song.Artists))
	for _, artistID := range song.Artists {
		artist, err := s.artists.GetArtist(ctx, artistID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				zerolog.Ctx(ctx).Warn().Str("song_id", song.ID).Str("artist_id", artistID).Msg("song references missing artist")
				continue
			}
			return nil, err
		}
		artists = append(artists, artist)
	}
	return artists, nil
}

func canDownload(caller auth.Caller, artists []store.Artist) bool {
	if caller.IsAdmin {
		return true
	}
	level := 0
	for _, artist := range artists {
		if caller.UserID != "" && artist.UserID == caller.UserID {
			return true
		}
		level = max(level, artist.SubscriptionLevel)
	}
	return level == 0 || caller.Tier >= level
}

func (s *service) notifyPayments(ctx context.Context, song store.Song, artists []store.Artist, listenerID string) {
	logger := zerolog.Ctx(ctx).With().Str("song_id", song.ID).Logger()
	for _, artist := range artists {
		amount, ok := s.prices.Price(artist.SubscriptionLevel)
		if !ok {
			continue
		}
		n := payments.Notification{
			ArtistID:       artist.ID,
			ArtistUserID:   artist.UserID,
			SongID:         song.ID,
			ListenerUserID: listenerID,
			Amount:         amount,
		}
		s.submit("payment:"+artist.ID, func(taskCtx context.Context) error {
			return s.payments.Notify(logger.WithContext(taskCtx), n)
		})
	}
}

func (s *service) publish(ctx context.Context, eventType string, payload any) {
	if s.publisher == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	s.submit("event:"+eventType, func(taskCtx context.Context) error {
		s.publisher.Publish(logger.WithContext(taskCtx), eventType, payload)
		return nil
	})
}

// submit hands fn to the queue, running it on a detached goroutine when no queue is wired.
func (s *service) submit(name string, fn tasks.Task) {
	if s.queue != nil {
		s.queue.Submit(name, fn)
		return
	}
	go func() {
		if err := fn(context.Background()); err != nil {
			log.Warn().Str("task", name).Err(err).Msg("task failed")
		}
	}()
}
