package content

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotifiuby/internal/apperr"
	"spotifiuby/internal/auth"
	"spotifiuby/internal/payments"
	"spotifiuby/internal/store"
	"spotifiuby/internal/tasks"
)

const (
	songID     = "625a1b2c3d4e5f6a7b8c9d10"
	freeArtist = "625a1b2c3d4e5f6a7b8c9d01"
	paidArtist = "625a1b2c3d4e5f6a7b8c9d02"
	missingID  = "625a1b2c3d4e5f6a7b8c9dff"
)

type stubSongs struct {
	songs     map[string]store.Song
	activated []time.Time
}

func (s *stubSongs) GetSong(_ context.Context, id string) (store.Song, error) {
	song, ok := s.songs[id]
	if !ok {
		return store.Song{}, store.ErrNotFound
	}
	return song, nil
}

func (s *stubSongs) ActivateSong(_ context.Context, id string, at time.Time) (store.Song, error) {
	song, ok := s.songs[id]
	if !ok {
		return store.Song{}, store.ErrNotFound
	}
	song.Status = store.SongActive
	if song.DateUploaded == nil {
		song.DateUploaded = &at
	}
	s.songs[id] = song
	s.activated = append(s.activated, at)
	return song, nil
}

type stubArtists map[string]store.Artist

func (s stubArtists) GetArtist(_ context.Context, id string) (store.Artist, error) {
	a, ok := s[id]
	if !ok {
		return store.Artist{}, store.ErrNotFound
	}
	return a, nil
}

type memoryBlobs struct {
	data  map[string][]byte
	reads int
	err   error
}

func (b *memoryBlobs) Get(_ context.Context, id string) ([]byte, bool, error) {
	b.reads++
	if b.err != nil {
		return nil, false, b.err
	}
	d, ok := b.data[id]
	return d, ok, nil
}

func (b *memoryBlobs) Put(_ context.Context, id string, data []byte) error {
	if b.err != nil {
		return b.err
	}
	b.data[id] = data
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []payments.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, notification payments.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

// inlineQueue runs tasks synchronously and records their names.
type inlineQueue struct {
	names []string
	errs  []error
}

func (q *inlineQueue) Submit(name string, fn tasks.Task) bool {
	q.names = append(q.names, name)
	q.errs = append(q.errs, fn(context.Background()))
	return true
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ any) {
	p.types = append(p.types, eventType)
}

type fixture struct {
	songs     *stubSongs
	blobs     *memoryBlobs
	notifier  *recordingNotifier
	queue     *inlineQueue
	publisher *recordingPublisher
	svc       Service
}

func newFixture(status store.SongStatus, artistIDs ...string) *fixture {
	f := &fixture{
		songs: &stubSongs{songs: map[string]store.Song{
			songID: {ID: songID, Name: "S", Artists: artistIDs, Status: status},
		}},
		blobs:     &memoryBlobs{data: map[string][]byte{}},
		notifier:  &recordingNotifier{},
		queue:     &inlineQueue{},
		publisher: &recordingPublisher{},
	}
	f.svc = New(Deps{
		Songs: f.songs,
		Artists: stubArtists{
			freeArtist: {ID: freeArtist, UserID: "artist-free", SubscriptionLevel: 0},
			paidArtist: {ID: paidArtist, UserID: "artist-paid", SubscriptionLevel: 2},
		},
		Blobs:     f.blobs,
		Payments:  f.notifier,
		Queue:     f.queue,
		Publisher: f.publisher,
	})
	return f
}

func TestUploadThenDownload(t *testing.T) {
	f := newFixture(store.SongNotUploaded, freeArtist)
	ctx := context.Background()

	song, err := f.svc.Upload(ctx, songID, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, store.SongActive, song.Status)
	require.NotNil(t, song.DateUploaded)
	assert.Contains(t, f.publisher.types, "song.activated")

	data, err := f.svc.Download(ctx, songID, auth.Caller{UserID: "listener"})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestReuploadOverwritesAndKeepsFirstUploadTime(t *testing.T) {
	f := newFixture(store.SongNotUploaded, freeArtist)
	ctx := context.Background()

	first, err := f.svc.Upload(ctx, songID, []byte("old"))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, songID, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, *first.DateUploaded, *second.DateUploaded)

	data, err := f.svc.Download(ctx, songID, auth.Caller{})
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestInactiveSongIsRejectedBeforeBlobAccess(t *testing.T) {
	f := newFixture(store.SongInactive, freeArtist)

	_, err := f.svc.Download(context.Background(), songID, auth.Caller{IsAdmin: true})
	assert.True(t, errors.Is(err, apperr.ErrSongNotAvailable))
	assert.Equal(t, 0, f.blobs.reads)

	_, err = f.svc.Upload(context.Background(), songID, []byte("x"))
	assert.True(t, errors.Is(err, apperr.ErrSongNotAvailable))
	assert.Empty(t, f.blobs.data, "no blob write after failed validation")
	assert.Empty(t, f.songs.activated, "no state transition after failed validation")
}

func TestDownloadMissingContent(t *testing.T) {
	f := newFixture(store.SongNotUploaded, freeArtist)

	_, err := f.svc.Download(context.Background(), songID, auth.Caller{})
	assert.True(t, errors.Is(err, apperr.ErrContentNotFound))
	assert.Equal(t, "Content not found for Song "+songID, apperr.Detail(err))
}

func TestDownloadValidation(t *testing.T) {
	f := newFixture(store.SongActive, freeArtist)

	_, err := f.svc.Download(context.Background(), "123", auth.Caller{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidIdentifier))

	_, err = f.svc.Download(context.Background(), missingID, auth.Caller{})
	assert.True(t, errors.Is(err, apperr.ErrSongNotFound))
}

func TestDownloadSubscriptionGate(t *testing.T) {
	cases := []struct {
		name    string
		caller  auth.Caller
		allowed bool
	}{
		{"free tier listener", auth.Caller{UserID: "listener", Tier: 0}, false},
		{"tier below level", auth.Caller{UserID: "listener", Tier: 1}, false},
		{"tier at level", auth.Caller{UserID: "listener", Tier: 2}, true},
		{"owner", auth.Caller{UserID: "artist-paid"}, true},
		{"admin", auth.Caller{UserID: "root", IsAdmin: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(store.SongActive, freeArtist, paidArtist)
			f.blobs.data[songID] = []byte("x")

			_, err := f.svc.Download(context.Background(), songID, tc.caller)
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrContentForbidden))
			assert.Equal(t, 0, f.blobs.reads)
		})
	}
}

func TestDownloadNotifiesPaidArtistsOnly(t *testing.T) {
	f := newFixture(store.SongActive, freeArtist, paidArtist)
	f.blobs.data[songID] = []byte("x")

	_, err := f.svc.Download(context.Background(), songID, auth.Caller{UserID: "listener", Tier: 3})
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, payments.Notification{
		ArtistID:       paidArtist,
		ArtistUserID:   "artist-paid",
		SongID:         songID,
		ListenerUserID: "listener",
		Amount:         "0.000002",
	}, f.notifier.sent[0])
	assert.Contains(t, f.queue.names, "payment:"+paidArtist)
	assert.Contains(t, f.publisher.types, "song.downloaded")
}

func TestPaymentFailureDoesNotAffectDownload(t *testing.T) {
	f := newFixture(store.SongActive, paidArtist)
	f.blobs.data[songID] = []byte("x")
	f.notifier.err = errors.New("sink down")

	data, err := f.svc.Download(context.Background(), songID, auth.Caller{UserID: "artist-paid"})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	require.Len(t, f.notifier.sent, 1)
}

func TestUploadRejectsEmptyFileAndBlobErrors(t *testing.T) {
	f := newFixture(store.SongNotUploaded, freeArtist)

	_, err := f.svc.Upload(context.Background(), songID, nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRequest))

	f.blobs.err = errors.New("bucket unavailable")
	_, err = f.svc.Upload(context.Background(), songID, []byte("x"))
	require.Error(t, err)
	assert.Empty(t, f.songs.activated)
}
