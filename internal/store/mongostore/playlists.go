package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spotifiuby/internal/store"
)

type playlistDocument struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Name        string               `bson:"name"`
	Owner       string               `bson:"owner"`
	Songs       []primitive.ObjectID `bson:"songs"`
	Cover       *string              `bson:"cover"`
	DateCreated time.Time            `bson:"date_created"`
}

func (d playlistDocument) toPlaylist() store.Playlist {
	return store.Playlist{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Owner:       d.Owner,
		Songs:       hexes(d.Songs),
		Cover:       d.Cover,
		DateCreated: d.DateCreated.UTC(),
	}
}

// ListPlaylists returns playlists matching the filter.
func (s *Store) ListPlaylists(ctx context.Context, filter store.PlaylistFilter) ([]store.Playlist, error) {
	query := bson.D{}
	if q := strings.TrimSpace(filter.Query); q != "" {
		re := containsText(q)
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "owner", Value: re}},
		}})
	}
	if filter.Owner != "" {
		query = append(query, bson.E{Key: "owner", Value: filter.Owner})
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_created", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(playlistsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find playlists: %w", err)
	}
	defer cursor.Close(ctx)

	playlists := []store.Playlist{}
	for cursor.Next(ctx) {
		var doc playlistDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode playlist: %w", err)
		}
		playlists = append(playlists, doc.toPlaylist())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// GetPlaylist returns a single playlist by its identifier.
func (s *Store) GetPlaylist(ctx context.Context, id string) (store.Playlist, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Playlist{}, err
	}
	var doc playlistDocument
	if err := s.db.Collection(playlistsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return store.Playlist{}, notFound(err)
	}
	return doc.toPlaylist(), nil
}

// CreatePlaylist inserts a playlist.
func (s *Store) CreatePlaylist(ctx context.Context, playlist store.Playlist) (store.Playlist, error) {
	songs, err := objectIDs(playlist.Songs)
	if err != nil {
		return store.Playlist{}, err
	}
	doc := playlistDocument{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(playlist.Name),
		Owner:       playlist.Owner,
		Songs:       songs,
		Cover:       playlist.Cover,
		DateCreated: s.now(),
	}
	if _, err := s.db.Collection(playlistsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.Playlist{}, store.ErrDuplicateID
		}
		return store.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return doc.toPlaylist(), nil
}

// UpdatePlaylist applies the patch and returns the document as stored after the write.
func (s *Store) UpdatePlaylist(ctx context.Context, id string, patch store.PlaylistPatch) (store.Playlist, error) {
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: strings.TrimSpace(*patch.Name)})
	}
	if patch.Songs != nil {
		songs, err := objectIDs(patch.Songs)
		if err != nil {
			return store.Playlist{}, err
		}
		set = append(set, bson.E{Key: "songs", Value: songs})
	}
	if patch.Cover != nil {
		set = append(set, bson.E{Key: "cover", Value: *patch.Cover})
	}
	if len(set) == 0 {
		return s.GetPlaylist(ctx, id)
	}
	return s.findAndUpdatePlaylist(ctx, id, bson.D{{Key: "$set", Value: set}})
}

// AppendPlaylistSongs appends songIDs, in order, to the playlist's song list.
func (s *Store) AppendPlaylistSongs(ctx context.Context, id string, songIDs []string) (store.Playlist, error) {
	oids, err := objectIDs(songIDs)
	if err != nil {
		return store.Playlist{}, err
	}
	return s.findAndUpdatePlaylist(ctx, id, bson.D{{Key: "$push", Value: bson.D{
		{Key: "songs", Value: bson.D{{Key: "$each", Value: oids}}},
	}}})
}

// RemovePlaylistSong drops every occurrence of songID from the playlist.
func (s *Store) RemovePlaylistSong(ctx context.Context, id, songID string) (store.Playlist, error) {
	oid, err := objectID(songID)
	if err != nil {
		return store.Playlist{}, err
	}
	return s.findAndUpdatePlaylist(ctx, id, bson.D{{Key: "$pull", Value: bson.D{{Key: "songs", Value: oid}}}})
}

// DeletePlaylist removes a playlist and reports whether a document was deleted.
func (s *Store) DeletePlaylist(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, playlistsCollection, id)
}

func (s *Store) findAndUpdatePlaylist(ctx context.Context, id string, update any) (store.Playlist, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Playlist{}, err
	}
	var doc playlistDocument
	err = s.db.Collection(playlistsCollection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, afterUpdate()).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Playlist{}, store.ErrNotFound
		}
		return store.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return doc.toPlaylist(), nil
}
