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

	"spotifiuby/internal/store"
)

type songDocument struct {
	ID           primitive.ObjectID   `bson:"_id"`
	Name         string               `bson:"name"`
	Artists      []primitive.ObjectID `bson:"artists"`
	Genre        string               `bson:"genre"`
	Status       string               `bson:"status"`
	DateCreated  time.Time            `bson:"date_created"`
	DateUploaded *time.Time           `bson:"date_uploaded"`
}

func (d songDocument) toSong() (store.Song, error) {
	status, err := store.ParseSongStatus(d.Status)
	if err != nil {
		return store.Song{}, err
	}
	song := store.Song{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Artists:     hexes(d.Artists),
		Genre:       d.Genre,
		Status:      status,
		DateCreated: d.DateCreated.UTC(),
	}
	if d.DateUploaded != nil {
		t := d.DateUploaded.UTC()
		song.DateUploaded = &t
	}
	return song, nil
}

// ListSongs returns songs matching the filter.
func (s *Store) ListSongs(ctx context.Context, filter store.SongFilter) ([]store.Song, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []store.Song{}, nil
	}

	match := bson.D{}
	if filter.ArtistID != "" {
		oid, err := objectID(filter.ArtistID)
		if err != nil {
			return nil, err
		}
		match = append(match, bson.E{Key: "artists", Value: oid})
	}
	if filter.IDs != nil {
		oids, err := objectIDs(filter.IDs)
		if err != nil {
			return nil, err
		}
		match = append(match, bson.E{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}})
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, lookupLevelStages(filter.MaxSubscriptionLevel)...)
	if q := strings.TrimSpace(filter.Query); q != "" {
		re := containsText(q)
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "genre", Value: re}},
			bson.D{{Key: "artist_docs.name", Value: re}},
		}}}}})
	}
	pipeline = append(pipeline, sortAndTrim()...)

	cursor, err := s.db.Collection(songsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate songs: %w", err)
	}
	defer cursor.Close(ctx)

	songs := []store.Song{}
	for cursor.Next(ctx) {
		var doc songDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode song: %w", err)
		}
		song, err := doc.toSong()
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// GetSong returns a single song by its identifier.
func (s *Store) GetSong(ctx context.Context, id string) (store.Song, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Song{}, err
	}
	var doc songDocument
	if err := s.db.Collection(songsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return store.Song{}, notFound(err)
	}
	return doc.toSong()
}

// CreateSong inserts a song in the not_uploaded state.
func (s *Store) CreateSong(ctx context.Context, song store.Song) (store.Song, error) {
	artists, err := objectIDs(song.Artists)
	if err != nil {
		return store.Song{}, err
	}
	doc := songDocument{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(song.Name),
		Artists:     artists,
		Genre:       song.Genre,
		Status:      string(store.SongNotUploaded),
		DateCreated: s.now(),
	}
	if _, err := s.db.Collection(songsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.Song{}, store.ErrDuplicateID
		}
		return store.Song{}, fmt.Errorf("insert song: %w", err)
	}
	return doc.toSong()
}

// UpdateSong applies the patch and returns the document as stored after the write.
func (s *Store) UpdateSong(ctx context.Context, id string, patch store.SongPatch) (store.Song, error) {
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: strings.TrimSpace(*patch.Name)})
	}
	if patch.Artists != nil {
		artists, err := objectIDs(patch.Artists)
		if err != nil {
			return store.Song{}, err
		}
		set = append(set, bson.E{Key: "artists", Value: artists})
	}
	if patch.Genre != nil {
		set = append(set, bson.E{Key: "genre", Value: *patch.Genre})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*patch.Status)})
	}
	if len(set) == 0 {
		return s.GetSong(ctx, id)
	}
	return s.findAndUpdateSong(ctx, id, bson.D{{Key: "$set", Value: set}})
}

// ActivateSong marks the song active, stamping the upload date only the first time.
func (s *Store) ActivateSong(ctx context.Context, id string, at time.Time) (store.Song, error) {
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(store.SongActive)},
		{Key: "date_uploaded", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$date_uploaded", at.UTC()}}}},
	}}}}
	return s.findAndUpdateSong(ctx, id, update)
}

// DeleteSong removes a song and reports whether a document was deleted.
func (s *Store) DeleteSong(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, songsCollection, id)
}

func (s *Store) findAndUpdateSong(ctx context.Context, id string, update any) (store.Song, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Song{}, err
	}
	var doc songDocument
	err = s.db.Collection(songsCollection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, afterUpdate()).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Song{}, store.ErrNotFound
		}
		return store.Song{}, fmt.Errorf("update song: %w", err)
	}
	return doc.toSong()
}
