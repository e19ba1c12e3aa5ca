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

type albumDocument struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Name        string               `bson:"name"`
	Artists     []primitive.ObjectID `bson:"artists"`
	Songs       []primitive.ObjectID `bson:"songs"`
	Year        int                  `bson:"year"`
	Cover       *string              `bson:"cover"`
	DateCreated time.Time            `bson:"date_created"`
}

func (d albumDocument) toAlbum() store.Album {
	return store.Album{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Artists:     hexes(d.Artists),
		Songs:       hexes(d.Songs),
		Year:        d.Year,
		Cover:       d.Cover,
		DateCreated: d.DateCreated.UTC(),
	}
}

// ListAlbums returns albums matching the filter.
func (s *Store) ListAlbums(ctx context.Context, filter store.AlbumFilter) ([]store.Album, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []store.Album{}, nil
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
			bson.D{{Key: "artist_docs.name", Value: re}},
		}}}}})
	}
	pipeline = append(pipeline, sortAndTrim()...)

	cursor, err := s.db.Collection(albumsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate albums: %w", err)
	}
	defer cursor.Close(ctx)

	albums := []store.Album{}
	for cursor.Next(ctx) {
		var doc albumDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode album: %w", err)
		}
		albums = append(albums, doc.toAlbum())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// GetAlbum returns a single album by its identifier.
func (s *Store) GetAlbum(ctx context.Context, id string) (store.Album, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Album{}, err
	}
	var doc albumDocument
	if err := s.db.Collection(albumsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return store.Album{}, notFound(err)
	}
	return doc.toAlbum(), nil
}

// CreateAlbum inserts an album.
func (s *Store) CreateAlbum(ctx context.Context, album store.Album) (store.Album, error) {
	artists, err := objectIDs(album.Artists)
	if err != nil {
		return store.Album{}, err
	}
	songs, err := objectIDs(album.Songs)
	if err != nil {
		return store.Album{}, err
	}
	doc := albumDocument{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(album.Name),
		Artists:     artists,
		Songs:       songs,
		Year:        album.Year,
		Cover:       album.Cover,
		DateCreated: s.now(),
	}
	if _, err := s.db.Collection(albumsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.Album{}, store.ErrDuplicateID
		}
		return store.Album{}, fmt.Errorf("insert album: %w", err)
	}
	return doc.toAlbum(), nil
}

// UpdateAlbum applies the patch and returns the document as stored after the write.
func (s *Store) UpdateAlbum(ctx context.Context, id string, patch store.AlbumPatch) (store.Album, error) {
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: strings.TrimSpace(*patch.Name)})
	}
	if patch.Artists != nil {
		artists, err := objectIDs(patch.Artists)
		if err != nil {
			return store.Album{}, err
		}
		set = append(set, bson.E{Key: "artists", Value: artists})
	}
	if patch.Songs != nil {
		songs, err := objectIDs(patch.Songs)
		if err != nil {
			return store.Album{}, err
		}
		set = append(set, bson.E{Key: "songs", Value: songs})
	}
	if patch.Year != nil {
		set = append(set, bson.E{Key: "year", Value: *patch.Year})
	}
	if patch.Cover != nil {
		set = append(set, bson.E{Key: "cover", Value: *patch.Cover})
	}
	if len(set) == 0 {
		return s.GetAlbum(ctx, id)
	}
	return s.findAndUpdateAlbum(ctx, id, bson.D{{Key: "$set", Value: set}})
}

// AddAlbumSong appends songID to the album's song list.
func (s *Store) AddAlbumSong(ctx context.Context, id, songID string) (store.Album, error) {
	oid, err := objectID(songID)
	if err != nil {
		return store.Album{}, err
	}
	return s.findAndUpdateAlbum(ctx, id, bson.D{{Key: "$push", Value: bson.D{{Key: "songs", Value: oid}}}})
}

// AddAlbumArtist appends artistID to the album's artist list.
func (s *Store) AddAlbumArtist(ctx context.Context, id, artistID string) (store.Album, error) {
	oid, err := objectID(artistID)
	if err != nil {
		return store.Album{}, err
	}
	return s.findAndUpdateAlbum(ctx, id, bson.D{{Key: "$push", Value: bson.D{{Key: "artists", Value: oid}}}})
}

// DeleteAlbum removes an album and reports whether a document was deleted.
func (s *Store) DeleteAlbum(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, albumsCollection, id)
}

func (s *Store) findAndUpdateAlbum(ctx context.Context, id string, update any) (store.Album, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Album{}, err
	}
	var doc albumDocument
	err = s.db.Collection(albumsCollection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, afterUpdate()).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Album{}, store.ErrNotFound
		}
		return store.Album{}, fmt.Errorf("update album: %w", err)
	}
	return doc.toAlbum(), nil
}
