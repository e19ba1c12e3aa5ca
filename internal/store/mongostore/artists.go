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

type artistDocument struct {
	ID                primitive.ObjectID `bson:"_id"`
	Name              string             `bson:"name"`
	UserID            string             `bson:"user_id"`
	SubscriptionLevel int                `bson:"subscription_level"`
	DateCreated       time.Time          `bson:"date_created"`
}

func (d artistDocument) toArtist() store.Artist {
	return store.Artist{
		ID:                d.ID.Hex(),
		Name:              d.Name,
		UserID:            d.UserID,
		SubscriptionLevel: d.SubscriptionLevel,
		DateCreated:       d.DateCreated.UTC(),
	}
}

// ListArtists returns artists matching the filter.
func (s *Store) ListArtists(ctx context.Context, filter store.ArtistFilter) ([]store.Artist, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []store.Artist{}, nil
	}

	query := bson.D{}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = append(query, bson.E{Key: "name", Value: containsText(q)})
	}
	if filter.UserID != "" {
		query = append(query, bson.E{Key: "user_id", Value: filter.UserID})
	}
	if filter.IDs != nil {
		oids, err := objectIDs(filter.IDs)
		if err != nil {
			return nil, err
		}
		query = append(query, bson.E{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_created", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(artistsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find artists: %w", err)
	}
	defer cursor.Close(ctx)

	artists := []store.Artist{}
	for cursor.Next(ctx) {
		var doc artistDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode artist: %w", err)
		}
		artists = append(artists, doc.toArtist())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}
	return artists, nil
}

// GetArtist returns a single artist by its identifier.
func (s *Store) GetArtist(ctx context.Context, id string) (store.Artist, error) {
	oid, err := objectID(id)
	if err != nil {
		return store.Artist{}, err
	}
	var doc artistDocument
	if err := s.db.Collection(artistsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return store.Artist{}, notFound(err)
	}
	return doc.toArtist(), nil
}

// ArtistByUser returns the oldest artist profile owned by userID.
func (s *Store) ArtistByUser(ctx context.Context, userID string) (store.Artist, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date_created", Value: 1}, {Key: "_id", Value: 1}})
	var doc artistDocument
	if err := s.db.Collection(artistsCollection).FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&doc); err != nil {
		return store.Artist{}, notFound(err)
	}
	return doc.toArtist(), nil
}

// CreateArtist inserts an artist.
func (s *Store) CreateArtist(ctx context.Context, artist store.Artist) (store.Artist, error) {
	doc := artistDocument{
		ID:                primitive.NewObjectID(),
		Name:              strings.TrimSpace(artist.Name),
		UserID:            artist.UserID,
		SubscriptionLevel: artist.SubscriptionLevel,
		DateCreated:       s.now(),
	}
	if _, err := s.db.Collection(artistsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.Artist{}, store.ErrDuplicateID
		}
		return store.Artist{}, fmt.Errorf("insert artist: %w", err)
	}
	return doc.toArtist(), nil
}

// UpdateArtist applies the patch and returns the document as stored after the write.
func (s *Store) UpdateArtist(ctx context.Context, id string, patch store.ArtistPatch) (store.Artist, error) {
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: strings.TrimSpace(*patch.Name)})
	}
	if patch.SubscriptionLevel != nil {
		set = append(set, bson.E{Key: "subscription_level", Value: *patch.SubscriptionLevel})
	}
	if len(set) == 0 {
		return s.GetArtist(ctx, id)
	}

	oid, err := objectID(id)
	if err != nil {
		return store.Artist{}, err
	}
	var doc artistDocument
	err = s.db.Collection(artistsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.D{{Key: "$set", Value: set}}, afterUpdate()).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Artist{}, store.ErrNotFound
		}
		return store.Artist{}, fmt.Errorf("update artist: %w", err)
	}
	return doc.toArtist(), nil
}

// DeleteArtist removes an artist and reports whether a document was deleted.
func (s *Store) DeleteArtist(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, artistsCollection, id)
}
