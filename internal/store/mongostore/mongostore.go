// Package mongostore persists the catalog in MongoDB.
//
// It exposes the same method set as store.Store so either backend can be
// handed to the app services. Cross references are stored as ObjectIDs.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spotifiuby/internal/store"
)

const (
	songsCollection         = "songs"
	artistsCollection       = "artists"
	albumsCollection        = "albums"
	playlistsCollection     = "playlists"
	subscriptionsCollection = "subscriptions"
)

// Store provides persistence backed by a MongoDB database.
type Store struct {
	db  *mongo.Database
	now func() time.Time
}

// New wraps the given database handle.
func New(db *mongo.Database) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Connect dials uri and pings the primary before returning the client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the lookup indexes used by the catalog queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		artistsCollection:       {Keys: bson.D{{Key: "user_id", Value: 1}}},
		songsCollection:         {Keys: bson.D{{Key: "artists", Value: 1}}},
		albumsCollection:        {Keys: bson.D{{Key: "artists", Value: 1}}},
		playlistsCollection:     {Keys: bson.D{{Key: "owner", Value: 1}}},
		subscriptionsCollection: {Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	for coll, model := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create %s index: %w", coll, err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("parse object id %q: %w", id, err)
	}
	return oid, nil
}

func objectIDs(values []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		oid, err := objectID(v)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func hexes(values []primitive.ObjectID) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Hex())
	}
	return out
}

func containsText(q string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
}

// lookupLevelStages joins the referenced artists and computes effective_level,
// optionally dropping documents above maxLevel.
func lookupLevelStages(maxLevel *int) mongo.Pipeline {
	stages := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: artistsCollection},
			{Key: "localField", Value: "artists"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "artist_docs"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "effective_level", Value: bson.D{{Key: "$ifNull", Value: bson.A{
				bson.D{{Key: "$max", Value: "$artist_docs.subscription_level"}}, 0,
			}}}},
		}}},
	}
	if maxLevel != nil {
		stages = append(stages, bson.D{{Key: "$match", Value: bson.D{
			{Key: "effective_level", Value: bson.D{{Key: "$lte", Value: *maxLevel}}},
		}}})
	}
	return stages
}

func sortAndTrim() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "date_created", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.D{{Key: "artist_docs", Value: 0}, {Key: "effective_level", Value: 0}}}},
	}
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) deleteByID(ctx context.Context, coll, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", coll, err)
	}
	return res.DeletedCount > 0, nil
}

// SubscriptionLevel returns the subscription tier recorded for userID.
func (s *Store) SubscriptionLevel(ctx context.Context, userID string) (int, error) {
	var doc struct {
		Level int `bson:"subscription_type_level"`
	}
	err := s.db.Collection(subscriptionsCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("lookup subscription: %w", err)
	}
	return doc.Level, nil
}
