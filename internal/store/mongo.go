package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pubgstats/internal/pubg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoMatch is the document layout of the match collection
type mongoMatch struct {
	MatchID       string    `bson:"matchId"`
	Region        string    `bson:"region"`
	GameMode      string    `bson:"gameMode"`
	IsCustomMatch bool      `bson:"isCustomMatch"`
	Attributes    bson.M    `bson:"attributes,omitempty"`
	InsertedAt    time.Time `bson:"insertedAt"`
}

// MongoStore keeps matches in a MongoDB collection
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects and ensures a unique index on matchId
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "matchId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create matchId index: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

func (s *MongoStore) FindByIDs(ctx context.Context, ids []string) ([]MatchRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cur, err := s.collection.Find(ctx, bson.M{"matchId": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var found []MatchRecord
	for cur.Next(ctx) {
		rec, err := decodeMongo(cur)
		if err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	return found, cur.Err()
}

// InsertMany is unordered so one duplicate does not stop the rest
func (s *MongoStore) InsertMany(ctx context.Context, records []MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	stamp(records, time.Now())

	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		doc := mongoMatch{
			MatchID:       rec.MatchID,
			Region:        string(rec.Region),
			GameMode:      rec.GameMode,
			IsCustomMatch: rec.IsCustomMatch,
			InsertedAt:    rec.InsertedAt,
		}
		if len(rec.RawAttributes) > 0 {
			if err := bson.UnmarshalExtJSON(rec.RawAttributes, false, &doc.Attributes); err != nil {
				return fmt.Errorf("match %s: invalid attributes: %w", rec.MatchID, err)
			}
		}
		docs = append(docs, doc)
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return fmt.Errorf("failed to insert matches: %w", err)
	}
	return nil
}

func (s *MongoStore) All(ctx context.Context, fn func(MatchRecord) error) error {
	cur, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		rec, err := decodeMongo(cur)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func decodeMongo(cur *mongo.Cursor) (MatchRecord, error) {
	var doc mongoMatch
	if err := cur.Decode(&doc); err != nil {
		return MatchRecord{}, err
	}
	rec := MatchRecord{
		MatchID:       doc.MatchID,
		Region:        pubg.Region(doc.Region),
		GameMode:      doc.GameMode,
		IsCustomMatch: doc.IsCustomMatch,
		InsertedAt:    doc.InsertedAt,
	}
	if doc.Attributes != nil {
		raw, err := bson.MarshalExtJSON(doc.Attributes, false, false)
		if err != nil {
			return rec, err
		}
		rec.RawAttributes = raw
	}
	return rec, nil
}

// onlyDuplicateKeys reports whether every write error is a duplicate key
func onlyDuplicateKeys(err error) bool {
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		if bulkErr.WriteConcernError != nil {
			return false
		}
		for _, we := range bulkErr.WriteErrors {
			if we.Code != 11000 {
				return false
			}
		}
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
