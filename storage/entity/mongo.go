package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tonelab/venue/config"
)

// MongoEntityStore keeps each collection in a MongoDB collection of the same name.
type MongoEntityStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	SortKey   string    `bson:"sortKey"`
	Doc       string    `bson:"doc"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongoEntityStore(cfg *config.MongoEntityStrategy) (*MongoEntityStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo entities config is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	store := &MongoEntityStore{client: client, db: client.Database(cfg.Database)}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return store, nil
}

func (s *MongoEntityStore) ensureIndexes(ctx context.Context) error {
	for _, coll := range Collections {
		_, err := s.db.Collection(string(coll)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: sortIndexKeys(),
		})
		if err != nil {
			return fmt.Errorf("failed to create sort index on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoEntityStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoEntityStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.Collection(string(rec.Collection)).InsertOne(ctx, toMongoDocument(rec, time.Now().UTC()))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s/%s", ErrConflict, rec.Collection, rec.ID)
	}
	return err
}

func (s *MongoEntityStore) Update(ctx context.Context, rec Record) error {
	res, err := s.db.Collection(string(rec.Collection)).UpdateOne(ctx, byID(rec.ID), updateFor(rec, time.Now().UTC()))
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoEntityStore) Get(ctx context.Context, coll Collection, id string) (*Record, error) {
	var doc mongoDocument
	err := s.db.Collection(string(coll)).FindOne(ctx, byID(id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec := fromMongoDocument(coll, doc)
	return &rec, nil
}

func (s *MongoEntityStore) List(ctx context.Context, coll Collection) ([]Record, error) {
	cur, err := s.db.Collection(string(coll)).Find(ctx, bson.D{}, options.Find().SetSort(sortIndexKeys()))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []mongoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromMongoDocument(coll, d))
	}

	return out, nil
}

func (s *MongoEntityStore) Delete(ctx context.Context, coll Collection, id string) error {
	res, err := s.db.Collection(string(coll)).DeleteOne(ctx, byID(id))
	if err != nil {
		return err
	}

	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func sortIndexKeys() bson.D {
	return bson.D{{Key: "sortKey", Value: 1}, {Key: "_id", Value: 1}}
}

func updateFor(rec Record, now time.Time) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "sortKey", Value: rec.SortKey},
		{Key: "doc", Value: string(rec.Doc)},
		{Key: "updatedAt", Value: now},
	}}}
}

func toMongoDocument(rec Record, now time.Time) mongoDocument {
	return mongoDocument{ID: rec.ID, SortKey: rec.SortKey, Doc: string(rec.Doc), UpdatedAt: now}
}

func fromMongoDocument(coll Collection, d mongoDocument) Record {
	return Record{Collection: coll, ID: d.ID, SortKey: d.SortKey, Doc: []byte(d.Doc)}
}
