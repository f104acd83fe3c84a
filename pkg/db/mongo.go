package db

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"metacasts/pkg/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each partition in its own collection; the document key is
// stored as _id.
type MongoStore struct {
	mongoClient *mongo.Client
	database    *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, connectionString, databaseName string) (*MongoStore, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("mongo connection string is required")
	}
	if databaseName == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		mongoClient: mongoClient,
		database:    mongoClient.Database(databaseName),
	}, nil
}

func (s *MongoStore) collection(p store.Partition) *mongo.Collection {
	return s.database.Collection(string(p))
}

// Get implements store.Store.
func (s *MongoStore) Get(ctx context.Context, p store.Partition, key string) (store.Document, error) {
	var raw bson.M
	err := s.collection(p).FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s/%s: %w", p, key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", p, key, err)
	}
	delete(raw, "_id")
	return fromBSON(raw), nil
}

// Put implements store.Store. The stored document is replaced as a whole.
func (s *MongoStore) Put(ctx context.Context, p store.Partition, key string, doc store.Document) error {
	body := make(bson.M, len(doc)+1)
	for k, v := range store.NormalizeDocument(doc) {
		body[k] = v
	}
	body["_id"] = key

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection(p).ReplaceOne(ctx, bson.M{"_id": key}, body, opts); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", p, key, err)
	}
	return nil
}

// Keys implements store.Store.
func (s *MongoStore) Keys(ctx context.Context, p store.Partition) ([]string, error) {
	cursor, err := s.collection(p).Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var result struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&result); err != nil {
			continue // Skip documents with non-string ids
		}
		if result.ID != "" && !store.IsReserved(result.ID) {
			keys = append(keys, result.ID)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	if s.mongoClient == nil {
		return nil
	}
	return s.mongoClient.Disconnect(context.Background())
}

// fromBSON converts driver-specific containers into plain maps and slices.
func fromBSON(m bson.M) store.Document {
	doc := make(store.Document, len(m))
	for k, v := range m {
		doc[k] = bsonValue(v)
	}
	return doc
}

func bsonValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(fromBSON(t))
	case bson.D:
		return map[string]any(fromBSON(t.Map()))
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = bsonValue(val)
		}
		return out
	case primitive.DateTime:
		return store.Normalize(t.Time().UTC())
	case int32:
		return int(t)
	case int64:
		return int(t)
	}
	return store.Normalize(v)
}
