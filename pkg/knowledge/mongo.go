package knowledge

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// MongoCollection is the collection holding site records.
const MongoCollection = "ai_secretary"

// MongoStore implements Store over a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	prefix string
}

// DialMongo connects to uri and ensures the unique indexes exist.
func DialMongo(ctx context.Context, uri, database, prefix string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client.Database(database).Collection(MongoCollection), prefix)
	s.client = client

	_, err = s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "siteId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}
	return s, nil
}

// NewMongoStore wraps an existing collection.
func NewMongoStore(coll *mongo.Collection, prefix string) *MongoStore {
	return &MongoStore{coll: coll, prefix: prefix}
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (models.KnowledgeRecord, error) {
	var rec models.KnowledgeRecord
	err := s.coll.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("find site: %w", err)
	}
	return rec, nil
}

// Lookup returns the knowledge text for siteID.
func (s *MongoStore) Lookup(ctx context.Context, siteID string) (string, error) {
	rec, err := s.findOne(ctx, bson.M{"siteId": siteID})
	if err != nil {
		return "", err
	}
	return rec.KnowledgeContext, nil
}

// ByEmail returns the record owned by email.
func (s *MongoStore) ByEmail(ctx context.Context, email string) (models.KnowledgeRecord, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// Provision returns the existing record for email or inserts a new one.
func (s *MongoStore) Provision(ctx context.Context, email string) (models.KnowledgeRecord, error) {
	rec, err := s.ByEmail(ctx, email)
	if !errors.Is(err, ErrNotFound) {
		return rec, err
	}

	rec = models.KnowledgeRecord{
		ID:        newRecordID(),
		SiteID:    NewSiteID(s.prefix),
		Email:     email,
		CreatedAt: now(),
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.ByEmail(ctx, email)
		}
		return models.KnowledgeRecord{}, fmt.Errorf("insert site: %w", err)
	}
	return rec, nil
}

// SetKnowledge replaces the knowledge text for email's record.
func (s *MongoStore) SetKnowledge(ctx context.Context, email, text string) (models.KnowledgeRecord, error) {
	var rec models.KnowledgeRecord
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"knowledgeContext": text, "updateTime": now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("set knowledge: %w", err)
	}
	return rec, nil
}

// Close disconnects the client if this store owns it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}
