package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-flower-classifier/internal/classification"
	"go-flower-classifier/internal/logger"
)

const collectionName = "classifications"

// MongoRepository stores classification records as documents in a single
// collection. One client/pool is created at startup and reused for the process
// lifetime. The driver connects lazily, so an unreachable server does not stop
// the process from starting: every operation fails with ErrStoreUnavailable
// until connectivity is restored.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	repo := &MongoRepository{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		// Degraded mode: serve anyway, operations will surface the outage
		logger.WithComponent("repository").WithError(err).Warn("Store unreachable at startup, continuing in degraded mode")
		return repo, nil
	}

	repo.ensureIndexes(ctx)
	logger.WithComponent("repository").WithField("database", database).Info("Connected to store")
	return repo, nil
}

// ensureIndexes is best-effort; a failure here never blocks startup.
func (r *MongoRepository) ensureIndexes(ctx context.Context) {
	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(idxCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}},
		},
	})
	if err != nil {
		logger.WithComponent("repository").WithError(err).Warn("Failed to create store indexes")
	}
}

func (r *MongoRepository) Insert(ctx context.Context, record *classification.Record) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(record)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*classification.Record, error) {
	var doc classificationDocument
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fromDocument(&doc)
}

func (r *MongoRepository) ListAll(ctx context.Context) ([]*classification.Record, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var records []*classification.Record
	for cursor.Next(ctx) {
		var doc classificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		record, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the client pool on shutdown.
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
