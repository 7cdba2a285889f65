package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vibeify/types"
)

// MongoCatalog stores MediaRecords as documents keyed by identity
type MongoCatalog struct {
	col     *mongo.Collection
	timeout time.Duration
}

// ConnectMongoCatalog creates a client for uri. The driver connects lazily,
// so an unreachable server surfaces on Ping or on the first operation.
func ConnectMongoCatalog(ctx context.Context, uri, database, collection string, timeout time.Duration) (*MongoCatalog, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mongo connect: %v", types.ErrInternal, err)
	}
	return NewMongoCatalog(client.Database(database).Collection(collection), timeout), client, nil
}

// NewMongoCatalog wraps an existing collection
func NewMongoCatalog(col *mongo.Collection, timeout time.Duration) *MongoCatalog {
	return &MongoCatalog{col: col, timeout: timeout}
}

// Ping verifies the server is reachable
func (r *MongoCatalog) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.col.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: mongo ping: %v", types.ErrInternal, err)
	}
	return nil
}

// Exists reports whether a document with _id == identity exists
func (r *MongoCatalog) Exists(ctx context.Context, identity string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"_id": identity}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%w: catalog exists: %v", types.ErrInternal, err)
	}
	return n > 0, nil
}

// Get fetches one record
func (r *MongoCatalog) Get(ctx context.Context, identity string) (*types.MediaRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var m types.MediaRecord
	err := r.col.FindOne(ctx, bson.M{"_id": identity}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: catalog entry %s", types.ErrNotFound, identity)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: catalog get: %v", types.ErrInternal, err)
	}
	return &m, nil
}

// Set replaces or inserts the record for identity
func (r *MongoCatalog) Set(ctx context.Context, identity string, record *types.MediaRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := *record
	doc.Identity = identity
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": identity}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: catalog set: %v", types.ErrInternal, err)
	}
	return nil
}

// StreamAll walks the whole collection with a cursor
func (r *MongoCatalog) StreamAll(ctx context.Context, fn func(types.MediaRecord) error) error {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("%w: catalog stream: %v", types.ErrInternal, err)
	}
	defer cur.Close(context.Background())

	for cur.Next(ctx) {
		var m types.MediaRecord
		if err := cur.Decode(&m); err != nil {
			return fmt.Errorf("%w: catalog decode: %v", types.ErrInternal, err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("%w: catalog cursor: %v", types.ErrInternal, err)
	}
	return nil
}

// StreamIdentities walks the collection projected to _id; record bodies are
// never decoded
func (r *MongoCatalog) StreamIdentities(ctx context.Context, fn func(identity string) error) error {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return fmt.Errorf("%w: catalog stream: %v", types.ErrInternal, err)
	}
	defer cur.Close(context.Background())

	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("%w: catalog decode: %v", types.ErrInternal, err)
		}
		if err := fn(doc.ID); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("%w: catalog cursor: %v", types.ErrInternal, err)
	}
	return nil
}
