package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/orderworker/internal/domain"
)

const collectionName = "orders"

// MongoStore is the document-store-backed order store, grounded on the
// original source's MongoOrderRepository (ReactiveMongoTemplate save /
// findByOrderId / existsByOrderId) and adapted to the synchronous Go
// mongo-driver.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wraps an existing Mongo database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique orderId index plus the performance
// documented secondary indexes. Invoked by cmd/ensure-indexes at
// deploy time, not on the hot path.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_order_id"),
		},
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}},
			Options: options.Index().SetName("idx_customer_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}
	_, err := s.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Save inserts a completed order. A duplicate orderId surfaces
// domain.ErrStoreConflict via the collection's unique index.
func (s *MongoStore) Save(ctx context.Context, order domain.Order) error {
	_, err := s.collection.InsertOne(ctx, order)
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("save order %s: %w", order.OrderID, domain.ErrStoreConflict)
	}
	return fmt.Errorf("save order %s: %w", order.OrderID, err)
}

// FindByOrderID returns the persisted order or domain.ErrNotFound.
func (s *MongoStore) FindByOrderID(ctx context.Context, orderID string) (domain.Order, error) {
	var order domain.Order
	err := s.collection.FindOne(ctx, bson.D{{Key: "orderId", Value: orderID}}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return domain.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("find order %s: %w", orderID, err)
	}
	return order, nil
}

// ExistsByOrderID reports whether an order with this id is already persisted.
func (s *MongoStore) ExistsByOrderID(ctx context.Context, orderID string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx, bson.D{{Key: "orderId", Value: orderID}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check order exists %s: %w", orderID, err)
	}
	return count > 0, nil
}

// Connect opens a Mongo client against uri and returns the named database
// handle, with a bounded connection deadline matching the usual
// postgres.Open convention.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

var _ domain.OrderStore = (*MongoStore)(nil)
