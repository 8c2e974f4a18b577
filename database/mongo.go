package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Database wraps the MongoDB client. It is constructed explicitly and
// handed to the repositories, never held as package-level state. A
// Database whose Connect failed (or was never called because no URL is
// configured) is still usable: Collection returns nil and callers degrade
// to scrape-only operation.
type Database struct {
	client         *mongo.Client
	databaseName   string
	collectionName string
}

// New returns an unconnected Database for the given database/collection.
func New(databaseName, collectionName string) *Database {
	return &Database{
		databaseName:   databaseName,
		collectionName: collectionName,
	}
}

// Connect establishes and verifies the connection. An empty URL is not an
// error: the cache is a best-effort accelerator, so the service runs
// without it.
func (d *Database) Connect(ctx context.Context, mongoURL string) error {
	if mongoURL == "" {
		log.Println("MONGODB_URL not set, price cache disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// Leave the handle nil so the repositories report unavailable.
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	d.client = client
	log.Println("Successfully connected to MongoDB")
	return nil
}

// Available reports whether a verified connection exists.
func (d *Database) Available() bool {
	return d.client != nil
}

// Collection returns the product collection, or nil when the store is
// unavailable.
func (d *Database) Collection() *mongo.Collection {
	if d.client == nil {
		return nil
	}
	return d.client.Database(d.databaseName).Collection(d.collectionName)
}

// Close disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}
