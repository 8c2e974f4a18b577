package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beinghadibadami/vegvision/database"
	"github.com/beinghadibadami/vegvision/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrStoreUnavailable means the backing store is unreachable or was never
// configured. Callers treat it as "proceed without cache", never as fatal.
var ErrStoreUnavailable = errors.New("product store unavailable")

// ProductRepository persists ProductRecords keyed by normalized name.
type ProductRepository struct {
	db *database.Database
}

func NewProductRepository(db *database.Database) *ProductRepository {
	return &ProductRepository{db: db}
}

// NormalizeName canonicalizes a product name the way records are keyed:
// lower-cased, then first letter capitalized.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// GetFresh returns the record for name if it was scraped after cutoff.
// A stale or missing record both come back as (nil, nil).
func (r *ProductRepository) GetFresh(ctx context.Context, name string, cutoff time.Time) (*models.ProductRecord, error) {
	coll := r.db.Collection()
	if coll == nil {
		return nil, ErrStoreUnavailable
	}

	filter := bson.M{
		"name":       NormalizeName(name),
		"scraped_at": bson.M{"$gt": cutoff},
	}

	var record models.ProductRecord
	err := coll.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product %q: %v", name, err)
	}
	return &record, nil
}

// GetAny returns the record regardless of freshness. Used for the
// authoritative read-back right after an upsert.
func (r *ProductRepository) GetAny(ctx context.Context, name string) (*models.ProductRecord, error) {
	coll := r.db.Collection()
	if coll == nil {
		return nil, ErrStoreUnavailable
	}

	var record models.ProductRecord
	err := coll.FindOne(ctx, bson.M{"name": NormalizeName(name)}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product %q: %v", name, err)
	}
	return &record, nil
}

// Upsert sets the scalar fields on the record for name (creating it if
// absent) and appends exactly one history entry, in a single atomic update.
func (r *ProductRepository) Upsert(ctx context.Context, name string, fields models.ProductFields, entry models.HistoryEntry) error {
	coll := r.db.Collection()
	if coll == nil {
		return ErrStoreUnavailable
	}

	fields.Name = NormalizeName(name)
	update := bson.M{
		"$set":  fields,
		"$push": bson.M{"price_history": entry},
	}

	_, err := coll.UpdateOne(ctx,
		bson.M{"name": fields.Name},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %q: %v", name, err)
	}
	return nil
}

// ListStale returns the names of records last scraped at or before cutoff,
// for the background refresh job.
func (r *ProductRepository) ListStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	coll := r.db.Collection()
	if coll == nil {
		return nil, ErrStoreUnavailable
	}

	cursor, err := coll.Find(ctx,
		bson.M{"scraped_at": bson.M{"$lte": cutoff}},
		options.Find().SetProjection(bson.M{"name": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale products: %v", err)
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode stale product: %v", err)
		}
		names = append(names, doc.Name)
	}
	return names, cursor.Err()
}
