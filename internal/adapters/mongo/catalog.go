package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogRepository holds the presentation copy of a listing. The ledger's
// products row stays authoritative for availability; documents here are a
// projection updated after the fact.
type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("listings"),
		logger: logger,
	}
}

type ListingDoc struct {
	ID           uuid.UUID `bson:"_id"`
	SellerID     uuid.UUID `bson:"seller_id"`
	Title        string    `bson:"title"`
	Description  string    `bson:"description"`
	Price        float64   `bson:"price"`
	Availability string    `bson:"availability"`
	Images       []string  `bson:"images"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (c *CatalogRepository) GetListing(ctx context.Context, id uuid.UUID) (*ListingDoc, error) {
	var listing ListingDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		c.logger.Error("failed to get listing", err)
		return nil, err
	}
	return &listing, nil
}

func (c *CatalogRepository) CreateListing(ctx context.Context, listing ListingDoc) error {
	listing.CreatedAt = time.Now()
	listing.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, listing)
	if err != nil {
		c.logger.Error("failed to create listing", err)
		return err
	}
	return nil
}

func (c *CatalogRepository) UpdateListingAvailability(ctx context.Context, id uuid.UUID, availability string) error {
	_, err := c.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"availability": availability, "updated_at": time.Now()}},
	)
	if err != nil {
		c.logger.Error("failed to update listing availability", err)
		return err
	}
	return nil
}
