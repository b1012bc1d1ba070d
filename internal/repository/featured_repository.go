package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoFeaturedRepository struct {
	collection *mongo.Collection
}

func NewFeaturedRepository(db *mongo.Database) FeaturedRepository {
	return &mongoFeaturedRepository{
		collection: db.Collection(featuredCollection),
	}
}

func (m mongoFeaturedRepository) Create(ctx context.Context, f *domain.FeaturedItem) error {
	if _, err := m.collection.InsertOne(ctx, f); err != nil {
		return fmt.Errorf("failed to create featured item: %w", err)
	}
	return nil
}

func (m mongoFeaturedRepository) Update(ctx context.Context, f *domain.FeaturedItem) error {
	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": f.ID}, f)
	if err != nil {
		return fmt.Errorf("failed to update featured item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrFeaturedNotFound
	}
	return nil
}

func (m mongoFeaturedRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete featured item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrFeaturedNotFound
	}
	return nil
}

func (m mongoFeaturedRepository) GetByID(ctx context.Context, id string) (*domain.FeaturedItem, error) {
	var f domain.FeaturedItem
	if err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFeaturedNotFound
		}
		return nil, fmt.Errorf("failed to get featured item: %w", err)
	}
	return &f, nil
}

// ListActive returns the items shown on the storefront, lowest order first.
func (m mongoFeaturedRepository) ListActive(ctx context.Context) ([]domain.FeaturedItem, error) {
	return m.find(ctx, bson.M{"active": true})
}

func (m mongoFeaturedRepository) List(ctx context.Context) ([]domain.FeaturedItem, error) {
	return m.find(ctx, bson.M{})
}

func (m mongoFeaturedRepository) find(ctx context.Context, filter bson.M) ([]domain.FeaturedItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured items: %w", err)
	}
	items := []domain.FeaturedItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode featured items: %w", err)
	}
	return items, nil
}
