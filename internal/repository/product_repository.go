package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection(productsCollection),
	}
}

func (m mongoProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if _, err := m.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (m mongoProductRepository) Update(ctx context.Context, p *domain.Product) error {
	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m mongoProductRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (m mongoProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m mongoProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return m.findOne(ctx, bson.M{"slug": slug})
}

func (m mongoProductRepository) findOne(ctx context.Context, filter bson.M) (*domain.Product, error) {
	var p domain.Product
	if err := m.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (m mongoProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.find(ctx, bson.M{}, opts)
}

func (m mongoProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	products := []domain.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (m mongoProductRepository) Search(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	filter := searchFilter(f)

	count, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 3
	}
	opts := options.Find().
		SetSort(searchSort(f.Order)).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))

	products, err := m.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	return &domain.ProductPage{
		Products:      products,
		CountProducts: count,
		Page:          page,
		Pages:         int(math.Ceil(float64(count) / float64(size))),
	}, nil
}

func searchFilter(f domain.ProductFilter) bson.M {
	filter := bson.M{}
	if f.Query != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.MinRating > 0 {
		filter["rating"] = bson.M{"$gte": f.MinRating}
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		price := bson.M{"$gte": f.MinPrice}
		if f.MaxPrice > 0 {
			price["$lte"] = f.MaxPrice
		}
		filter["price"] = price
	}
	return filter
}

func searchSort(order string) bson.D {
	switch order {
	case "lowest":
		return bson.D{{Key: "price", Value: 1}}
	case "highest":
		return bson.D{{Key: "price", Value: -1}}
	case "toprated":
		return bson.D{{Key: "rating", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}}
	}
}

func (m mongoProductRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := m.collection.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			categories = append(categories, s)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (m mongoProductRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	filter := bson.M{
		"_id":            productID,
		"count_in_stock": bson.M{"$gte": qty},
	}
	update := bson.M{"$inc": bson.M{"count_in_stock": -qty}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	p, err := m.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	return &domain.OutOfStockError{
		ProductID: productID,
		Name:      p.Name,
		Requested: qty,
		Available: p.CountInStock,
	}
}

func (m mongoProductRepository) IncrementStock(ctx context.Context, productID string, qty int) error {
	result, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$inc": bson.M{"count_in_stock": qty}})
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
