package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
	}
}

func byUser(userID string) bson.M {
	return bson.M{"user_id": userID}
}

func (m mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := new(domain.Cart)
	err := m.collection.FindOne(ctx, byUser(userID)).Decode(cart)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrCartNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// AddItem stores the line for item.ProductID, replacing an existing line for
// the same product. The cart document is created on first use.
func (m mongoCartRepository) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	now := time.Now()
	item.AddedAt = now

	replaced, err := m.replaceItem(ctx, userID, item, now)
	if err != nil || replaced {
		return err
	}

	filter := bson.M{
		"user_id":          userID,
		"items.product_id": bson.M{"$ne": item.ProductID},
	}
	update := bson.M{
		"$push":        bson.M{"items": item},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err = m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent request pushed the same product first
		_, err = m.replaceItem(ctx, userID, item, now)
	}
	if err != nil {
		return fmt.Errorf("failed to add new item: %w", err)
	}
	return nil
}

func (m mongoCartRepository) replaceItem(ctx context.Context, userID string, item domain.CartItem, now time.Time) (bool, error) {
	filter := bson.M{
		"user_id":          userID,
		"items.product_id": item.ProductID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$":    item,
			"updated_at": now,
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update existing item: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (m mongoCartRepository) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	filter := bson.M{"user_id": userID, "items.product_id": productID}
	update := bson.M{"$set": bson.M{"items.$.quantity": quantity, "updated_at": time.Now()}}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RemoveItem pulls the product's line; removing a product that is not in
// the cart succeeds as long as the cart exists.
func (m mongoCartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := m.collection.UpdateOne(ctx, byUser(userID), update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m mongoCartRepository) SetShippingAddress(ctx context.Context, userID string, addr domain.ShippingAddress) error {
	return m.setField(ctx, userID, "shipping_address", addr)
}

func (m mongoCartRepository) SetPaymentMethod(ctx context.Context, userID string, method domain.PaymentMethod) error {
	return m.setField(ctx, userID, "payment_method", method)
}

func (m mongoCartRepository) setField(ctx context.Context, userID, field string, value interface{}) error {
	now := time.Now()
	update := bson.M{
		"$set":         bson.M{field: value, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now, "items": bson.A{}},
	}
	_, err := m.collection.UpdateOne(ctx, byUser(userID), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", field, err)
	}
	return nil
}

func (m mongoCartRepository) DeleteCart(ctx context.Context, userID string) error {
	res, err := m.collection.DeleteOne(ctx, byUser(userID))
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}
