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

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection(ordersCollection),
	}
}

func (m mongoOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if _, err := m.collection.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (m mongoOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (m mongoOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return m.find(ctx, bson.M{"user_id": userID})
}

func (m mongoOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return m.find(ctx, bson.M{})
}

func (m mongoOrderRepository) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := []domain.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m mongoOrderRepository) SaveTransition(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	filter := bson.M{"_id": o.ID}
	switch from {
	case domain.OrderStatusCreated:
		filter["is_paid"] = false
	case domain.OrderStatusPaid:
		filter["is_paid"] = true
		filter["is_delivered"] = false
	default:
		return fmt.Errorf("no transition out of %s", from)
	}

	update := bson.M{"$set": bson.M{
		"is_paid":        o.IsPaid,
		"paid_at":        o.PaidAt,
		"payment_result": o.PaymentResult,
		"is_delivered":   o.IsDelivered,
		"delivered_at":   o.DeliveredAt,
		"updated_at":     o.UpdatedAt,
	}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to save order transition: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := m.GetByID(ctx, o.ID); err != nil {
			return err
		}
		return ErrStaleOrder
	}
	return nil
}

func (m mongoOrderRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}
