package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoUserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(usersCollection),
	}
}

func (m mongoUserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(u.Email)
	if _, err := m.collection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (m mongoUserRepository) Update(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(u.Email)
	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m mongoUserRepository) Delete(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m mongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (m mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	if err := m.collection.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (m mongoUserRepository) List(ctx context.Context) ([]domain.User, error) {
	cur, err := m.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := []domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}
