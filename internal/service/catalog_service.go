package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/sirupsen/logrus"
)

const DefaultPageSize = 3

type CatalogService struct {
	products repository.ProductRepository
	logger   *logrus.Logger
	now      func() time.Time
}

func NewCatalogService(products repository.ProductRepository, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.products.GetBySlug(ctx, slug)
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.products.Categories(ctx)
}

func (s *CatalogService) Search(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	switch f.Order {
	case "", "newest", "lowest", "highest", "toprated", "featured":
	default:
		return nil, &domain.ValidationError{Field: "order", Message: "must be one of newest, lowest, highest, toprated"}
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return nil, &domain.ValidationError{Field: "price", Message: "min must not exceed max"}
	}
	return s.products.Search(ctx, f)
}

// CreateSample inserts a placeholder product that the admin edits next.
func (s *CatalogService) CreateSample(ctx context.Context, actor domain.Actor) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "create products"}
	}
	now := s.now()
	stamp := now.UnixMilli()
	p := &domain.Product{
		ID:          uuid.NewString(),
		Name:        fmt.Sprintf("sample name %d", stamp),
		Slug:        fmt.Sprintf("sample-name-%d", stamp),
		Image:       "/images/p1.jpg",
		Images:      []string{},
		Brand:       "sample brand",
		Category:    "sample category",
		Description: "sample description",
		Reviews:     []domain.Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

type ProductUpdate struct {
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Price        float64  `json:"price"`
	Image        string   `json:"image"`
	Images       []string `json:"images"`
	Category     string   `json:"category"`
	Brand        string   `json:"brand"`
	CountInStock int      `json:"countInStock"`
	Description  string   `json:"description"`
}

func (u ProductUpdate) validate() error {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return &domain.ValidationError{Field: "name", Message: "is required"}
	case strings.TrimSpace(u.Slug) == "":
		return &domain.ValidationError{Field: "slug", Message: "is required"}
	case u.Price < 0:
		return &domain.ValidationError{Field: "price", Message: "must not be negative"}
	case u.CountInStock < 0:
		return &domain.ValidationError{Field: "countInStock", Message: "must not be negative"}
	}
	return nil
}

func (s *CatalogService) Update(ctx context.Context, actor domain.Actor, id string, u ProductUpdate) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "update products"}
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = u.Name
	p.Slug = u.Slug
	p.Price = u.Price
	p.Image = u.Image
	if u.Images != nil {
		p.Images = u.Images
	}
	p.Category = u.Category
	p.Brand = u.Brand
	p.CountInStock = u.CountInStock
	p.Description = u.Description
	p.UpdatedAt = s.now()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.IsAdmin {
		return &domain.AuthorizationError{Action: "delete products"}
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"product_id": id,
		"admin_id":   actor.UserID,
	}).Info("product deleted")
	return nil
}

// AddReview stores one review per user and refreshes the rating.
func (s *CatalogService) AddReview(ctx context.Context, user domain.Actor, name, productID string, rating float64, comment string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	err = p.AddReview(domain.Review{
		UserID:    user.UserID,
		Name:      name,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("you already submitted a review: %w", err)
	}
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
