package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
)

type FeaturedService struct {
	repo repository.FeaturedRepository
	now  func() time.Time
}

func NewFeaturedService(repo repository.FeaturedRepository) *FeaturedService {
	return &FeaturedService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// FeaturedInput is the admin payload. Active defaults to true and Order to 0.
type FeaturedInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Link        string `json:"link"`
	Active      *bool  `json:"active"`
	Order       *int   `json:"order"`
}

func (in FeaturedInput) apply(f *domain.FeaturedItem) {
	f.Title = in.Title
	f.Description = in.Description
	f.ImageURL = in.ImageURL
	f.Link = in.Link
	if in.Active != nil {
		f.Active = *in.Active
	}
	if in.Order != nil {
		f.Order = *in.Order
	}
}

func (s *FeaturedService) ListActive(ctx context.Context) ([]domain.FeaturedItem, error) {
	return s.repo.ListActive(ctx)
}

func (s *FeaturedService) ListAll(ctx context.Context, actor domain.Actor) ([]domain.FeaturedItem, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "manage featured items"}
	}
	return s.repo.List(ctx)
}

func (s *FeaturedService) Create(ctx context.Context, actor domain.Actor, in FeaturedInput) (*domain.FeaturedItem, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "manage featured items"}
	}
	now := s.now()
	f := &domain.FeaturedItem{ID: uuid.NewString(), Active: true, CreatedAt: now, UpdatedAt: now}
	in.apply(f)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeaturedService) Update(ctx context.Context, actor domain.Actor, id string, in FeaturedInput) (*domain.FeaturedItem, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "manage featured items"}
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(f)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeaturedService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.IsAdmin {
		return &domain.AuthorizationError{Action: "manage featured items"}
	}
	return s.repo.Delete(ctx, id)
}
