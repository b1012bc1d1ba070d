package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nicoirigoyen/e-commerce/internal/auth"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

var validate = validator.New()

type UserService struct {
	users  repository.UserRepository
	tokens *auth.TokenIssuer
	logger *logrus.Logger
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenIssuer, logger *logrus.Logger) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Session is what signin and signup hand back to the client.
type Session struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

func (s *UserService) session(u *domain.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin, Token: token}, nil
}

func (s *UserService) Signin(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *UserService) Signup(ctx context.Context, name, email, password string) (*Session, error) {
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	if len(password) < 6 {
		return nil, &domain.ValidationError{Field: "password", Message: "must have at least 6 characters"}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email %s is already registered: %w", u.Email, domain.ErrConflict)
		}
		return nil, err
	}
	s.logger.WithContext(ctx).WithField("user_id", u.ID).Info("user signed up")
	return s.session(u)
}

// UpdateProfile changes the caller's own name, email and, when given,
// password. A fresh token is returned since the claims changed.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, email, password string) (*Session, error) {
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(name)
	u.Email = strings.TrimSpace(email)
	if password != "" {
		if len(password) < 6 {
			return nil, &domain.ValidationError{Field: "password", Message: "must have at least 6 characters"}
		}
		if u.PasswordHash, err = auth.HashPassword(password); err != nil {
			return nil, err
		}
	}
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *UserService) List(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "list users"}
	}
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	if !actor.IsAdmin && actor.UserID != id {
		return nil, &domain.AuthorizationError{Action: "view this user"}
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserService) AdminUpdate(ctx context.Context, actor domain.Actor, id, name, email string, isAdmin bool) (*domain.User, error) {
	if !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Action: "update users"}
	}
	if err := validateProfile(name, email); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(name)
	u.Email = strings.TrimSpace(email)
	u.IsAdmin = isAdmin
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.IsAdmin {
		return &domain.AuthorizationError{Action: "delete users"}
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return &domain.ValidationError{Field: "isAdmin", Message: "admin users cannot be deleted"}
	}
	return s.users.Delete(ctx, id)
}

func validateProfile(name, email string) error {
	if strings.TrimSpace(name) == "" {
		return &domain.ValidationError{Field: "name", Message: "is required"}
	}
	if err := validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return &domain.ValidationError{Field: "email", Message: "must be a valid address"}
	}
	return nil
}
