package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nicoirigoyen/e-commerce/internal/auth"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/logging"
	"github.com/nicoirigoyen/e-commerce/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserRepository struct {
	m     sync.RWMutex
	users map[string]domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[string]domain.User{}}
}

func (m *mockUserRepository) Create(_ context.Context, u *domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *mockUserRepository) Update(_ context.Context, u *domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *mockUserRepository) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(context.Context) ([]domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := []domain.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func newUserFixture() (*UserService, *mockUserRepository, *auth.TokenIssuer) {
	repo := newMockUserRepository()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewUserService(repo, tokens, logging.Discard()), repo, tokens
}

func TestUserService_SignupSignin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newUserFixture()

	session, err := svc.Signup(ctx, "Ana", "Ana@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", session.Email)
	assert.False(t, session.IsAdmin)

	claims, err := tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, claims.Subject)

	_, err = svc.Signup(ctx, "Ana", "ana@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrConflict)

	again, err := svc.Signin(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)

	_, err = svc.Signin(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Signin(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_SignupValidation(t *testing.T) {
	svc, _, _ := newUserFixture()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		field    string
	}{
		{"missing name", " ", "a@example.com", "secret1", "name"},
		{"bad email", "Ana", "not-an-email", "secret1", "email"},
		{"short password", "Ana", "a@example.com", "123", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.username, tt.email, tt.password)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestUserService_Profile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newUserFixture()
	session, err := svc.Signup(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, session.ID, "Ana Maria", "ana@example.com", "newsecret")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.NotEmpty(t, updated.Token)

	_, err = svc.Signin(ctx, "ana@example.com", "newsecret")
	require.NoError(t, err)
}

func TestUserService_Admin(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newUserFixture()
	ana, err := svc.Signup(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	repo.users["root"] = domain.User{ID: "root", Name: "Root", Email: "root@example.com", IsAdmin: true}
	self := domain.Actor{UserID: ana.ID}

	_, err = svc.List(ctx, self)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	users, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.Get(ctx, self, ana.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, self, "root")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	u, err := svc.AdminUpdate(ctx, admin, ana.ID, "Ana", "ana@example.com", true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	var verr *domain.ValidationError
	require.ErrorAs(t, svc.Delete(ctx, admin, "root"), &verr)
	require.ErrorIs(t, svc.Delete(ctx, self, "root"), domain.ErrUnauthorized)

	_, err = svc.AdminUpdate(ctx, admin, ana.ID, "Ana", "ana@example.com", false)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, ana.ID))
	_, err = svc.Get(ctx, admin, ana.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
