package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/sirupsen/logrus"
)

type UserService interface {
	Signin(ctx context.Context, email, password string) (*service.Session, error)
	Signup(ctx context.Context, name, email, password string) (*service.Session, error)
	UpdateProfile(ctx context.Context, userID, name, email, password string) (*service.Session, error)
	List(ctx context.Context, actor domain.Actor) ([]domain.User, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.User, error)
	AdminUpdate(ctx context.Context, actor domain.Actor, id, name, email string, isAdmin bool) (*domain.User, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
}

type UserHandler struct {
	users  UserService
	logger *logrus.Logger
}

func NewUserHandler(users UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type CredentialsDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminUserUpdateDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type UserMessageResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user,omitempty"`
}

func (h *UserHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.users.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.users.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.users.UpdateProfile(r.Context(), actorFrom(r.Context()).UserID, req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req AdminUserUpdateDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.users.AdminUpdate(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Name, req.Email, req.IsAdmin)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, UserMessageResponse{Message: "User Updated", User: u})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, UserMessageResponse{Message: "User Deleted"})
}
