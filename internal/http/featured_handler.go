package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/sirupsen/logrus"
)

type FeaturedService interface {
	ListActive(ctx context.Context) ([]domain.FeaturedItem, error)
	ListAll(ctx context.Context, actor domain.Actor) ([]domain.FeaturedItem, error)
	Create(ctx context.Context, actor domain.Actor, in service.FeaturedInput) (*domain.FeaturedItem, error)
	Update(ctx context.Context, actor domain.Actor, id string, in service.FeaturedInput) (*domain.FeaturedItem, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
}

type FeaturedHandler struct {
	featured FeaturedService
	logger   *logrus.Logger
}

func NewFeaturedHandler(featured FeaturedService, logger *logrus.Logger) *FeaturedHandler {
	return &FeaturedHandler{featured: featured, logger: logger}
}

func (h *FeaturedHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	items, err := h.featured.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *FeaturedHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.featured.ListAll(r.Context(), actorFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *FeaturedHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.FeaturedInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.featured.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *FeaturedHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.FeaturedInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.featured.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *FeaturedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.featured.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
