package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/sirupsen/logrus"
)

type CatalogService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, f domain.ProductFilter) (*domain.ProductPage, error)
	CreateSample(ctx context.Context, actor domain.Actor) (*domain.Product, error)
	Update(ctx context.Context, actor domain.Actor, id string, u service.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
	AddReview(ctx context.Context, user domain.Actor, name, productID string, rating float64, comment string) (*domain.Product, error)
}

type ProductHandler struct {
	catalog CatalogService
	logger  *logrus.Logger
}

func NewProductHandler(catalog CatalogService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

type ReviewRequestDTO struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

type ProductMessageResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product,omitempty"`
}

type ReviewResponse struct {
	Message    string        `json:"message"`
	Review     domain.Review `json:"review"`
	NumReviews int           `json:"numReviews"`
	Rating     float64       `json:"rating"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	f, err := parseProductFilter(r)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	page, err := h.catalog.Search(r.Context(), f)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// AdminList pages through every product, newest first.
func (h *ProductHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	result, err := h.catalog.Search(r.Context(), domain.ProductFilter{Page: page, Order: "newest"})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.CreateSample(r.Context(), actorFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, ProductMessageResponse{Message: "Product Created", Product: p})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.ProductUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.catalog.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductMessageResponse{Message: "Product Updated", Product: p})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductMessageResponse{Message: "Product Deleted"})
}

func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	claims := claimsFrom(r.Context())
	p, err := h.catalog.AddReview(r.Context(), claims.Actor(), claims.Name, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, ReviewResponse{
		Message:    "Review Created",
		Review:     p.Reviews[len(p.Reviews)-1],
		NumReviews: p.NumReviews,
		Rating:     p.Rating,
	})
}

// parseProductFilter reads the storefront search parameters. "all" or an
// empty value leaves a criterion unset; price is "min-max".
func parseProductFilter(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Query:    allOrValue(q.Get("query")),
		Category: allOrValue(q.Get("category")),
		Order:    q.Get("order"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	if rating := allOrValue(q.Get("rating")); rating != "" {
		v, err := strconv.ParseFloat(rating, 64)
		if err != nil {
			return f, &domain.ValidationError{Field: "rating", Message: "must be a number"}
		}
		f.MinRating = v
	}
	if price := allOrValue(q.Get("price")); price != "" {
		lo, hi, ok := strings.Cut(price, "-")
		minPrice, errMin := strconv.ParseFloat(lo, 64)
		maxPrice, errMax := strconv.ParseFloat(hi, 64)
		if !ok || errMin != nil || errMax != nil {
			return f, &domain.ValidationError{Field: "price", Message: "must be min-max"}
		}
		f.MinPrice, f.MaxPrice = minPrice, maxPrice
	}
	return f, nil
}

func allOrValue(v string) string {
	if v == "all" {
		return ""
	}
	return v
}
