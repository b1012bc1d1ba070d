package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/nicoirigoyen/e-commerce/internal/service"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts a domain error to its HTTP status and code.
// Anything unrecognized is logged and reported as a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	var (
		validation *domain.ValidationError
		oos        *domain.OutOfStockError
		upstream   *domain.UpstreamPaymentError
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   validation.Error(),
			Code:    "validation_error",
			Details: validation.Field,
		})
	case errors.As(err, &oos):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   oos.Error(),
			Code:    "out_of_stock",
			Details: oos.ProductID,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.As(err, &upstream):
		logger.WithContext(r.Context()).WithError(err).Warn("payment provider call failed")
		respondError(w, http.StatusBadGateway, "upstream_payment_error", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "already_exists", err.Error())
	default:
		logger.WithContext(r.Context()).WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
