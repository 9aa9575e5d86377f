package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"loanbook/internal/api/handler/dto"
	"loanbook/internal/domain/customer"
	"loanbook/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const internalErrorMessage = "An unexpected error occurred."

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// respondError maps domain errors to HTTP. Store and internal failures are
// logged in full and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, message, field := http.StatusInternalServerError, internalErrorMessage, ""
	code := apperrors.Code(err)
	var validationError *apperrors.ValidationError

	switch {
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, customer.ErrNotFound):
		status, message, code = http.StatusNotFound, "Resource not found.", apperrors.CodeNotFound
	case errors.Is(err, apperrors.ErrAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized"
	default:
		code = apperrors.CodeInternal
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getLoanIDFromURL(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return uuid.Nil, apperrors.NewValidationError("loanID", "loan ID is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("loanID", "loan ID must be a valid UUID")
	}
	return id, nil
}
