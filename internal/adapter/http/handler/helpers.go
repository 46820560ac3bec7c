package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/envelopeledger/internal/adapter/http/dto"
	"github.com/iho/envelopeledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it. Validation warnings
// carry their source so the client can acknowledge them and retry.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := dto.ErrorResponse{Error: message, Message: err.Error()}

	var warning *domain.ValidationWarning
	if errors.As(err, &warning) {
		resp.WarningSource = string(warning.Source)
	}

	writeJSON(w, mapDomainError(err), resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBookExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidBookName),
		errors.Is(err, domain.ErrInvalidStorageKey),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrAmountPrecision),
		errors.Is(err, domain.ErrSameBucket),
		errors.Is(err, domain.ErrMissingNarrative):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidationWarning):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidLedgerBook):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
