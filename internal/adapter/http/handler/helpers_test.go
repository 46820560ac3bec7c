package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/envelopeledger/internal/adapter/http/dto"
	"github.com/iho/envelopeledger/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"book not found", domain.ErrBookNotFound, http.StatusNotFound},
		{"entry not found", fmt.Errorf("%w: bucket X/Y", domain.ErrEntryNotFound), http.StatusNotFound},
		{"book exists", domain.ErrBookExists, http.StatusConflict},
		{"invalid storage key", domain.ErrInvalidStorageKey, http.StatusBadRequest},
		{"amount too small wrapped in state error", fmt.Errorf("%w: %w", domain.ErrInvalidState, domain.ErrAmountTooSmall), http.StatusBadRequest},
		{"missing argument", domain.ErrMissingArgument, http.StatusBadRequest},
		{"unsupported bucket kind", domain.ErrNotSupported, http.StatusBadRequest},
		{"validation warning", &domain.ValidationWarning{Source: domain.WarningUncategorised}, http.StatusUnprocessableEntity},
		{"invalid ledger book", domain.ErrInvalidLedgerBook, http.StatusUnprocessableEntity},
		{"locked", domain.ErrLocked, http.StatusConflict},
		{"invalid state", domain.ErrInvalidState, http.StatusConflict},
		{"corrupted", &domain.CorruptedLedgerBookError{Before: "1", After: "2"}, http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeError(rr, http.StatusBadRequest, "bad request", "detail")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error != "bad request" || resp.Message != "detail" {
		t.Fatalf("expected error message to propagate, got %+v", resp)
	}
}

func TestWriteDomainError_CarriesWarningSource(t *testing.T) {
	rr := httptest.NewRecorder()

	writeDomainError(rr, "reconciliation failed", fmt.Errorf("validate: %w",
		&domain.ValidationWarning{Source: domain.WarningDateSpacing, Message: "day of month differs"}))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.WarningSource != string(domain.WarningDateSpacing) {
		t.Fatalf("expected warning source, got %+v", resp)
	}
}
