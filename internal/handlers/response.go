package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/meridianbank/backend/internal/services"
)

// writeDomainError maps service errors onto HTTP responses. Business
// declines and contract violations get typed payloads; anything
// unrecognized is a 500 with a generic message so internals never leak.
func writeDomainError(w http.ResponseWriter, err error) {
	var notFoundErr *services.AccountNotFoundError
	var unauthorizedErr *services.UnauthorizedAccessError
	var insufficientErr *services.InsufficientFundsError
	var cardErr *services.InvalidCardUseError
	var duplicateErr *services.DuplicateCardError
	var txnNotFoundErr *services.TransactionNotFoundError

	switch {
	case errors.As(err, &notFoundErr):
		services.SendErrorResponse(w, notFoundErr.Error(), http.StatusNotFound, nil)
	case errors.As(err, &unauthorizedErr):
		services.SendErrorResponse(w, unauthorizedErr.Error(), http.StatusForbidden, nil)
	case errors.As(err, &insufficientErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":           "Insufficient funds",
			"account_id":      insufficientErr.AccountID,
			"requested_cents": insufficientErr.RequestedCents,
			"available_cents": insufficientErr.AvailableCents,
		})
	case errors.As(err, &cardErr):
		status := http.StatusBadRequest
		if cardErr.NotFound() {
			status = http.StatusNotFound
		}
		services.SendErrorResponse(w, cardErr.Error(), status, nil)
	case errors.As(err, &duplicateErr):
		services.SendErrorResponse(w, duplicateErr.Error(), http.StatusConflict, nil)
	case errors.As(err, &txnNotFoundErr):
		services.SendErrorResponse(w, txnNotFoundErr.Error(), http.StatusNotFound, nil)
	case errors.Is(err, services.ErrNonPositiveAmount),
		errors.Is(err, services.ErrSameAccountTransfer),
		errors.Is(err, services.ErrInvalidTxnType),
		errors.Is(err, services.ErrInvalidStatementPeriod),
		errors.Is(err, services.ErrAccountNotEmpty):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		log.Printf("[HTTP] Internal error: %v", err)
		services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// decodeJSON enforces the shared request body rules: 1 MB cap, no unknown
// fields, exactly one JSON object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

// holderFromContext pulls the authenticated holder id placed by the auth
// middleware. A miss means the route is wired outside the middleware.
func holderFromContext(w http.ResponseWriter, r *http.Request) (string, bool) {
	holderID, ok := r.Context().Value("holderID").(string)
	if !ok || holderID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return "", false
	}
	return holderID, true
}
