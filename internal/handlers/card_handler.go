package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meridianbank/backend/internal/services"
)

type CardHandler struct {
	service *services.CardService
}

func NewCardHandler(service *services.CardService) *CardHandler {
	return &CardHandler{service: service}
}

// Issue issues the debit card for an owned account
// @Summary Issue card
// @Description Issue the single debit card for an account; the full number and CVV appear only in this response
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 201 {object} services.IssuedCard
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "Account already has a card"
// @Router /accounts/{accountId}/card [post]
func (h *CardHandler) Issue(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	issued, err := h.service.Issue(r.Context(), chi.URLParam(r, "accountId"), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, issued)
}

// Get returns the masked card for an owned account
// @Summary Get card
// @Description Get the account's card with only the last four digits in the clear
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.Card
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/card [get]
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	card, err := h.service.Get(r.Context(), chi.URLParam(r, "accountId"), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// Deactivate blocks the card on an owned account
// @Summary Deactivate card
// @Description Block the account's card; further debit attempts with it are declined
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/card [delete]
func (h *CardHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "accountId"), holderID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Card deactivated"})
}
