package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meridianbank/backend/internal/services"
)

type StatementHandler struct {
	service *services.StatementService
}

func NewStatementHandler(service *services.StatementService) *StatementHandler {
	return &StatementHandler{service: service}
}

// Get generates a monthly statement for an owned account
// @Summary Get monthly statement
// @Description Generate the statement for one calendar month with opening and closing balances
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} services.Statement
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/statements/{year}/{month} [get]
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid year", http.StatusBadRequest, nil)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid month", http.StatusBadRequest, nil)
		return
	}

	statement, err := h.service.Generate(r.Context(), chi.URLParam(r, "accountId"), holderID, year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statement)
}
