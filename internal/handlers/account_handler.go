package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meridianbank/backend/internal/services"
)

type AccountHandler struct {
	service   *services.AccountService
	validator *services.ValidationHelper
}

func NewAccountHandler(service *services.AccountService) *AccountHandler {
	return &AccountHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateAccountRequest represents the account opening payload
// @Description Account opening request structure
type CreateAccountRequest struct {
	AccountType string `json:"account_type" validate:"required,oneof=checking savings" example:"checking"` // Account type
	Currency    string `json:"currency" validate:"omitempty,len=3" example:"USD"`                          // ISO 4217 currency code
}

// Create opens an additional account for the authenticated holder
// @Summary Open account
// @Description Open a new checking or savings account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "Account opening request"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.service.Create(r.Context(), holderID, req.AccountType, req.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// List returns the authenticated holder's accounts
// @Summary List accounts
// @Description List all accounts belonging to the authenticated holder
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.List(r.Context(), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

// Get returns one owned account
// @Summary Get account
// @Description Get a single account by id
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	account, err := h.service.Get(r.Context(), chi.URLParam(r, "accountId"), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// GetBalance runs the balance integrity check on an owned account
// @Summary Get balance
// @Description Get the cached balance alongside the balance recomputed from history
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.BalanceCheck
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/balance [get]
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	check, err := h.service.GetBalance(r.Context(), chi.URLParam(r, "accountId"), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, check)
}

// Deactivate closes an owned zero-balance account
// @Summary Close account
// @Description Close an account; the balance must be zero
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts/{accountId} [delete]
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "accountId"), holderID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account closed"})
}

// AdminList returns all accounts
// @Summary List all accounts (admin)
// @Description List every account, paginated
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Account
// @Router /admin/accounts [get]
func (h *AccountHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	accounts, err := h.service.AdminList(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

// AdminGet returns any account
// @Summary Get any account (admin)
// @Description Get an account by id without ownership scoping
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{accountId} [get]
func (h *AccountHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.AdminGet(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// AdminGetBalance runs the integrity check on any account
// @Summary Get any account's balance (admin)
// @Description Run the balance integrity check on any account
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.BalanceCheck
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{accountId}/balance [get]
func (h *AccountHandler) AdminGetBalance(w http.ResponseWriter, r *http.Request) {
	check, err := h.service.AdminGetBalance(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, check)
}
