package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/meridianbank/backend/internal/services"
)

type TransactionHandler struct {
	service   *services.TransactionService
	validator *services.ValidationHelper
}

func NewTransactionHandler(service *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateTransactionRequest represents the credit/debit payload
// @Description Transaction creation request structure
type CreateTransactionRequest struct {
	Type        string  `json:"type" validate:"required,oneof=credit debit" example:"debit"` // Transaction type
	AmountCents int64   `json:"amount_cents" validate:"required,gt=0" example:"2500"`        // Amount in integer cents
	Description *string `json:"description" validate:"omitempty,max=255"`                    // Optional description
	CardID      *string `json:"card_id" validate:"omitempty,uuid4"`                          // Optional card reference, debits only
}

// TransferRequest represents the transfer payload
// @Description Transfer request structure
type TransferRequest struct {
	ToAccountID string  `json:"to_account_id" validate:"required,uuid4"`              // Destination account
	AmountCents int64   `json:"amount_cents" validate:"required,gt=0" example:"2500"` // Amount in integer cents
	Description *string `json:"description" validate:"omitempty,max=255"`             // Optional description
}

// Create records a credit or debit on an owned account
// @Summary Create transaction
// @Description Record a credit or debit; uncovered debits are persisted as declined and answered with 422
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param request body CreateTransactionRequest true "Transaction request"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} map[string]interface{} "Insufficient funds"
// @Router /accounts/{accountId}/transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	txn, err := h.service.Create(r.Context(), chi.URLParam(r, "accountId"), holderID,
		req.Type, req.AmountCents, req.Description, req.CardID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// Transfer moves funds from an owned account to another account
// @Summary Transfer funds
// @Description Atomically transfer funds between two accounts as paired debit and credit legs
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Source account ID"
// @Param request body TransferRequest true "Transfer request"
// @Success 201 {object} models.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} map[string]interface{} "Insufficient funds"
// @Router /accounts/{accountId}/transfers [post]
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.Transfer(r.Context(), chi.URLParam(r, "accountId"),
		req.ToAccountID, holderID, req.AmountCents, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns an owned account's transactions
// @Summary List transactions
// @Description List transactions on an account, newest first, with optional status and type filters
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Transaction
// @Router /accounts/{accountId}/transactions [get]
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.service.List(r.Context(), chi.URLParam(r, "accountId"), holderID,
		r.URL.Query().Get("status"), r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, txns)
}

// Get returns one transaction on an owned account
// @Summary Get transaction
// @Description Get a single transaction scoped to an owned account
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions/{transactionId} [get]
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	txn, err := h.service.Get(r.Context(), chi.URLParam(r, "accountId"),
		chi.URLParam(r, "transactionId"), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// AdminList returns transactions across all accounts
// @Summary List all transactions (admin)
// @Description List transactions across every account with optional filters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Transaction
// @Router /admin/transactions [get]
func (h *TransactionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.service.AdminList(r.Context(),
		r.URL.Query().Get("status"), r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, txns)
}

// AdminGet returns any transaction by id
// @Summary Get any transaction (admin)
// @Description Get a transaction by id without ownership scoping
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/transactions/{transactionId} [get]
func (h *TransactionHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.AdminGet(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, txn)
}
