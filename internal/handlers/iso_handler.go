package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meridianbank/backend/internal/services"
)

type ISOHandler struct {
	iso      *services.ISO20022Service
	txns     *services.TransactionService
	accounts *services.AccountService
}

func NewISOHandler(iso *services.ISO20022Service, txns *services.TransactionService, accounts *services.AccountService) *ISOHandler {
	return &ISOHandler{iso: iso, txns: txns, accounts: accounts}
}

// ExportTransfer renders a completed transfer as a pacs.008 message
// @Summary Export transfer as ISO 20022
// @Description Render an approved transfer pair as a pacs.008 credit transfer message for reconciliation
// @Tags iso20022
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID on one leg of the transfer"
// @Param transferPairId path string true "Transfer pair ID"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transfers/{transferPairId}/iso20022 [get]
func (h *ISOHandler) ExportTransfer(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	accountID := chi.URLParam(r, "accountId")
	account, err := h.accounts.Get(r.Context(), accountID, holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	debit, credit, err := h.txns.GetTransferPair(r.Context(), accountID,
		holderID, chi.URLParam(r, "transferPairId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	doc, err := h.iso.BuildPacs008(debit, credit, account.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	xmlData, err := h.iso.ConvertToXML(doc)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "converted",
		"messageType": "pacs.008.001.08",
		"xml":         xmlData,
	})
}

// ExportStatus renders a transaction's status as a pacs.002 message
// @Summary Export transaction status as ISO 20022
// @Description Render a transaction's approved/declined status as a pacs.002 status report
// @Tags iso20022
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} object{status=string,messageType=string,xml=string}
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions/{transactionId}/iso20022 [get]
func (h *ISOHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	holderID, ok := holderFromContext(w, r)
	if !ok {
		return
	}

	txn, err := h.txns.Get(r.Context(), chi.URLParam(r, "accountId"),
		chi.URLParam(r, "transactionId"), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	doc, err := h.iso.BuildPacs002(txn)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	xmlData, err := h.iso.ConvertToXML(doc)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "converted",
		"messageType": "pacs.002.001.08",
		"xml":         xmlData,
	})
}
