package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fracvault/internal/service"
)

// PayoutHandler serves the pull-payment ledger endpoints.
type PayoutHandler struct {
	pending *service.PendingPaymentLedger
	logger  *slog.Logger
}

// NewPayoutHandler creates a PayoutHandler.
func NewPayoutHandler(pending *service.PendingPaymentLedger, logger *slog.Logger) *PayoutHandler {
	return &PayoutHandler{
		pending: pending,
		logger:  logHandler(logger, "payout"),
	}
}

// Withdraw pays the caller their full owed balance.
// POST /api/payments/withdraw
func (h *PayoutHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := h.pending.Withdraw(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": caller.Hex(),
		"amount":  amount.String(),
	})
}

// GetOwed returns the owed balance for one address.
// GET /api/payments/{address}
func (h *PayoutHandler) GetOwed(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(pathParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"owed":    h.pending.Owed(addr).String(),
	})
}
