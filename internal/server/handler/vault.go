package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fracvault/internal/domain"
	"github.com/alanyoungcy/fracvault/internal/service"
)

// VaultHandler serves the custody vault endpoints: deposit, withdraw, redeem,
// authority designation, and asset lookup.
type VaultHandler struct {
	vault  *service.CustodyVault
	logger *slog.Logger
}

// NewVaultHandler creates a VaultHandler.
func NewVaultHandler(vault *service.CustodyVault, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vault:  vault,
		logger: logHandler(logger, "vault"),
	}
}

type depositRequest struct {
	Caller   string   `json:"caller"`
	AssetIDs []uint64 `json:"asset_ids"`
}

// Deposit locks a batch of assets and mints claim units to the caller.
// POST /api/vault/deposit
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids := make([]domain.AssetID, len(req.AssetIDs))
	for i, raw := range req.AssetIDs {
		ids[i] = domain.AssetID(raw)
	}

	if err := h.vault.Deposit(r.Context(), caller, ids); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deposited": req.AssetIDs,
		"minted":    h.vault.FractionsPerAsset().String(),
	})
}

type withdrawAssetRequest struct {
	Caller  string `json:"caller"`
	AssetID uint64 `json:"asset_id"`
}

// Withdraw releases an asset back to the caller against burned claims.
// POST /api/vault/withdraw
func (h *VaultHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawAssetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.vault.Withdraw(r.Context(), caller, domain.AssetID(req.AssetID)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": req.AssetID,
		"burned":   h.vault.FractionsPerAsset().String(),
	})
}

type redeemRequest struct {
	Caller  string `json:"caller"`
	AssetID uint64 `json:"asset_id"`
	Amount  string `json:"amount"`
}

// Redeem burns claims against an asset's sale proceeds and pays out the
// pro-rata share.
// POST /api/vault/redeem
func (h *VaultHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payout, err := h.vault.Redeem(r.Context(), caller, domain.AssetID(req.AssetID), amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id": req.AssetID,
		"burned":   req.Amount,
		"payout":   payout.String(),
	})
}

type authorityRequest struct {
	Caller    string `json:"caller"`
	Authority string `json:"authority"`
}

// SetAuthority designates the governance address on the vault. One-time.
// POST /api/vault/authority
func (h *VaultHandler) SetAuthority(w http.ResponseWriter, r *http.Request) {
	var req authorityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	authority, err := parseAddress(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.vault.SetAuthority(r.Context(), caller, authority); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authority": authority.Hex(),
	})
}

// GetAsset returns the custody record for one asset.
// GET /api/vault/assets/{id}
func (h *VaultHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseAssetID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.vault.Asset(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id":       uint64(rec.ID),
		"in_custody":     rec.InCustody,
		"original_owner": rec.OriginalOwner.Hex(),
		"sale_proceeds":  rec.SaleProceeds.String(),
	})
}
