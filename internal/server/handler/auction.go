package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fracvault/internal/domain"
	"github.com/alanyoungcy/fracvault/internal/service"
)

// AuctionHandler serves the auction engine endpoints. Mutating operations on a
// single auction take a distributed lock first so concurrent replicas cannot
// interleave bids and settlement on the same asset.
type AuctionHandler struct {
	engine  *service.AuctionEngine
	locks   domain.LockManager
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(engine *service.AuctionEngine, locks domain.LockManager, lockTTL time.Duration, logger *slog.Logger) *AuctionHandler {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &AuctionHandler{
		engine:  engine,
		locks:   locks,
		lockTTL: lockTTL,
		logger:  logHandler(logger, "auction"),
	}
}

// withAuctionLock acquires the per-auction distributed lock and runs fn while
// holding it.
func (h *AuctionHandler) withAuctionLock(w http.ResponseWriter, r *http.Request, id domain.AssetID, fn func() error) {
	unlock, err := h.locks.Acquire(r.Context(), fmt.Sprintf("auction:%d", id), h.lockTTL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer unlock()

	if err := fn(); err != nil {
		writeServiceError(w, err)
	}
}

type startAuctionRequest struct {
	Caller        string `json:"caller"`
	StartingPrice string `json:"starting_price"`
	Duration      string `json:"duration"`
}

// Start opens an auction for an in-custody asset.
// POST /api/auctions/{id}/start
func (h *AuctionHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := parseAssetID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req startAuctionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, err := parseAmount(req.StartingPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid duration %q", req.Duration))
		return
	}

	h.withAuctionLock(w, r, id, func() error {
		if err := h.engine.Start(r.Context(), caller, id, price, duration); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.auctionResponse(id))
		return nil
	})
}

type bidRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// Bid places a bid on an active auction.
// POST /api/auctions/{id}/bid
func (h *AuctionHandler) Bid(w http.ResponseWriter, r *http.Request) {
	id, err := parseAssetID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req bidRequest
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

	h.withAuctionLock(w, r, id, func() error {
		if err := h.engine.Bid(r.Context(), caller, id, amount); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.auctionResponse(id))
		return nil
	})
}

type callerRequest struct {
	Caller string `json:"caller"`
}

// End settles an auction past its deadline.
// POST /api/auctions/{id}/end
func (h *AuctionHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := parseAssetID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
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

	h.withAuctionLock(w, r, id, func() error {
		if err := h.engine.End(r.Context(), caller, id); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.auctionResponse(id))
		return nil
	})
}

// Cancel aborts an active auction. Governance-gated in the engine.
// POST /api/auctions/{id}/cancel
func (h *AuctionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseAssetID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
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

	h.withAuctionLock(w, r, id, func() error {
		if err := h.engine.Cancel(r.Context(), caller, id); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, h.auctionResponse(id))
		return nil
	})
}

// SetAuthority designates the governance address on the engine. One-time.
// POST /api/auctions/authority
func (h *AuctionHandler) SetAuthority(w http.ResponseWriter, r *http.Request) {
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

	if err := h.engine.SetAuthority(r.Context(), caller, authority); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authority": authority.Hex(),
	})
}

// GetAuction returns the auction record for one asset.
// GET /api/auctions/{id}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := parseAssetID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.engine.Auction(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.auctionResponse(id))
}

// auctionResponse builds the JSON view of an auction record. Returns a bare
// map with the asset ID when the record has since disappeared.
func (h *AuctionHandler) auctionResponse(id domain.AssetID) map[string]any {
	a, err := h.engine.Auction(id)
	if err != nil {
		return map[string]any{"asset_id": uint64(id)}
	}

	resp := map[string]any{
		"asset_id":    uint64(a.AssetID),
		"active":      a.Active,
		"started_at":  a.StartedAt.UTC().Format(time.RFC3339),
		"end_time":    a.EndTime.UTC().Format(time.RFC3339),
		"highest_bid": a.HighestBid.String(),
		"total_bids":  a.TotalBids,
	}
	if a.HighestBidder != nil {
		resp["highest_bidder"] = a.HighestBidder.Hex()
	}
	return resp
}
