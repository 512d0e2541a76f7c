package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// VaultHooks is the capability surface the auction engine needs from the
// custody vault. The dependency points one way only: the vault never
// references the engine.
type VaultHooks interface {
	Address() common.Address
	AssetInCustody(id domain.AssetID) bool
	AssetDepositor(id domain.AssetID) (common.Address, error)
	RecordSaleProceeds(ctx context.Context, id domain.AssetID, amount *big.Int) error
}

// AuctionParams are the tunable auction engine parameters. Duration and
// royalty are governance-mutable at runtime.
type AuctionParams struct {
	Duration        time.Duration
	AntiSnipeWindow time.Duration
	Extension       time.Duration
	RoyaltyPct      uint64
}

// AuctionEngine runs the per-asset auction state machine: start, bid, end,
// cancel. Bidder funds move into the treasury on bid; outbid amounts and the
// depositor royalty are credited to the pending-payment ledger, never pushed.
type AuctionEngine struct {
	mu sync.Mutex

	owner  common.Address
	params AuctionParams

	// authority is the governance address, nil until SetAuthority. Same
	// one-time Unset -> Set policy as the vault's.
	authority *common.Address

	auctions map[domain.AssetID]*domain.Auction

	vault    VaultHooks
	registry domain.AssetRegistry
	bank     domain.PaymentBackend
	treasury common.Address
	pending  *PendingPaymentLedger
	events   domain.EventRecorder
	logger   *slog.Logger

	now func() time.Time
}

// NewAuctionEngine creates an AuctionEngine with all required dependencies.
func NewAuctionEngine(
	owner common.Address,
	treasury common.Address,
	params AuctionParams,
	vault VaultHooks,
	registry domain.AssetRegistry,
	bank domain.PaymentBackend,
	pending *PendingPaymentLedger,
	events domain.EventRecorder,
	logger *slog.Logger,
) *AuctionEngine {
	return &AuctionEngine{
		owner:    owner,
		params:   params,
		auctions: make(map[domain.AssetID]*domain.Auction),
		vault:    vault,
		registry: registry,
		bank:     bank,
		treasury: treasury,
		pending:  pending,
		events:   events,
		logger:   logger.With(slog.String("component", "auction")),
		now:      time.Now,
	}
}

// WithClock overrides the engine's time source. Test hook.
func (e *AuctionEngine) WithClock(now func() time.Time) *AuctionEngine {
	e.now = now
	return e
}

// Params returns the current engine parameters.
func (e *AuctionEngine) Params() AuctionParams {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Start opens an auction for an in-custody asset. Owner-gated. The requested
// duration must equal the configured duration exactly; governance exists to
// change the configured value, not to bend it per call.
func (e *AuctionEngine) Start(ctx context.Context, caller common.Address, id domain.AssetID, startingPrice *big.Int, duration time.Duration) error {
	if startingPrice == nil || startingPrice.Sign() < 0 {
		return fmt.Errorf("auction: start asset %d: %w: invalid starting price", id, domain.ErrPreconditionFailed)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return fmt.Errorf("auction: start asset %d: %w", id, domain.ErrUnauthorized)
	}
	if duration != e.params.Duration {
		return fmt.Errorf("auction: start asset %d: %w: duration must be exactly %s", id, domain.ErrPreconditionFailed, e.params.Duration)
	}
	if !e.vault.AssetInCustody(id) {
		return fmt.Errorf("auction: start asset %d: %w", id, domain.ErrNotInCustody)
	}
	if a, ok := e.auctions[id]; ok && a.Active {
		return fmt.Errorf("auction: start asset %d: %w", id, domain.ErrAuctionActive)
	}

	start := e.now()
	e.auctions[id] = &domain.Auction{
		AssetID:    id,
		Active:     true,
		StartedAt:  start,
		EndTime:    start.Add(duration),
		HighestBid: new(big.Int).Set(startingPrice),
	}

	e.events.Record(ctx, domain.EventAuctionStarted, map[string]any{
		"asset_id":       uint64(id),
		"starting_price": startingPrice.String(),
		"end_time":       start.Add(duration),
	})
	return nil
}

// Bid places a strictly higher bid on an active auction. The payment moves
// into the treasury before any record changes; the previous highest bidder's
// stake is credited to the pending-payment ledger. A bid landing inside the
// anti-snipe window pushes the end time out by the configured extension --
// repeatable on every qualifying late bid, with no cap on total extensions.
func (e *AuctionEngine) Bid(ctx context.Context, caller common.Address, id domain.AssetID, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("auction: bid asset %d: %w: amount must be positive", id, domain.ErrPreconditionFailed)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[id]
	if !ok || !a.Active {
		return fmt.Errorf("auction: bid asset %d: %w", id, domain.ErrAuctionNotActive)
	}

	nowT := e.now()
	if !nowT.Before(a.EndTime) {
		return fmt.Errorf("auction: bid asset %d: %w: bidding closed", id, domain.ErrPreconditionFailed)
	}
	if amount.Cmp(a.HighestBid) <= 0 {
		return fmt.Errorf("auction: bid asset %d: %w", id, domain.ErrBidTooLow)
	}

	if err := e.bank.Transfer(ctx, caller, e.treasury, amount); err != nil {
		return fmt.Errorf("auction: bid asset %d: %w", id, err)
	}

	// Refund the outbid party through the pull-payment ledger before the
	// record is overwritten.
	if a.HighestBidder != nil {
		e.pending.Credit(ctx, *a.HighestBidder, a.HighestBid)
	}

	bidder := caller
	a.HighestBid = new(big.Int).Set(amount)
	a.HighestBidder = &bidder
	a.TotalBids++

	extended := false
	if a.EndTime.Sub(nowT) <= e.params.AntiSnipeWindow {
		a.EndTime = a.EndTime.Add(e.params.Extension)
		extended = true
	}

	e.events.Record(ctx, domain.EventBidPlaced, map[string]any{
		"asset_id": uint64(id),
		"bidder":   caller.Hex(),
		"amount":   amount.String(),
		"extended": extended,
		"end_time": a.EndTime,
	})
	return nil
}

// End settles an auction past its deadline. The asset moves to the highest
// bidder, the depositor's royalty is credited to the pending ledger, and the
// full highest bid is recorded as sale proceeds in the vault. The royalty is
// paid on top of the full-bid proceeds pool, not subtracted from it -- the
// depositor gets both, a deliberate carry-over from the source system.
func (e *AuctionEngine) End(ctx context.Context, caller common.Address, id domain.AssetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[id]
	if !ok || !a.Active {
		return fmt.Errorf("auction: end asset %d: %w", id, domain.ErrAuctionNotActive)
	}
	if e.now().Before(a.EndTime) {
		return fmt.Errorf("auction: end asset %d: %w: deadline not reached", id, domain.ErrPreconditionFailed)
	}
	if a.HighestBidder == nil {
		return fmt.Errorf("auction: end asset %d: %w: no bids", id, domain.ErrPreconditionFailed)
	}

	depositor, err := e.vault.AssetDepositor(id)
	if err != nil {
		return fmt.Errorf("auction: end asset %d: %w", id, err)
	}

	winner := *a.HighestBidder
	a.Active = false

	if err := e.registry.Transfer(ctx, e.vault.Address(), winner, id); err != nil {
		a.Active = true
		return fmt.Errorf("auction: end asset %d: %w", id, err)
	}

	royalty := new(big.Int).Mul(a.HighestBid, new(big.Int).SetUint64(e.params.RoyaltyPct))
	royalty.Div(royalty, big.NewInt(100))
	if royalty.Sign() > 0 {
		e.pending.Credit(ctx, depositor, royalty)
	}

	if err := e.vault.RecordSaleProceeds(ctx, id, a.HighestBid); err != nil {
		// The asset has already moved; proceeds recording must not fail for a
		// known asset. Log loudly rather than stranding the winner.
		e.logger.ErrorContext(ctx, "record sale proceeds failed",
			slog.Uint64("asset_id", uint64(id)), slog.String("error", err.Error()))
	}

	e.events.Record(ctx, domain.EventAuctionEnded, map[string]any{
		"asset_id": uint64(id),
		"winner":   winner.Hex(),
		"price":    a.HighestBid.String(),
		"royalty":  royalty.String(),
		"caller":   caller.Hex(),
	})
	return nil
}

// Cancel aborts an active auction. Governance-gated, allowed at any point in
// the auction's life. The current highest bidder, if any, is credited their
// full stake before the record is zeroed.
func (e *AuctionEngine) Cancel(ctx context.Context, caller common.Address, id domain.AssetID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || caller != *e.authority {
		return fmt.Errorf("auction: cancel asset %d: %w", id, domain.ErrUnauthorized)
	}
	a, ok := e.auctions[id]
	if !ok || !a.Active {
		return fmt.Errorf("auction: cancel asset %d: %w", id, domain.ErrAuctionNotActive)
	}

	a.Active = false
	var refunded string
	if a.HighestBidder != nil {
		// Credit the pre-zero bid amount, then clear the record.
		e.pending.Credit(ctx, *a.HighestBidder, a.HighestBid)
		refunded = a.HighestBid.String()
	}
	a.HighestBid = new(big.Int)
	a.HighestBidder = nil

	e.events.Record(ctx, domain.EventAuctionCancelled, map[string]any{
		"asset_id": uint64(id),
		"refunded": refunded,
	})
	return nil
}

// SetAuthority designates the governance address. Owner-gated, one-time.
func (e *AuctionEngine) SetAuthority(ctx context.Context, caller, authority common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.owner {
		return fmt.Errorf("auction: set authority: %w", domain.ErrUnauthorized)
	}
	if e.authority != nil {
		return fmt.Errorf("auction: set authority: %w", domain.ErrAlreadySet)
	}
	a := authority
	e.authority = &a

	e.events.Record(ctx, domain.EventAuthoritySet, map[string]any{
		"target":    "auction",
		"authority": authority.Hex(),
	})
	return nil
}

// SetDuration updates the configured auction duration. Governance-gated.
func (e *AuctionEngine) SetDuration(ctx context.Context, caller common.Address, d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || caller != *e.authority {
		return fmt.Errorf("auction: set duration: %w", domain.ErrUnauthorized)
	}
	if d <= 0 {
		return fmt.Errorf("auction: set duration: %w: must be positive", domain.ErrPreconditionFailed)
	}
	e.params.Duration = d

	e.events.Record(ctx, domain.EventParameterUpdated, map[string]any{
		"parameter": "auction_duration",
		"value":     d.String(),
	})
	return nil
}

// SetRoyaltyPct updates the depositor royalty percentage. Governance-gated.
func (e *AuctionEngine) SetRoyaltyPct(ctx context.Context, caller common.Address, pct uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authority == nil || caller != *e.authority {
		return fmt.Errorf("auction: set royalty: %w", domain.ErrUnauthorized)
	}
	if pct > 100 {
		return fmt.Errorf("auction: set royalty: %w: pct above 100", domain.ErrPreconditionFailed)
	}
	e.params.RoyaltyPct = pct

	e.events.Record(ctx, domain.EventParameterUpdated, map[string]any{
		"parameter": "royalty_pct",
		"value":     pct,
	})
	return nil
}

// Auction returns a copy of the auction record for the given asset.
func (e *AuctionEngine) Auction(id domain.AssetID) (domain.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.auctions[id]
	if !ok {
		return domain.Auction{}, fmt.Errorf("auction: asset %d: %w", id, domain.ErrNotFound)
	}
	return a.Clone(), nil
}
