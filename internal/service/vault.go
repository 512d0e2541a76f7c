package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// CustodyVault owns locked assets and the claim-minting relationship. A
// depositor locks an asset and receives fractionsPerAsset fungible claims;
// after the asset is sold at auction the recorded proceeds are redeemable
// pro rata against those claims.
//
// Every operation is all-or-nothing: a failed precondition or a rejected
// transfer leaves state exactly as it was before the call.
type CustodyVault struct {
	mu sync.Mutex

	owner    common.Address
	addr     common.Address // account that holds locked assets
	treasury common.Address // account that holds auction proceeds

	fractionsPerAsset *big.Int
	records           map[domain.AssetID]*domain.AssetRecord

	// authority is the governance address, nil until SetAuthority. The single
	// Unset -> Set transition is the only one allowed; there is no way to
	// re-point governance once set, even for the owner. If the address is
	// wrong the governance layer is unrecoverable -- accepted risk.
	authority *common.Address

	registry  domain.AssetRegistry
	fractions domain.FractionLedger
	bank      domain.PaymentBackend
	events    domain.EventRecorder
	logger    *slog.Logger
}

// VaultConfig carries the construction parameters for a CustodyVault.
type VaultConfig struct {
	Owner             common.Address
	VaultAddress      common.Address
	Treasury          common.Address
	FractionsPerAsset *big.Int
}

// NewCustodyVault creates a CustodyVault with all required dependencies.
func NewCustodyVault(
	cfg VaultConfig,
	registry domain.AssetRegistry,
	fractions domain.FractionLedger,
	bank domain.PaymentBackend,
	events domain.EventRecorder,
	logger *slog.Logger,
) *CustodyVault {
	return &CustodyVault{
		owner:             cfg.Owner,
		addr:              cfg.VaultAddress,
		treasury:          cfg.Treasury,
		fractionsPerAsset: new(big.Int).Set(cfg.FractionsPerAsset),
		records:           make(map[domain.AssetID]*domain.AssetRecord),
		registry:          registry,
		fractions:         fractions,
		bank:              bank,
		events:            events,
		logger:            logger.With(slog.String("component", "vault")),
	}
}

// Address returns the vault's asset-holding account.
func (v *CustodyVault) Address() common.Address {
	return v.addr
}

// FractionsPerAsset returns the claim units minted per locked asset.
func (v *CustodyVault) FractionsPerAsset() *big.Int {
	return new(big.Int).Set(v.fractionsPerAsset)
}

// Deposit locks the given assets in custody and mints fractionsPerAsset claim
// units per asset to the caller. The batch is all-or-nothing: if any asset
// transfer fails, assets already processed in this call are returned and
// their minted claims burned before the error is surfaced.
func (v *CustodyVault) Deposit(ctx context.Context, caller common.Address, ids []domain.AssetID) error {
	if len(ids) == 0 {
		return fmt.Errorf("vault: deposit: %w: empty batch", domain.ErrPreconditionFailed)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	var done []domain.AssetID
	// Records from a previous lock cycle that this call overwrites; rollback
	// must put them back, not drop them.
	replaced := make(map[domain.AssetID]*domain.AssetRecord)
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			id := done[i]
			if err := v.fractions.BurnFrom(ctx, caller, v.fractionsPerAsset); err != nil {
				v.logger.ErrorContext(ctx, "deposit rollback burn failed",
					slog.Uint64("asset_id", uint64(id)), slog.String("error", err.Error()))
			}
			if err := v.registry.Transfer(ctx, v.addr, caller, id); err != nil {
				v.logger.ErrorContext(ctx, "deposit rollback return failed",
					slog.Uint64("asset_id", uint64(id)), slog.String("error", err.Error()))
			}
			if prior, ok := replaced[id]; ok {
				v.records[id] = prior
			} else {
				delete(v.records, id)
			}
		}
	}

	for _, id := range ids {
		if rec, ok := v.records[id]; ok {
			if rec.InCustody {
				rollback()
				return fmt.Errorf("vault: deposit asset %d: %w: already in custody", id, domain.ErrPreconditionFailed)
			}
			// Proceeds from the previous cycle still back outstanding claims.
			// Starting a new cycle would overwrite the pool they redeem
			// against, so the asset stays out of the vault until the pool is
			// drained.
			if rec.SaleProceeds.Sign() > 0 {
				rollback()
				return fmt.Errorf("vault: deposit asset %d: %w: unredeemed sale proceeds", id, domain.ErrPreconditionFailed)
			}
		}

		if err := v.registry.Transfer(ctx, caller, v.addr, id); err != nil {
			rollback()
			return fmt.Errorf("vault: deposit asset %d: %w", id, err)
		}
		if err := v.fractions.Mint(ctx, caller, v.fractionsPerAsset); err != nil {
			// Custody moved but claims did not; undo the move too.
			if rerr := v.registry.Transfer(ctx, v.addr, caller, id); rerr != nil {
				v.logger.ErrorContext(ctx, "deposit rollback return failed",
					slog.Uint64("asset_id", uint64(id)), slog.String("error", rerr.Error()))
			}
			rollback()
			return fmt.Errorf("vault: deposit asset %d mint: %w", id, err)
		}

		if prior, ok := v.records[id]; ok {
			replaced[id] = prior
		}
		v.records[id] = &domain.AssetRecord{
			ID:            id,
			InCustody:     true,
			OriginalOwner: caller,
			SaleProceeds:  new(big.Int),
		}
		done = append(done, id)
	}

	for _, id := range done {
		v.events.Record(ctx, domain.EventDeposit, map[string]any{
			"asset_id":  uint64(id),
			"depositor": caller.Hex(),
			"minted":    v.fractionsPerAsset.String(),
		})
	}
	return nil
}

// Withdraw releases an asset back to the caller in exchange for burning
// fractionsPerAsset claim units. Only callable while the asset is in custody.
func (v *CustodyVault) Withdraw(ctx context.Context, caller common.Address, id domain.AssetID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[id]
	if !ok || !rec.InCustody {
		return fmt.Errorf("vault: withdraw asset %d: %w", id, domain.ErrNotInCustody)
	}

	balance, err := v.fractions.BalanceOf(ctx, caller)
	if err != nil {
		return fmt.Errorf("vault: withdraw asset %d balance: %w", id, err)
	}
	if balance.Cmp(v.fractionsPerAsset) < 0 {
		return fmt.Errorf("vault: withdraw asset %d: %w", id, domain.ErrInsufficientClaims)
	}

	if err := v.fractions.BurnFrom(ctx, caller, v.fractionsPerAsset); err != nil {
		return fmt.Errorf("vault: withdraw asset %d burn: %w", id, err)
	}
	rec.InCustody = false

	if err := v.registry.Transfer(ctx, v.addr, caller, id); err != nil {
		// Roll back: custody flag and burned claims.
		rec.InCustody = true
		if merr := v.fractions.Mint(ctx, caller, v.fractionsPerAsset); merr != nil {
			v.logger.ErrorContext(ctx, "withdraw rollback mint failed",
				slog.Uint64("asset_id", uint64(id)), slog.String("error", merr.Error()))
		}
		return fmt.Errorf("vault: withdraw asset %d: %w", id, err)
	}

	v.events.Record(ctx, domain.EventWithdrawal, map[string]any{
		"asset_id": uint64(id),
		"caller":   caller.Hex(),
		"burned":   v.fractionsPerAsset.String(),
	})
	return nil
}

// Redeem burns fractionAmount of the caller's claims against an asset with
// recorded sale proceeds and pays out the pro-rata share from the treasury.
// Payout is saleProceeds * fractionAmount / totalSupply with truncating
// integer division; the dust left by truncation stays in the proceeds pool.
func (v *CustodyVault) Redeem(ctx context.Context, caller common.Address, id domain.AssetID, fractionAmount *big.Int) (*big.Int, error) {
	if fractionAmount == nil || fractionAmount.Sign() <= 0 {
		return nil, fmt.Errorf("vault: redeem asset %d: %w: amount must be positive", id, domain.ErrPreconditionFailed)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[id]
	if !ok || rec.SaleProceeds.Sign() == 0 {
		return nil, fmt.Errorf("vault: redeem asset %d: %w", id, domain.ErrNoProceeds)
	}

	supply, err := v.fractions.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault: redeem asset %d supply: %w", id, err)
	}
	if supply.Sign() == 0 {
		return nil, fmt.Errorf("vault: redeem asset %d: %w", id, domain.ErrSupplyZero)
	}

	balance, err := v.fractions.BalanceOf(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("vault: redeem asset %d balance: %w", id, err)
	}
	if balance.Cmp(fractionAmount) < 0 {
		return nil, fmt.Errorf("vault: redeem asset %d: %w", id, domain.ErrInsufficientClaims)
	}

	payout := new(big.Int).Mul(rec.SaleProceeds, fractionAmount)
	payout.Div(payout, supply)

	// State first, value transfer last.
	rec.SaleProceeds.Sub(rec.SaleProceeds, payout)
	if err := v.fractions.BurnFrom(ctx, caller, fractionAmount); err != nil {
		rec.SaleProceeds.Add(rec.SaleProceeds, payout)
		return nil, fmt.Errorf("vault: redeem asset %d burn: %w", id, err)
	}

	if payout.Sign() > 0 {
		if err := v.bank.Transfer(ctx, v.treasury, caller, payout); err != nil {
			// Full rollback: proceeds restored, burned claims re-minted.
			rec.SaleProceeds.Add(rec.SaleProceeds, payout)
			if merr := v.fractions.Mint(ctx, caller, fractionAmount); merr != nil {
				v.logger.ErrorContext(ctx, "redeem rollback mint failed",
					slog.Uint64("asset_id", uint64(id)), slog.String("error", merr.Error()))
			}
			return nil, fmt.Errorf("vault: redeem asset %d: %w", id, err)
		}
	}

	v.events.Record(ctx, domain.EventRedemption, map[string]any{
		"asset_id": uint64(id),
		"caller":   caller.Hex(),
		"burned":   fractionAmount.String(),
		"payout":   payout.String(),
	})
	return payout, nil
}

// RecordSaleProceeds adds auction proceeds for an asset and clears its custody
// flag; the asset itself has already moved to the auction winner. The auction
// engine is the only caller, wired in via dependency injection.
func (v *CustodyVault) RecordSaleProceeds(ctx context.Context, id domain.AssetID, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("vault: record proceeds asset %d: %w: negative amount", id, domain.ErrPreconditionFailed)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok := v.records[id]
	if !ok {
		return fmt.Errorf("vault: record proceeds asset %d: %w", id, domain.ErrNotFound)
	}
	rec.SaleProceeds.Add(rec.SaleProceeds, amount)
	rec.InCustody = false
	return nil
}

// SetAuthority designates the governance address. Owner-gated and one-time:
// the second call fails with ErrAlreadySet regardless of caller.
func (v *CustodyVault) SetAuthority(ctx context.Context, caller, authority common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.owner {
		return fmt.Errorf("vault: set authority: %w", domain.ErrUnauthorized)
	}
	if v.authority != nil {
		return fmt.Errorf("vault: set authority: %w", domain.ErrAlreadySet)
	}
	a := authority
	v.authority = &a

	v.events.Record(ctx, domain.EventAuthoritySet, map[string]any{
		"target":    "vault",
		"authority": authority.Hex(),
	})
	return nil
}

// Authority returns the governance address and whether it has been set.
func (v *CustodyVault) Authority() (common.Address, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.authority == nil {
		return common.Address{}, false
	}
	return *v.authority, true
}

// Asset returns a copy of the custody record for the given ID.
func (v *CustodyVault) Asset(id domain.AssetID) (domain.AssetRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.records[id]
	if !ok {
		return domain.AssetRecord{}, fmt.Errorf("vault: asset %d: %w", id, domain.ErrNotFound)
	}
	return rec.Clone(), nil
}

// AssetInCustody reports whether the asset is currently locked in the vault.
func (v *CustodyVault) AssetInCustody(id domain.AssetID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.records[id]
	return ok && rec.InCustody
}

// AssetDepositor returns the original depositor for a locked asset.
func (v *CustodyVault) AssetDepositor(id domain.AssetID) (common.Address, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.records[id]
	if !ok {
		return common.Address{}, fmt.Errorf("vault: asset %d: %w", id, domain.ErrNotFound)
	}
	return rec.OriginalOwner, nil
}
