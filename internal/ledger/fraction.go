// Package ledger provides the in-process implementations of the engine's
// external collaborators: the fungible fraction ledger, the unique-asset
// registry, and the account-based payment backend.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// FractionLedger is an in-process fungible-claim ledger. Mint and BurnFrom are
// restricted to the one-time registered authority (the vault); plain transfers
// between holders are unrestricted.
type FractionLedger struct {
	mu        sync.Mutex
	authority *common.Address
	balances  map[common.Address]*big.Int
	supply    *big.Int
}

// NewFractionLedger creates an empty FractionLedger. Registering the mint/burn
// authority is the deployer's job, done once during wiring.
func NewFractionLedger() *FractionLedger {
	return &FractionLedger{
		balances: make(map[common.Address]*big.Int),
		supply:   new(big.Int),
	}
}

// SetAuthority registers the vault as the sole mint/burn caller. One-time.
func (l *FractionLedger) SetAuthority(vault common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.authority != nil {
		return fmt.Errorf("ledger: set authority: %w", domain.ErrAlreadySet)
	}
	a := vault
	l.authority = &a
	return nil
}

// authorized reports whether the mint/burn authority has been registered.
// Caller must hold l.mu.
func (l *FractionLedger) authorized() bool {
	return l.authority != nil
}

// Mint credits amount new claim units to the given holder.
func (l *FractionLedger) Mint(ctx context.Context, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("ledger: mint: %w: negative amount", domain.ErrPreconditionFailed)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorized() {
		return fmt.Errorf("ledger: mint: %w: authority unset", domain.ErrUnauthorized)
	}

	bal := l.balance(to)
	bal.Add(bal, amount)
	l.supply.Add(l.supply, amount)
	return nil
}

// BurnFrom destroys amount claim units held by holder.
func (l *FractionLedger) BurnFrom(ctx context.Context, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("ledger: burn: %w: negative amount", domain.ErrPreconditionFailed)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorized() {
		return fmt.Errorf("ledger: burn: %w: authority unset", domain.ErrUnauthorized)
	}

	bal := l.balance(holder)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("ledger: burn from %s: %w", holder.Hex(), domain.ErrInsufficientClaims)
	}
	bal.Sub(bal, amount)
	l.supply.Sub(l.supply, amount)
	return nil
}

// Transfer moves claim units between holders. Standard fungible mechanics,
// needed so vote weight can move between addresses.
func (l *FractionLedger) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("ledger: transfer: %w: negative amount", domain.ErrPreconditionFailed)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.balance(from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("ledger: transfer from %s: %w", from.Hex(), domain.ErrInsufficientClaims)
	}
	src.Sub(src, amount)
	dst := l.balance(to)
	dst.Add(dst, amount)
	return nil
}

// BalanceOf returns the holder's claim balance.
func (l *FractionLedger) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(holder)), nil
}

// TotalSupply returns the total claim units in circulation.
func (l *FractionLedger) TotalSupply(ctx context.Context) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.supply), nil
}

// balance returns the mutable balance entry for addr, creating it if needed.
// Caller must hold l.mu.
func (l *FractionLedger) balance(addr common.Address) *big.Int {
	bal, ok := l.balances[addr]
	if !ok {
		bal = new(big.Int)
		l.balances[addr] = bal
	}
	return bal
}

// Compile-time interface check.
var _ domain.FractionLedger = (*FractionLedger)(nil)
