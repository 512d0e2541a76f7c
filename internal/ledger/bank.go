package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// Bank is an in-process account-based payment backend. All engine money flows
// through it: bids in, redemptions and pending withdrawals out. A per-address
// block hook lets tests force TransferFailed on outbound payments.
type Bank struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	blocked  map[common.Address]struct{}
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{
		balances: make(map[common.Address]*big.Int),
		blocked:  make(map[common.Address]struct{}),
	}
}

// Fund credits an account out of thin air. Setup/test helper.
func (b *Bank) Fund(addr common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal, ok := b.balances[addr]
	if !ok {
		bal = new(big.Int)
		b.balances[addr] = bal
	}
	bal.Add(bal, amount)
}

// BlockReceiver makes every transfer to addr fail with ErrTransferFailed.
func (b *Bank) BlockReceiver(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[addr] = struct{}{}
}

// UnblockReceiver reverses BlockReceiver.
func (b *Bank) UnblockReceiver(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocked, addr)
}

// Balance returns the account's current balance.
func (b *Bank) Balance(addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal, ok := b.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// Transfer moves value between accounts. Fails with ErrInsufficientFunds when
// the source balance is short and ErrTransferFailed when the receiver rejects.
func (b *Bank) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bank: transfer: %w: negative amount", domain.ErrPreconditionFailed)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, blocked := b.blocked[to]; blocked {
		return fmt.Errorf("bank: transfer to %s: %w: receiver rejected", to.Hex(), domain.ErrTransferFailed)
	}
	src, ok := b.balances[from]
	if !ok || src.Cmp(amount) < 0 {
		return fmt.Errorf("bank: transfer from %s: %w", from.Hex(), domain.ErrInsufficientFunds)
	}
	src.Sub(src, amount)
	dst, ok := b.balances[to]
	if !ok {
		dst = new(big.Int)
		b.balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

// Compile-time interface check.
var _ domain.PaymentBackend = (*Bank)(nil)
