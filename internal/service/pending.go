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

// PendingPaymentLedger is the pull-payment escrow shared by the vault and the
// auction engine. Refunds, royalties, and other owed amounts are credited here
// and only ever leave through the owed address calling Withdraw.
//
// Withdraw follows the zero-before-transfer discipline: the owed balance is
// cleared before the value moves, and restored if the move is rejected, so the
// whole withdrawal is atomic. A per-address busy marker covers the window in
// which the ledger's own lock is released around the external transfer.
type PendingPaymentLedger struct {
	mu   sync.Mutex
	owed map[common.Address]*big.Int
	busy map[common.Address]struct{}

	treasury common.Address
	bank     domain.PaymentBackend
	events   domain.EventRecorder
	logger   *slog.Logger
}

// NewPendingPaymentLedger creates a PendingPaymentLedger paying out of the
// given treasury account.
func NewPendingPaymentLedger(
	treasury common.Address,
	bank domain.PaymentBackend,
	events domain.EventRecorder,
	logger *slog.Logger,
) *PendingPaymentLedger {
	return &PendingPaymentLedger{
		owed:     make(map[common.Address]*big.Int),
		busy:     make(map[common.Address]struct{}),
		treasury: treasury,
		bank:     bank,
		events:   events,
		logger:   logger.With(slog.String("component", "pending")),
	}
}

// Credit adds amount to the address's owed balance. Additive, never fails;
// only vault and engine internals call it.
func (l *PendingPaymentLedger) Credit(ctx context.Context, addr common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}

	l.mu.Lock()
	cur, ok := l.owed[addr]
	if !ok {
		cur = new(big.Int)
		l.owed[addr] = cur
	}
	cur.Add(cur, amount)
	l.mu.Unlock()

	l.events.Record(ctx, domain.EventPaymentCredited, map[string]any{
		"address": addr.Hex(),
		"amount":  amount.String(),
	})
}

// Owed returns the address's current owed balance.
func (l *PendingPaymentLedger) Owed(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.owed[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cur)
}

// TotalOwed returns the sum of all credited-but-unwithdrawn balances.
func (l *PendingPaymentLedger) TotalOwed() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := new(big.Int)
	for _, amt := range l.owed {
		total.Add(total, amt)
	}
	return total
}

// Withdraw pays the caller their full owed balance. Fails with ErrNoFunds if
// nothing is owed. If the value transfer is rejected the zeroing is rolled
// back, so no funds are lost; the caller may retry.
func (l *PendingPaymentLedger) Withdraw(ctx context.Context, caller common.Address) (*big.Int, error) {
	l.mu.Lock()
	if _, held := l.busy[caller]; held {
		l.mu.Unlock()
		return nil, fmt.Errorf("pending: withdraw %s: %w", caller.Hex(), domain.ErrBusy)
	}
	cur, ok := l.owed[caller]
	if !ok || cur.Sign() == 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("pending: withdraw %s: %w", caller.Hex(), domain.ErrNoFunds)
	}

	// Zero before transfer; busy marker guards the unlocked window.
	amount := new(big.Int).Set(cur)
	delete(l.owed, caller)
	l.busy[caller] = struct{}{}
	l.mu.Unlock()

	err := l.bank.Transfer(ctx, l.treasury, caller, amount)

	l.mu.Lock()
	delete(l.busy, caller)
	if err != nil {
		restored, ok := l.owed[caller]
		if !ok {
			restored = new(big.Int)
			l.owed[caller] = restored
		}
		restored.Add(restored, amount)
		l.mu.Unlock()
		return nil, fmt.Errorf("pending: withdraw %s: %w", caller.Hex(), err)
	}
	l.mu.Unlock()

	l.events.Record(ctx, domain.EventPaymentWithdrawn, map[string]any{
		"address": caller.Hex(),
		"amount":  amount.String(),
	})
	return amount, nil
}
