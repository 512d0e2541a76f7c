package domain

import (
	"context"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FractionLedger is the external fungible-claim ledger. The vault is the sole
// authorized caller of Mint and BurnFrom; transfer/approval mechanics between
// holders are the ledger's own business and out of scope here.
type FractionLedger interface {
	Mint(ctx context.Context, to common.Address, amount *big.Int) error
	BurnFrom(ctx context.Context, holder common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
	TotalSupply(ctx context.Context) (*big.Int, error)

	// SetAuthority designates the vault as the only mint/burn caller. One-time;
	// a second call returns ErrAlreadySet.
	SetAuthority(vault common.Address) error
}

// AssetRegistry is the external registry of unique assets (the NFT contract in
// the source system). Transfer moves custody of one asset and may be rejected
// by the recipient, in which case it returns an error wrapping
// ErrTransferFailed.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, id AssetID) (common.Address, error)
	Transfer(ctx context.Context, from, to common.Address, id AssetID) error
}

// PaymentBackend moves value between accounts. All engine money flows through
// the configured treasury address: bids in, redemptions and pending
// withdrawals out. A rejected move returns an error wrapping ErrTransferFailed.
type PaymentBackend interface {
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// LockManager provides distributed locks used at the API boundary to
// serialize operations on one auction across replicas.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL and returns an
	// unlock function, or ErrLockHeld if another party holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter enforces a sliding-window request budget per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus publishes engine events to live observers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads journal exports to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, body io.Reader, contentType string) error
}
