package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// AssetRegistry is an in-process registry of unique, non-divisible assets.
// Transfers verify current ownership and can be forced to fail per receiver,
// which tests use to exercise TransferFailed rollback paths.
type AssetRegistry struct {
	mu      sync.Mutex
	owners  map[domain.AssetID]common.Address
	blocked map[common.Address]struct{}
}

// NewAssetRegistry creates an empty AssetRegistry.
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		owners:  make(map[domain.AssetID]common.Address),
		blocked: make(map[common.Address]struct{}),
	}
}

// Register records the initial owner of an asset. Fails if the ID exists.
func (r *AssetRegistry) Register(id domain.AssetID, owner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; ok {
		return fmt.Errorf("registry: register asset %d: %w", id, domain.ErrAlreadySet)
	}
	r.owners[id] = owner
	return nil
}

// BlockReceiver makes every transfer to addr fail with ErrTransferFailed.
// Test hook modeling a recipient that rejects custody.
func (r *AssetRegistry) BlockReceiver(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocked[addr] = struct{}{}
}

// UnblockReceiver reverses BlockReceiver.
func (r *AssetRegistry) UnblockReceiver(addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocked, addr)
}

// OwnerOf returns the current owner of an asset.
func (r *AssetRegistry) OwnerOf(ctx context.Context, id domain.AssetID) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	if !ok {
		return common.Address{}, fmt.Errorf("registry: asset %d: %w", id, domain.ErrNotFound)
	}
	return owner, nil
}

// Transfer moves custody of one asset. The from address must be the current
// owner; a blocked receiver rejects the move with ErrTransferFailed.
func (r *AssetRegistry) Transfer(ctx context.Context, from, to common.Address, id domain.AssetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[id]
	if !ok {
		return fmt.Errorf("registry: transfer asset %d: %w", id, domain.ErrNotFound)
	}
	if owner != from {
		return fmt.Errorf("registry: transfer asset %d: %w: not the owner", id, domain.ErrTransferFailed)
	}
	if _, blocked := r.blocked[to]; blocked {
		return fmt.Errorf("registry: transfer asset %d: %w: receiver rejected", id, domain.ErrTransferFailed)
	}
	r.owners[id] = to
	return nil
}

// Compile-time interface check.
var _ domain.AssetRegistry = (*AssetRegistry)(nil)
