package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies a unique, non-divisible asset in the registry.
type AssetID uint64

// AssetRecord is the vault's per-asset custody state.
type AssetRecord struct {
	ID AssetID

	// InCustody is true while the vault holds the asset. It is cleared on
	// withdrawal and when an auction settles (the asset moves to the winner).
	InCustody bool

	// OriginalOwner is the depositor at lock time. Immutable until the next
	// full withdrawal cycle for this ID.
	OriginalOwner common.Address

	// SaleProceeds is the unredeemed value owed to claim holders for this
	// asset. Decremented by redemptions, never negative.
	SaleProceeds *big.Int
}

// Clone returns a deep copy safe to hand out past the vault's lock.
func (a AssetRecord) Clone() AssetRecord {
	out := a
	if a.SaleProceeds != nil {
		out.SaleProceeds = new(big.Int).Set(a.SaleProceeds)
	}
	return out
}
