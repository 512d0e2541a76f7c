package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Auction is the per-asset auction record. At most one auction is active per
// asset ID at any time.
type Auction struct {
	AssetID   AssetID
	Active    bool
	EndTime   time.Time
	StartedAt time.Time

	// HighestBid starts at the seller's starting price. It only ever
	// increases, and strictly so on every accepted bid.
	HighestBid *big.Int

	// HighestBidder is nil until the first accepted bid.
	HighestBidder *common.Address

	// TotalBids counts accepted bids, not attempts.
	TotalBids int64
}

// Clone returns a deep copy safe to hand out past the engine's lock.
func (a Auction) Clone() Auction {
	out := a
	if a.HighestBid != nil {
		out.HighestBid = new(big.Int).Set(a.HighestBid)
	}
	if a.HighestBidder != nil {
		addr := *a.HighestBidder
		out.HighestBidder = &addr
	}
	return out
}
