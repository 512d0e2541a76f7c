package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalID identifies a governance proposal.
type ProposalID uint64

// ActionKind enumerates the parameter mutations governance can perform.
type ActionKind string

const (
	ActionSetAuctionDuration ActionKind = "set_auction_duration"
	ActionSetRoyaltyPct      ActionKind = "set_royalty_pct"
	ActionCancelAuction      ActionKind = "cancel_auction"
)

// Action is the typed payload a passed proposal applies to the engine. Exactly
// one of the value fields is meaningful depending on Kind.
type Action struct {
	Kind     ActionKind    `json:"kind"`
	AssetID  AssetID       `json:"asset_id,omitempty"`  // cancel_auction
	Duration time.Duration `json:"duration,omitempty"`  // set_auction_duration
	Pct      uint64        `json:"pct,omitempty"`       // set_royalty_pct
}

// Validate checks the action is internally consistent before a proposal is
// accepted for voting.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionSetAuctionDuration:
		if a.Duration <= 0 {
			return fmt.Errorf("action %s: duration must be positive", a.Kind)
		}
	case ActionSetRoyaltyPct:
		if a.Pct > 100 {
			return fmt.Errorf("action %s: pct must be at most 100", a.Kind)
		}
	case ActionCancelAuction:
		if a.AssetID == 0 {
			return fmt.Errorf("action %s: asset id required", a.Kind)
		}
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// ProposalStatus is the status projection exposed to callers.
type ProposalStatus string

const (
	ProposalPending     ProposalStatus = "Pending"
	ProposalActive      ProposalStatus = "Active"
	ProposalVotingEnded ProposalStatus = "Voting Ended"
	ProposalApproved    ProposalStatus = "Approved"
	ProposalRejected    ProposalStatus = "Rejected"
)

// Proposal is a governance proposal record.
type Proposal struct {
	ID          ProposalID
	Description string
	Action      Action
	Proposer    common.Address

	VotingStart time.Time
	VotingEnd   time.Time

	// SupplySnapshot is the total claim supply at creation; the quorum gate
	// is evaluated against this, not the live supply.
	SupplySnapshot *big.Int

	VotesFor     *big.Int
	VotesAgainst *big.Int
	TotalVotes   *big.Int

	// Executed flips once when the proposal passes its execute check. It
	// never resets.
	Executed bool

	// ETA is when the queued action may be applied (execute time plus the
	// configured delay). Zero until executed.
	ETA time.Time

	// Applied flips once the queued action has been dispatched to its target.
	Applied bool
}

// Clone returns a deep copy safe to hand out past the controller's lock.
func (p Proposal) Clone() Proposal {
	out := p
	if p.SupplySnapshot != nil {
		out.SupplySnapshot = new(big.Int).Set(p.SupplySnapshot)
	}
	if p.VotesFor != nil {
		out.VotesFor = new(big.Int).Set(p.VotesFor)
	}
	if p.VotesAgainst != nil {
		out.VotesAgainst = new(big.Int).Set(p.VotesAgainst)
	}
	if p.TotalVotes != nil {
		out.TotalVotes = new(big.Int).Set(p.TotalVotes)
	}
	return out
}
