package domain

import (
	"context"
	"time"
)

// Event types emitted by the engine. Exactly one event is emitted per
// successful mutating operation; the journal is append-only.
const (
	EventDeposit          = "deposit"
	EventWithdrawal       = "withdrawal"
	EventRedemption       = "redemption"
	EventAuthoritySet     = "authority_set"
	EventAuctionStarted   = "auction_started"
	EventBidPlaced        = "bid_placed"
	EventAuctionEnded     = "auction_ended"
	EventAuctionCancelled = "auction_cancelled"
	EventPaymentCredited  = "payment_credited"
	EventPaymentWithdrawn = "payment_withdrawn"
	EventProposalCreated  = "proposal_created"
	EventVoteCast         = "vote_cast"
	EventProposalQueued   = "proposal_queued"
	EventProposalExecuted = "proposal_executed"
	EventParameterUpdated = "parameter_updated"
)

// Event is a single journal entry.
type Event struct {
	ID        string
	Type      string
	Detail    map[string]any
	CreatedAt time.Time
}

// EventRecorder accepts engine events. Recording is observational: a recorder
// failure must never fail the operation that produced the event.
type EventRecorder interface {
	Record(ctx context.Context, eventType string, detail map[string]any)
}

// EventStore persists the append-only event journal.
type EventStore interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, opts ListOpts) ([]Event, error)
	ListBefore(ctx context.Context, before time.Time) ([]Event, error)
}

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	Type   string
}
