package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// EngineAdmin is the capability surface governance uses to mutate auction
// engine parameters once a proposal has passed and its timelock elapsed.
type EngineAdmin interface {
	SetDuration(ctx context.Context, caller common.Address, d time.Duration) error
	SetRoyaltyPct(ctx context.Context, caller common.Address, pct uint64) error
	Cancel(ctx context.Context, caller common.Address, id domain.AssetID) error
}

// GovernanceParams are the tunable governance parameters.
type GovernanceParams struct {
	VotingPeriod   time.Duration
	ExecutionDelay time.Duration
	QuorumPct      uint64
	ThresholdPct   uint64 // min claim share to create a proposal
}

// GovernanceController runs the proposal lifecycle: create, vote, execute
// (queue behind a timelock), apply. Voting weight is the caller's live claim
// balance; each address votes at most once per proposal. The quorum gate is
// evaluated against the supply snapshot taken at creation.
//
// There are no timers: voting end and the timelock ETA are evaluated lazily
// when an operation arrives after the deadline.
type GovernanceController struct {
	mu sync.Mutex

	// addr is the controller's own identity, the address the vault owner
	// registers as authority on the vault and engine.
	addr   common.Address
	params GovernanceParams

	proposals map[domain.ProposalID]*proposalState
	nextID    domain.ProposalID

	fractions domain.FractionLedger
	engine    EngineAdmin
	events    domain.EventRecorder
	logger    *slog.Logger

	now func() time.Time
}

type proposalState struct {
	domain.Proposal
	voted map[common.Address]struct{}

	// applying marks an in-flight ApplyProposal dispatch. It covers the
	// window where the controller lock is released around the engine call,
	// so a second caller cannot dispatch the same action concurrently.
	applying bool
}

// NewGovernanceController creates a GovernanceController.
func NewGovernanceController(
	addr common.Address,
	params GovernanceParams,
	fractions domain.FractionLedger,
	engine EngineAdmin,
	events domain.EventRecorder,
	logger *slog.Logger,
) *GovernanceController {
	return &GovernanceController{
		addr:      addr,
		params:    params,
		proposals: make(map[domain.ProposalID]*proposalState),
		nextID:    1,
		fractions: fractions,
		engine:    engine,
		events:    events,
		logger:    logger.With(slog.String("component", "governance")),
		now:       time.Now,
	}
}

// WithClock overrides the controller's time source. Test hook.
func (g *GovernanceController) WithClock(now func() time.Time) *GovernanceController {
	g.now = now
	return g
}

// Address returns the controller's identity address.
func (g *GovernanceController) Address() common.Address {
	return g.addr
}

// CreateProposal opens a new proposal for voting. The caller must hold at
// least ThresholdPct percent of the current claim supply; the supply is
// snapshotted at this moment for the quorum gate.
func (g *GovernanceController) CreateProposal(ctx context.Context, caller common.Address, description string, action domain.Action) (domain.ProposalID, error) {
	if err := action.Validate(); err != nil {
		return 0, fmt.Errorf("governance: create proposal: %w: %v", domain.ErrPreconditionFailed, err)
	}

	supply, err := g.fractions.TotalSupply(ctx)
	if err != nil {
		return 0, fmt.Errorf("governance: create proposal supply: %w", err)
	}
	if supply.Sign() == 0 {
		return 0, fmt.Errorf("governance: create proposal: %w", domain.ErrSupplyZero)
	}
	balance, err := g.fractions.BalanceOf(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("governance: create proposal balance: %w", err)
	}

	// Exact rational comparison balance/supply >= threshold/100, via
	// cross-multiplication. No rounding: a truncated percentage would let a
	// zero-balance caller through whenever the supply is below 100/threshold.
	lhs := new(big.Int).Mul(balance, big.NewInt(100))
	rhs := new(big.Int).Mul(supply, new(big.Int).SetUint64(g.params.ThresholdPct))
	if lhs.Cmp(rhs) < 0 {
		return 0, fmt.Errorf("governance: create proposal: %w: below %d%% threshold", domain.ErrInsufficientClaims, g.params.ThresholdPct)
	}

	g.mu.Lock()
	id := g.nextID
	g.nextID++
	nowT := g.now()
	g.proposals[id] = &proposalState{
		Proposal: domain.Proposal{
			ID:             id,
			Description:    description,
			Action:         action,
			Proposer:       caller,
			VotingStart:    nowT,
			VotingEnd:      nowT.Add(g.params.VotingPeriod),
			SupplySnapshot: new(big.Int).Set(supply),
			VotesFor:       new(big.Int),
			VotesAgainst:   new(big.Int),
			TotalVotes:     new(big.Int),
		},
		voted: make(map[common.Address]struct{}),
	}
	g.mu.Unlock()

	g.events.Record(ctx, domain.EventProposalCreated, map[string]any{
		"proposal_id": uint64(id),
		"proposer":    caller.Hex(),
		"action":      string(action.Kind),
		"voting_end":  nowT.Add(g.params.VotingPeriod),
	})
	return id, nil
}

// Vote casts the caller's full claim balance for or against a proposal. Only
// valid inside the voting window; one vote per address per proposal.
func (g *GovernanceController) Vote(ctx context.Context, caller common.Address, id domain.ProposalID, support bool) error {
	balance, err := g.fractions.BalanceOf(ctx, caller)
	if err != nil {
		return fmt.Errorf("governance: vote proposal %d balance: %w", id, err)
	}
	if balance.Sign() == 0 {
		return fmt.Errorf("governance: vote proposal %d: %w", id, domain.ErrInsufficientClaims)
	}

	g.mu.Lock()
	p, ok := g.proposals[id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("governance: vote proposal %d: %w", id, domain.ErrNotFound)
	}

	nowT := g.now()
	if nowT.Before(p.VotingStart) || nowT.After(p.VotingEnd) {
		g.mu.Unlock()
		return fmt.Errorf("governance: vote proposal %d: %w: outside voting window", id, domain.ErrPreconditionFailed)
	}
	if _, dup := p.voted[caller]; dup {
		g.mu.Unlock()
		return fmt.Errorf("governance: vote proposal %d: %w: already voted", id, domain.ErrPreconditionFailed)
	}

	p.voted[caller] = struct{}{}
	if support {
		p.VotesFor.Add(p.VotesFor, balance)
	} else {
		p.VotesAgainst.Add(p.VotesAgainst, balance)
	}
	p.TotalVotes.Add(p.TotalVotes, balance)
	g.mu.Unlock()

	g.events.Record(ctx, domain.EventVoteCast, map[string]any{
		"proposal_id": uint64(id),
		"voter":       caller.Hex(),
		"support":     support,
		"weight":      balance.String(),
	})
	return nil
}

// ExecuteProposal checks quorum and majority after the voting window and, on
// success, queues the action behind the execution delay. It does not apply
// the action; ApplyProposal does, once the ETA has passed. The executed flag
// never resets.
func (g *GovernanceController) ExecuteProposal(ctx context.Context, caller common.Address, id domain.ProposalID) error {
	g.mu.Lock()
	p, ok := g.proposals[id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("governance: execute proposal %d: %w", id, domain.ErrNotFound)
	}

	nowT := g.now()
	if !nowT.After(p.VotingEnd) {
		g.mu.Unlock()
		return fmt.Errorf("governance: execute proposal %d: %w: voting still open", id, domain.ErrPreconditionFailed)
	}
	if p.Executed {
		g.mu.Unlock()
		return fmt.Errorf("governance: execute proposal %d: %w: already executed", id, domain.ErrPreconditionFailed)
	}
	if !quorumMet(p.TotalVotes, p.SupplySnapshot, g.params.QuorumPct) {
		g.mu.Unlock()
		return fmt.Errorf("governance: execute proposal %d: %w: quorum not met", id, domain.ErrPreconditionFailed)
	}
	if p.VotesFor.Cmp(p.VotesAgainst) <= 0 {
		g.mu.Unlock()
		return fmt.Errorf("governance: execute proposal %d: %w: majority against", id, domain.ErrPreconditionFailed)
	}

	p.Executed = true
	p.ETA = nowT.Add(g.params.ExecutionDelay)
	eta := p.ETA
	g.mu.Unlock()

	g.events.Record(ctx, domain.EventProposalQueued, map[string]any{
		"proposal_id": uint64(id),
		"caller":      caller.Hex(),
		"eta":         eta,
	})
	return nil
}

// ApplyProposal dispatches a queued proposal's action to its target once the
// timelock ETA has passed. Callable by anyone; applies at most once.
func (g *GovernanceController) ApplyProposal(ctx context.Context, caller common.Address, id domain.ProposalID) error {
	g.mu.Lock()
	p, ok := g.proposals[id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("governance: apply proposal %d: %w", id, domain.ErrNotFound)
	}
	if !p.Executed {
		g.mu.Unlock()
		return fmt.Errorf("governance: apply proposal %d: %w: not queued", id, domain.ErrPreconditionFailed)
	}
	if p.Applied {
		g.mu.Unlock()
		return fmt.Errorf("governance: apply proposal %d: %w: already applied", id, domain.ErrPreconditionFailed)
	}
	if p.applying {
		g.mu.Unlock()
		return fmt.Errorf("governance: apply proposal %d: %w: dispatch in flight", id, domain.ErrBusy)
	}
	if g.now().Before(p.ETA) {
		g.mu.Unlock()
		return fmt.Errorf("governance: apply proposal %d: %w: timelock not elapsed", id, domain.ErrPreconditionFailed)
	}
	p.applying = true
	action := p.Action
	g.mu.Unlock()

	// Dispatch outside the controller lock; the engine linearizes itself. The
	// applying marker keeps this window exclusive.
	var err error
	switch action.Kind {
	case domain.ActionSetAuctionDuration:
		err = g.engine.SetDuration(ctx, g.addr, action.Duration)
	case domain.ActionSetRoyaltyPct:
		err = g.engine.SetRoyaltyPct(ctx, g.addr, action.Pct)
	case domain.ActionCancelAuction:
		err = g.engine.Cancel(ctx, g.addr, action.AssetID)
	default:
		err = fmt.Errorf("%w: unknown action %q", domain.ErrPreconditionFailed, action.Kind)
	}

	g.mu.Lock()
	p.applying = false
	if err == nil {
		p.Applied = true
	}
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("governance: apply proposal %d: %w", id, err)
	}

	g.events.Record(ctx, domain.EventProposalExecuted, map[string]any{
		"proposal_id": uint64(id),
		"caller":      caller.Hex(),
		"action":      string(action.Kind),
	})
	return nil
}

// Proposal returns a copy of the proposal record.
func (g *GovernanceController) Proposal(id domain.ProposalID) (domain.Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return domain.Proposal{}, fmt.Errorf("governance: proposal %d: %w", id, domain.ErrNotFound)
	}
	return p.Proposal.Clone(), nil
}

// Status projects the proposal's state machine into its caller-facing status.
func (g *GovernanceController) Status(id domain.ProposalID) (domain.ProposalStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return "", fmt.Errorf("governance: proposal %d: %w", id, domain.ErrNotFound)
	}

	nowT := g.now()
	switch {
	case nowT.Before(p.VotingStart):
		return domain.ProposalPending, nil
	case !nowT.After(p.VotingEnd):
		return domain.ProposalActive, nil
	case p.Executed:
		return domain.ProposalApproved, nil
	case !quorumMet(p.TotalVotes, p.SupplySnapshot, g.params.QuorumPct):
		// Quorum never materialized; the proposal simply expired.
		return domain.ProposalVotingEnded, nil
	case p.VotesFor.Cmp(p.VotesAgainst) > 0:
		return domain.ProposalApproved, nil
	default:
		return domain.ProposalRejected, nil
	}
}

// quorumMet reports totalVotes >= quorumPct * snapshot / 100 with truncating
// integer division, so the required participation rounds down when the product
// is not a multiple of 100.
func quorumMet(totalVotes, snapshot *big.Int, quorumPct uint64) bool {
	need := new(big.Int).Mul(snapshot, new(big.Int).SetUint64(quorumPct))
	need.Div(need, big.NewInt(100))
	return totalVotes.Cmp(need) >= 0
}
