package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fracvault/internal/domain"
	"github.com/alanyoungcy/fracvault/internal/service"
)

// GovernanceHandler serves the proposal lifecycle endpoints.
type GovernanceHandler struct {
	gov    *service.GovernanceController
	logger *slog.Logger
}

// NewGovernanceHandler creates a GovernanceHandler.
func NewGovernanceHandler(gov *service.GovernanceController, logger *slog.Logger) *GovernanceHandler {
	return &GovernanceHandler{
		gov:    gov,
		logger: logHandler(logger, "governance"),
	}
}

type createProposalRequest struct {
	Caller      string `json:"caller"`
	Description string `json:"description"`
	Action      struct {
		Kind     string `json:"kind"`
		AssetID  uint64 `json:"asset_id,omitempty"`
		Duration string `json:"duration,omitempty"`
		Pct      uint64 `json:"pct,omitempty"`
	} `json:"action"`
}

// CreateProposal opens a new proposal for voting.
// POST /api/governance/proposals
func (h *GovernanceHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	action := domain.Action{
		Kind:    domain.ActionKind(req.Action.Kind),
		AssetID: domain.AssetID(req.Action.AssetID),
		Pct:     req.Action.Pct,
	}
	if req.Action.Duration != "" {
		d, err := time.ParseDuration(req.Action.Duration)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid duration %q", req.Action.Duration))
			return
		}
		action.Duration = d
	}

	id, err := h.gov.CreateProposal(r.Context(), caller, req.Description, action)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.proposalResponse(id))
}

type voteRequest struct {
	Caller  string `json:"caller"`
	Support bool   `json:"support"`
}

// Vote casts the caller's full claim balance on a proposal.
// POST /api/governance/proposals/{id}/vote
func (h *GovernanceHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, err := parseProposalID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.gov.Vote(r.Context(), caller, id, req.Support); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.proposalResponse(id))
}

// Execute checks quorum and majority and queues the action behind the
// timelock.
// POST /api/governance/proposals/{id}/execute
func (h *GovernanceHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := parseProposalID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.gov.ExecuteProposal(r.Context(), caller, id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.proposalResponse(id))
}

// Apply dispatches a queued proposal's action once the timelock has elapsed.
// POST /api/governance/proposals/{id}/apply
func (h *GovernanceHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, err := parseProposalID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.gov.ApplyProposal(r.Context(), caller, id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.proposalResponse(id))
}

// GetProposal returns the proposal record with its projected status.
// GET /api/governance/proposals/{id}
func (h *GovernanceHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := parseProposalID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.gov.Proposal(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.proposalResponse(id))
}

// proposalResponse builds the JSON view of a proposal record. Returns a bare
// map with the ID when the record cannot be read back.
func (h *GovernanceHandler) proposalResponse(id domain.ProposalID) map[string]any {
	p, err := h.gov.Proposal(id)
	if err != nil {
		return map[string]any{"proposal_id": uint64(id)}
	}
	status, err := h.gov.Status(id)
	if err != nil {
		status = ""
	}

	action := map[string]any{"kind": string(p.Action.Kind)}
	switch p.Action.Kind {
	case domain.ActionSetAuctionDuration:
		action["duration"] = p.Action.Duration.String()
	case domain.ActionSetRoyaltyPct:
		action["pct"] = p.Action.Pct
	case domain.ActionCancelAuction:
		action["asset_id"] = uint64(p.Action.AssetID)
	}

	resp := map[string]any{
		"proposal_id":     uint64(p.ID),
		"description":     p.Description,
		"action":          action,
		"proposer":        p.Proposer.Hex(),
		"status":          string(status),
		"voting_start":    p.VotingStart.UTC().Format(time.RFC3339),
		"voting_end":      p.VotingEnd.UTC().Format(time.RFC3339),
		"supply_snapshot": p.SupplySnapshot.String(),
		"votes_for":       p.VotesFor.String(),
		"votes_against":   p.VotesAgainst.String(),
		"total_votes":     p.TotalVotes.String(),
		"executed":        p.Executed,
		"applied":         p.Applied,
	}
	if p.Executed {
		resp["eta"] = p.ETA.UTC().Format(time.RFC3339)
	}
	return resp
}
