package domain

import "errors"

var (
	// ErrPreconditionFailed is returned when an operation is attempted in the
	// wrong state-machine state (auction not active, voting closed, etc.).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadySet is returned when a one-time configuration field is set a
	// second time.
	ErrAlreadySet = errors.New("already set")

	// ErrTransferFailed is returned when an underlying asset or value move is
	// rejected. The failed operation leaves no state change behind.
	ErrTransferFailed = errors.New("transfer failed")

	ErrNotInCustody       = errors.New("asset not in custody")
	ErrInsufficientClaims = errors.New("insufficient claim balance")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoProceeds         = errors.New("no sale proceeds recorded")
	ErrSupplyZero         = errors.New("claim supply is zero")
	ErrNoFunds            = errors.New("no pending funds")
	ErrBidTooLow          = errors.New("bid does not exceed current highest")
	ErrAuctionActive      = errors.New("auction already active")
	ErrAuctionNotActive   = errors.New("auction not active")
	ErrNotFound           = errors.New("not found")
	ErrBusy               = errors.New("resource busy")
	ErrLockHeld           = errors.New("lock already held")
	ErrRateLimited        = errors.New("rate limited")
)
