package settlement

import "errors"

var (
	// ErrConsistencyViolation marks ledger state that must not be settled
	// automatically. It aborts the settlement transaction.
	ErrConsistencyViolation = errors.New("settlement_consistency_violation")
	ErrTournamentNotFound   = errors.New("tournament_not_found")
	ErrInvalidSettings      = errors.New("invalid_settlement_settings")
)
