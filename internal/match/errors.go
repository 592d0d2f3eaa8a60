package match

import (
	"errors"

	"dice-duel/internal/ledger"
)

var (
	ErrAlreadyActive          = errors.New("already_active")
	ErrInsufficientFunds      = ledger.ErrInsufficientFunds
	ErrLedger                 = ledger.ErrLedger
	ErrDuplicateRoll          = errors.New("duplicate_roll")
	ErrNotParticipant         = errors.New("not_participant")
	ErrMatchNotFound          = errors.New("match_not_found")
	ErrMatchNotActive         = errors.New("match_not_active")
	ErrReconciliationRequired = errors.New("reconciliation_required")
	ErrInvalidRequest         = errors.New("invalid_request")
	ErrOpponentUnfunded       = errors.New("opponent_unfunded")
)

// ErrorCode maps an error to the code sent in ERROR events.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyActive):
		return "already_active"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrDuplicateRoll):
		return "duplicate_roll"
	case errors.Is(err, ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, ErrMatchNotFound):
		return "match_not_found"
	case errors.Is(err, ErrMatchNotActive):
		return "match_not_active"
	case errors.Is(err, ErrReconciliationRequired):
		return "reconciliation_required"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrOpponentUnfunded):
		return "opponent_unfunded"
	case errors.Is(err, ErrLedger):
		return "ledger_error"
	default:
		return "internal_error"
	}
}

var errorMessages = map[string]string{
	"already_active":          "already searching or playing",
	"insufficient_funds":      "insufficient funds for this stake",
	"duplicate_roll":          "you already rolled in this match",
	"not_participant":         "you are not part of this match",
	"match_not_found":         "match not found",
	"match_not_active":        "match is not accepting rolls",
	"reconciliation_required": "settlement failed; funds held for reconciliation",
	"invalid_request":         "invalid request",
	"opponent_unfunded":       "opponent could not fund the match",
	"ledger_error":            "account service unavailable",
	"internal_error":          "internal error",
}

func errorPayload(err error, matchID string) ErrorPayload {
	code := ErrorCode(err)
	return ErrorPayload{Code: code, Message: errorMessages[code], MatchID: matchID}
}
