package match

import "fmt"

// QueueKey identifies one waiting line. The game type is opaque here.
type QueueKey struct {
	GameType string `json:"gameType"`
	Stake    int64  `json:"stake"`
}

func (k QueueKey) String() string {
	return fmt.Sprintf("%s_%d", k.GameType, k.Stake)
}

type State string

const (
	StatePendingEscrow State = "PENDING_ESCROW"
	StateActive        State = "ACTIVE"
	StateResolving     State = "RESOLVING"
	StateClosed        State = "CLOSED"
)

type EscrowStatus string

const (
	EscrowNone     EscrowStatus = "none"
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowStranded EscrowStatus = "stranded"
)

type Result string

const (
	ResultWin     Result = "win"
	ResultDraw    Result = "draw"
	ResultForfeit Result = "forfeit"
)
