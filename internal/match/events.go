package match

// Client to server.
const (
	EventFindMatch = "FIND_MATCH"
	EventRollDice  = "ROLL_DICE"
	EventCancel    = "CANCEL"
)

// Server to client.
const (
	EventWaiting        = "WAITING"
	EventGameStart      = "GAME_START"
	EventMyRoll         = "MY_ROLL"
	EventOpponentRolled = "OPPONENT_ROLLED"
	EventGameOver       = "GAME_OVER"
	EventCancelled      = "CANCELLED"
	EventError          = "ERROR"
)

type FindMatchRequest struct {
	GameType string `json:"gameType" validate:"required,max=64"`
	Stake    int64  `json:"stake" validate:"gt=0,lte=4611686018427387903"`
	PlayerID string `json:"playerId" validate:"required,max=128"`
}

type RollDiceRequest struct {
	MatchID string `json:"matchId" validate:"required"`
}

type WaitingPayload struct {
	GameType string `json:"gameType"`
	Stake    int64  `json:"stake"`
	Message  string `json:"message"`
}

type GameStartPayload struct {
	MatchID    string `json:"matchId"`
	GameType   string `json:"gameType"`
	Stake      int64  `json:"stake"`
	OpponentID string `json:"opponentId"`
}

type MyRollPayload struct {
	MatchID string `json:"matchId"`
	Roll    int    `json:"roll"`
}

// OpponentRolledPayload never carries the value.
type OpponentRolledPayload struct {
	MatchID  string `json:"matchId"`
	PlayerID string `json:"playerId"`
}

type GameOverPayload struct {
	MatchID  string  `json:"matchId"`
	Result   Result  `json:"result"`
	WinnerID *string `json:"winnerId"`
	PlayerA  string  `json:"playerA"`
	PlayerB  string  `json:"playerB"`
	RollA    *int    `json:"rollA"`
	RollB    *int    `json:"rollB"`
	Payout   int64   `json:"payout"`
	Fee      int64   `json:"fee"`
}

type CancelledPayload struct {
	Removed bool `json:"removed"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	MatchID string `json:"matchId,omitempty"`
}
