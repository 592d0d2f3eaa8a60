package match

import (
	"sync"
	"time"
)

type Participant struct {
	Player    string
	Conn      string
	Roll      *int
	Connected bool
}

// Session is one match. mu is held for every state transition, ledger calls
// included, so a session has a single writer at a time.
type Session struct {
	mu sync.Mutex

	ID        string
	Key       QueueKey
	Players   [2]Participant
	State     State
	Escrow    EscrowStatus
	StartedAt time.Time
}

// SessionView is a lock-free copy for read paths.
type SessionView struct {
	ID        string       `json:"match_id"`
	GameType  string       `json:"game_type"`
	Stake     int64        `json:"stake"`
	PlayerA   string       `json:"player_a"`
	PlayerB   string       `json:"player_b"`
	RolledA   bool         `json:"rolled_a"`
	RolledB   bool         `json:"rolled_b"`
	State     State        `json:"state"`
	Escrow    EscrowStatus `json:"escrow"`
	StartedAt time.Time    `json:"started_at"`
}

func newSession(id string, paired EnqueueResult, now time.Time) *Session {
	return &Session{
		ID:  id,
		Key: paired.Entry.Key,
		Players: [2]Participant{
			{Player: paired.Opponent.Player, Conn: paired.Opponent.Conn, Connected: true},
			{Player: paired.Entry.Player, Conn: paired.Entry.Conn, Connected: true},
		},
		State:     StatePendingEscrow,
		Escrow:    EscrowNone,
		StartedAt: now,
	}
}

func (s *Session) seatOf(conn string) int {
	for i := range s.Players {
		if s.Players[i].Conn == conn {
			return i
		}
	}
	return -1
}

// conns lists the participants still connected.
func (s *Session) conns() []string {
	out := make([]string, 0, 2)
	for _, p := range s.Players {
		if p.Connected {
			out = append(out, p.Conn)
		}
	}
	return out
}

func (s *Session) bothRolled() bool {
	return s.Players[0].Roll != nil && s.Players[1].Roll != nil
}

func (s *Session) view() SessionView {
	return SessionView{
		ID:        s.ID,
		GameType:  s.Key.GameType,
		Stake:     s.Key.Stake,
		PlayerA:   s.Players[0].Player,
		PlayerB:   s.Players[1].Player,
		RolledA:   s.Players[0].Roll != nil,
		RolledB:   s.Players[1].Roll != nil,
		State:     s.State,
		Escrow:    s.Escrow,
		StartedAt: s.StartedAt,
	}
}
