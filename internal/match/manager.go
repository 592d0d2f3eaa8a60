package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dice-duel/internal/ledger"
	"dice-duel/internal/store"
)

// Ledger is the account service the manager escrows and settles through.
type Ledger interface {
	Balance(ctx context.Context, playerID string) (int64, error)
	Debit(ctx context.Context, playerID string, amount int64, entryType, matchID string) (int64, error)
	Credit(ctx context.Context, playerID string, amount int64, entryType, matchID string) (int64, error)
}

// Notifier delivers an event to a set of connections without blocking.
type Notifier interface {
	Notify(conns []string, event string, payload any)
}

type ManagerConfig struct {
	FeeRate         float64
	Roller          Roller
	History         History
	Reconciliations ReconciliationSink
	Observer        LifecycleObserver
	// StoreTimeout bounds each history and reconciliation write.
	StoreTimeout time.Duration
}

const defaultStoreTimeout = 5 * time.Second

// Manager owns every live session.
type Manager struct {
	ledger   Ledger
	notifier Notifier
	roller   Roller
	feeBps   int64

	history  History
	recon    ReconciliationSink
	observer LifecycleObserver
	binder   MatchBinder

	storeTimeout time.Duration

	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	byMatch  map[string]*Session
	byPlayer map[string]*Session
	byConn   map[string]*Session
}

func NewManager(led Ledger, notifier Notifier, cfg ManagerConfig) *Manager {
	roller := cfg.Roller
	if roller == nil {
		roller = NewRoller(6)
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Manager{
		ledger:       led,
		notifier:     notifier,
		roller:       roller,
		feeBps:       FeeBasisPoints(cfg.FeeRate),
		history:      cfg.History,
		recon:        cfg.Reconciliations,
		observer:     cfg.Observer,
		storeTimeout: storeTimeout,
		now:          time.Now,
		newID:        store.NewID,
		byMatch:      map[string]*Session{},
		byPlayer:     map[string]*Session{},
		byConn:       map[string]*Session{},
	}
}

// Open escrows both stakes for a freshly paired couple and starts the match.
func (m *Manager) Open(ctx context.Context, paired EnqueueResult) (SessionView, error) {
	if !paired.Paired {
		return SessionView{}, fmt.Errorf("%w: entry is not paired", ErrInvalidRequest)
	}
	if stake := paired.Entry.Key.Stake; stake <= 0 || stake > MaxStake {
		return SessionView{}, fmt.Errorf("%w: stake %d out of range", ErrInvalidRequest, stake)
	}
	ctx = context.WithoutCancel(ctx)
	s := newSession(m.newID(), paired, m.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := m.register(s); err != nil {
		for i, p := range s.Players {
			if err.Live[i] {
				m.notifier.Notify([]string{p.Conn}, EventError, errorPayload(err, ""))
			}
		}
		return SessionView{}, err
	}

	if err := m.escrow(ctx, s); err != nil {
		escrowFailures.Add(1)
		s.State = StateClosed
		m.release(s)
		return SessionView{}, err
	}

	s.State = StateActive
	s.Escrow = EscrowHeld
	matchesStarted.Add(1)

	a, b := s.Players[0], s.Players[1]
	log.Info().
		Str("match_id", s.ID).
		Str("game_type", s.Key.GameType).
		Int64("stake", s.Key.Stake).
		Str("player_a", a.Player).
		Str("player_b", b.Player).
		Msg("match_started")

	m.notifier.Notify([]string{a.Conn}, EventGameStart, GameStartPayload{
		MatchID: s.ID, GameType: s.Key.GameType, Stake: s.Key.Stake, OpponentID: b.Player,
	})
	m.notifier.Notify([]string{b.Conn}, EventGameStart, GameStartPayload{
		MatchID: s.ID, GameType: s.Key.GameType, Stake: s.Key.Stake, OpponentID: a.Player,
	})
	if m.observer != nil {
		m.observer.OnMatchStarted(MatchStarted{
			MatchID: s.ID, GameType: s.Key.GameType, Stake: s.Key.Stake,
			PlayerA: a.Player, PlayerB: b.Player, StartedAt: s.StartedAt,
		})
	}
	return s.view(), nil
}

// PairingConflict rejects a pairing because one or both seats already hold a
// live match. Live is indexed by seat: 0 is the opponent, 1 the new entry.
type PairingConflict struct {
	Live [2]bool
}

func (e *PairingConflict) Error() string { return ErrAlreadyActive.Error() }
func (e *PairingConflict) Unwrap() error { return ErrAlreadyActive }

func (m *Manager) register(s *Session) *PairingConflict {
	m.mu.Lock()
	defer m.mu.Unlock()
	var conflict PairingConflict
	for i, p := range s.Players {
		_, playerLive := m.byPlayer[p.Player]
		_, connLive := m.byConn[p.Conn]
		conflict.Live[i] = playerLive || connLive
	}
	if s.Players[0].Player == s.Players[1].Player {
		conflict.Live = [2]bool{true, true}
	}
	if conflict.Live[0] || conflict.Live[1] {
		return &conflict
	}
	m.byMatch[s.ID] = s
	for _, p := range s.Players {
		m.byPlayer[p.Player] = s
		m.byConn[p.Conn] = s
		if m.binder != nil {
			m.binder.BindMatch(p.Conn, s.ID)
		}
	}
	sessionsLive.Set(int64(len(m.byMatch)))
	return nil
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byMatch[s.ID] != s {
		return
	}
	delete(m.byMatch, s.ID)
	for _, p := range s.Players {
		if m.byPlayer[p.Player] == s {
			delete(m.byPlayer, p.Player)
		}
		if m.byConn[p.Conn] == s {
			delete(m.byConn, p.Conn)
		}
		if m.binder != nil {
			m.binder.UnbindMatch(p.Conn, s.ID)
		}
	}
	sessionsLive.Set(int64(len(m.byMatch)))
}

// escrow debits A then B. On failure any successful debit is credited back
// and both connections get an ERROR.
func (m *Manager) escrow(ctx context.Context, s *Session) error {
	stake := s.Key.Stake
	failed := -1
	var failure error
	for i, p := range s.Players {
		if _, err := m.ledger.Debit(ctx, p.Player, stake, ledger.EntryEscrowDebit, s.ID); err != nil {
			failed, failure = i, err
			break
		}
	}
	if failed < 0 {
		return nil
	}

	log.Warn().Err(failure).
		Str("match_id", s.ID).
		Str("player_id", s.Players[failed].Player).
		Int64("stake", stake).
		Msg("escrow_failed")

	compensationFailed := false
	for i := 0; i < failed; i++ {
		p := s.Players[i]
		if _, err := m.ledger.Credit(ctx, p.Player, stake, ledger.EntryEscrowRefund, s.ID); err != nil {
			compensationFailed = true
			m.reconcile(ctx, s, Credit{PlayerID: p.Player, Amount: stake, EntryType: ledger.EntryEscrowRefund}, err)
		}
	}
	if compensationFailed {
		s.Escrow = EscrowStranded
		m.notifier.Notify(s.conns(), EventError, errorPayload(ErrReconciliationRequired, s.ID))
		return fmt.Errorf("%w: escrow refund failed: %w", ErrReconciliationRequired, failure)
	}
	s.Escrow = EscrowReleased

	loser := s.Players[failed]
	m.notifier.Notify([]string{loser.Conn}, EventError, errorPayload(failure, ""))
	otherErr := ErrOpponentUnfunded
	if !errors.Is(failure, ErrInsufficientFunds) {
		otherErr = ErrLedger
	}
	m.notifier.Notify([]string{s.Players[1-failed].Conn}, EventError, errorPayload(otherErr, ""))
	return failure
}

// Roll accepts the single roll a participant is allowed in an active match.
func (m *Manager) Roll(ctx context.Context, matchID, conn string) (int, error) {
	m.mu.Lock()
	s := m.byMatch[matchID]
	m.mu.Unlock()
	if s == nil {
		return 0, ErrMatchNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOf(conn)
	if seat < 0 {
		return 0, ErrNotParticipant
	}
	if s.State != StateActive {
		return 0, ErrMatchNotActive
	}
	if s.Players[seat].Roll != nil {
		return 0, ErrDuplicateRoll
	}

	v := m.roller.Roll()
	s.Players[seat].Roll = &v
	p := s.Players[seat]
	log.Debug().Str("match_id", s.ID).Str("player_id", p.Player).Int("roll", v).Msg("roll_accepted")

	m.notifier.Notify([]string{conn}, EventMyRoll, MyRollPayload{MatchID: s.ID, Roll: v})
	m.notifier.Notify(s.conns(), EventOpponentRolled, OpponentRolledPayload{MatchID: s.ID, PlayerID: p.Player})

	if s.bothRolled() {
		m.resolve(context.WithoutCancel(ctx), s)
	}
	return v, nil
}

func (m *Manager) resolve(ctx context.Context, s *Session) {
	s.State = StateResolving
	a, b := *s.Players[0].Roll, *s.Players[1].Roll
	switch {
	case a > b:
		m.settle(ctx, s, ResultWin, 0)
	case b > a:
		m.settle(ctx, s, ResultWin, 1)
	default:
		m.settle(ctx, s, ResultDraw, -1)
	}
}

// Forfeit handles a participant's connection going away. A participant who
// has not rolled in an active match loses it; one who already rolled leaves
// the match to resolve on the opponent's roll. Reports whether the match was
// forfeited.
func (m *Manager) Forfeit(ctx context.Context, conn string) bool {
	m.mu.Lock()
	s := m.byConn[conn]
	m.mu.Unlock()
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatOf(conn)
	if seat < 0 || s.State != StateActive {
		return false
	}
	s.Players[seat].Connected = false
	if s.Players[seat].Roll != nil {
		log.Info().Str("match_id", s.ID).Str("player_id", s.Players[seat].Player).Msg("rolled_player_disconnected")
		return false
	}

	s.State = StateResolving
	matchesForfeited.Add(1)
	log.Info().Str("match_id", s.ID).Str("player_id", s.Players[seat].Player).Msg("match_forfeited")
	m.settle(context.WithoutCancel(ctx), s, ResultForfeit, 1-seat)
	return true
}

// ConnectionClosed forfeits the connection's live match if it has one.
func (m *Manager) ConnectionClosed(ctx context.Context, conn, _ string) {
	m.Forfeit(ctx, conn)
}

// settle pays out and closes s. Caller holds s.mu with s in RESOLVING.
func (m *Manager) settle(ctx context.Context, s *Session, result Result, winnerSeat int) {
	a, b := s.Players[0], s.Players[1]
	winner := ""
	if winnerSeat >= 0 {
		winner = s.Players[winnerSeat].Player
	}
	st := ComputeSettlement(result, a.Player, b.Player, winner, s.Key.Stake, m.feeBps)

	failures := 0
	for _, c := range st.Credits {
		if _, err := m.ledger.Credit(ctx, c.PlayerID, c.Amount, c.EntryType, s.ID); err != nil {
			failures++
			m.reconcile(ctx, s, c, err)
		}
	}

	s.State = StateClosed
	status := "settled"
	if failures > 0 {
		s.Escrow = EscrowStranded
		status = "reconciliation_required"
	} else {
		s.Escrow = EscrowReleased
		matchesSettled.Add(1)
	}
	m.release(s)
	closedAt := m.now()

	log.Info().
		Str("match_id", s.ID).
		Str("result", string(st.Result)).
		Str("winner_id", st.WinnerID).
		Int64("pot", st.Pot).
		Int64("fee", st.Fee).
		Int64("credited", st.credited()).
		Str("status", status).
		Msg("match_closed")

	if failures > 0 {
		m.notifier.Notify(s.conns(), EventError, errorPayload(ErrReconciliationRequired, s.ID))
	} else {
		var winnerID *string
		if st.WinnerID != "" {
			w := st.WinnerID
			winnerID = &w
		}
		m.notifier.Notify(s.conns(), EventGameOver, GameOverPayload{
			MatchID:  s.ID,
			Result:   st.Result,
			WinnerID: winnerID,
			PlayerA:  a.Player,
			PlayerB:  b.Player,
			RollA:    a.Roll,
			RollB:    b.Roll,
			Payout:   st.Payout,
			Fee:      st.Fee,
		})
	}

	m.recordHistory(ctx, s, st, status, closedAt)

	if m.observer != nil {
		m.observer.OnMatchClosed(MatchClosed{
			MatchID: s.ID, GameType: s.Key.GameType, Stake: s.Key.Stake,
			Result: st.Result, WinnerID: st.WinnerID, Pot: st.Pot, Fee: st.Fee,
			Payout: st.Payout, Status: status, ClosedAt: closedAt,
		})
	}
}

func (m *Manager) reconcile(ctx context.Context, s *Session, c Credit, cause error) {
	reconciliationCount.Add(1)
	reason := cause.Error()
	log.Error().Err(cause).
		Str("match_id", s.ID).
		Str("player_id", c.PlayerID).
		Int64("amount", c.Amount).
		Str("entry_type", c.EntryType).
		Msg("reconciliation_required")

	if m.recon != nil {
		wctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
		defer cancel()
		id, err := m.recon.InsertReconciliation(wctx, store.Reconciliation{
			MatchID:   s.ID,
			PlayerID:  c.PlayerID,
			AmountCC:  c.Amount,
			EntryType: c.EntryType,
			Reason:    reason,
		})
		if err != nil {
			log.Error().Err(err).Str("match_id", s.ID).Str("player_id", c.PlayerID).Msg("reconciliation_persist_failed")
		} else {
			log.Info().Str("match_id", s.ID).Str("reconciliation_id", id).Msg("reconciliation_recorded")
		}
	}
	if m.observer != nil {
		m.observer.OnReconciliation(ReconciliationRequired{
			MatchID: s.ID, PlayerID: c.PlayerID, Amount: c.Amount, EntryType: c.EntryType, Reason: reason,
		})
	}
}

func (m *Manager) recordHistory(ctx context.Context, s *Session, st Settlement, status string, closedAt time.Time) {
	if m.history == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	err := m.history.InsertMatch(wctx, store.MatchRecord{
		ID:        s.ID,
		GameType:  s.Key.GameType,
		StakeCC:   s.Key.Stake,
		PlayerA:   s.Players[0].Player,
		PlayerB:   s.Players[1].Player,
		RollA:     s.Players[0].Roll,
		RollB:     s.Players[1].Roll,
		Result:    string(st.Result),
		WinnerID:  st.WinnerID,
		PotCC:     st.Pot,
		FeeCC:     st.Fee,
		Status:    status,
		StartedAt: s.StartedAt,
		ClosedAt:  closedAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("match_id", s.ID).Msg("match_history_write_failed")
	}
}

// Live reports the number of sessions not yet closed.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byMatch)
}

func (m *Manager) ActivePlayer(player string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byPlayer[player]
	return ok
}

func (m *Manager) ActiveConn(conn string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byConn[conn]
	return ok
}

func (m *Manager) Lookup(matchID string) (SessionView, bool) {
	m.mu.Lock()
	s := m.byMatch[matchID]
	m.mu.Unlock()
	if s == nil {
		return SessionView{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), true
}
