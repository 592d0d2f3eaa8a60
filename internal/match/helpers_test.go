package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dice-duel/internal/ledger"
	"dice-duel/internal/store"
)

type sentEvent struct {
	Conn    string
	Type    string
	Payload any
}

type eventLog struct {
	mu     sync.Mutex
	events []sentEvent
}

func (l *eventLog) Notify(conns []string, event string, payload any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range conns {
		l.events = append(l.events, sentEvent{Conn: c, Type: event, Payload: payload})
	}
}

func (l *eventLog) of(conn string) []sentEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []sentEvent
	for _, e := range l.events {
		if e.Conn == conn {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) types(conn string) []string {
	var out []string
	for _, e := range l.of(conn) {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) last(conn, typ string) (sentEvent, bool) {
	events := l.of(conn)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ {
			return events[i], true
		}
	}
	return sentEvent{}, false
}

// flakyLedger fails chosen calls for chosen players.
type flakyLedger struct {
	*ledger.Ledger
	mu          sync.Mutex
	failDebit   map[string]error
	failCredit  map[string]error
	creditCalls int

	// When set, Debit for blockPlayer signals entered and waits on release.
	blockPlayer string
	entered     chan struct{}
	release     chan struct{}
}

func (f *flakyLedger) Debit(ctx context.Context, playerID string, amount int64, entryType, matchID string) (int64, error) {
	f.mu.Lock()
	err := f.failDebit[playerID]
	block := f.blockPlayer != "" && f.blockPlayer == playerID
	f.mu.Unlock()
	if block {
		f.entered <- struct{}{}
		<-f.release
	}
	if err != nil {
		return 0, err
	}
	return f.Ledger.Debit(ctx, playerID, amount, entryType, matchID)
}

func (f *flakyLedger) Credit(ctx context.Context, playerID string, amount int64, entryType, matchID string) (int64, error) {
	f.mu.Lock()
	f.creditCalls++
	err := f.failCredit[playerID]
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Ledger.Credit(ctx, playerID, amount, entryType, matchID)
}

type memoryHistory struct {
	mu      sync.Mutex
	matches []store.MatchRecord
	recons  []store.Reconciliation
}

func (h *memoryHistory) InsertMatch(_ context.Context, m store.MatchRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.matches = append(h.matches, m)
	return nil
}

func (h *memoryHistory) InsertReconciliation(_ context.Context, r store.Reconciliation) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.ID = store.NewID()
	h.recons = append(h.recons, r)
	return r.ID, nil
}

type harness struct {
	t       *testing.T
	mem     *ledger.Memory
	ledger  *flakyLedger
	events  *eventLog
	history *memoryHistory
	mgr     *Manager
	coord   *Coordinator
}

func newHarness(t *testing.T, roller Roller, feeRate float64, balances map[string]int64) *harness {
	t.Helper()
	mem := ledger.NewMemory()
	for p, b := range balances {
		mem.Seed(p, b)
	}
	led := &flakyLedger{
		Ledger:     ledger.New(mem, time.Second),
		failDebit:  map[string]error{},
		failCredit: map[string]error{},
	}
	events := &eventLog{}
	history := &memoryHistory{}
	mgr := NewManager(led, events, ManagerConfig{
		FeeRate:         feeRate,
		Roller:          roller,
		History:         history,
		Reconciliations: history,
	})
	coord := NewCoordinator(led, events, mgr)
	return &harness{t: t, mem: mem, ledger: led, events: events, history: history, mgr: mgr, coord: coord}
}

func (h *harness) find(conn, player string, stake int64) error {
	h.coord.Connect(conn)
	return h.coord.FindMatch(context.Background(), conn, FindMatchRequest{GameType: "dice", Stake: stake, PlayerID: player})
}

func (h *harness) mustFind(conn, player string, stake int64) {
	h.t.Helper()
	require.NoError(h.t, h.find(conn, player, stake))
}

func (h *harness) matchID(conn string) string {
	h.t.Helper()
	e, ok := h.events.last(conn, EventGameStart)
	require.True(h.t, ok, "no GAME_START for %s", conn)
	return e.Payload.(GameStartPayload).MatchID
}

func (h *harness) roll(conn, matchID string) error {
	return h.coord.RollDice(context.Background(), conn, RollDiceRequest{MatchID: matchID})
}

func (h *harness) balance(player string) int64 {
	h.t.Helper()
	bal, err := h.mem.GetAccountBalance(context.Background(), player)
	require.NoError(h.t, err)
	return bal
}

func (h *harness) gameOver(conn string) GameOverPayload {
	h.t.Helper()
	e, ok := h.events.last(conn, EventGameOver)
	require.True(h.t, ok, "no GAME_OVER for %s", conn)
	return e.Payload.(GameOverPayload)
}

func (h *harness) lastError(conn string) ErrorPayload {
	h.t.Helper()
	e, ok := h.events.last(conn, EventError)
	require.True(h.t, ok, "no ERROR for %s", conn)
	return e.Payload.(ErrorPayload)
}
