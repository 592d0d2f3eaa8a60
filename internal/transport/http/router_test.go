package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dice-duel/internal/config"
	"dice-duel/internal/ledger"
	"dice-duel/internal/match"
	"dice-duel/internal/store"
	"dice-duel/internal/testutil"
)

type fakeStore struct {
	pingErr     error
	accounts    map[string]int64
	matches     []store.MatchRecord
	recons      []store.Reconciliation
	lastFilter  store.MatchFilter
	lastLedger  store.LedgerFilter
	resolvedIDs []string
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) EnsureAccount(_ context.Context, playerID string, initial int64) error {
	if _, ok := f.accounts[playerID]; !ok {
		f.accounts[playerID] = initial
	}
	return nil
}

func (f *fakeStore) ListAccounts(_ context.Context, _ string, _, _ int) ([]store.Account, error) {
	out := []store.Account{}
	for p, b := range f.accounts {
		out = append(out, store.Account{PlayerID: p, BalanceCC: b})
	}
	return out, nil
}

func (f *fakeStore) ListLedgerEntries(_ context.Context, lf store.LedgerFilter, _, _ int) ([]store.LedgerEntry, error) {
	f.lastLedger = lf
	return []store.LedgerEntry{}, nil
}

func (f *fakeStore) GetMatch(_ context.Context, id string) (*store.MatchRecord, error) {
	for i := range f.matches {
		if f.matches[i].ID == id {
			return &f.matches[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListMatches(_ context.Context, mf store.MatchFilter, _, _ int) ([]store.MatchRecord, error) {
	f.lastFilter = mf
	return f.matches, nil
}

func (f *fakeStore) ListReconciliations(_ context.Context, _ bool, _, _ int) ([]store.Reconciliation, error) {
	return f.recons, nil
}

func (f *fakeStore) ResolveReconciliation(_ context.Context, id string) error {
	for _, r := range f.recons {
		if r.ID == id {
			f.resolvedIDs = append(f.resolvedIDs, id)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeTopup struct {
	store *fakeStore
	err   error
}

func (f *fakeTopup) Topup(_ context.Context, playerID string, amount int64, _ string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.store.accounts[playerID] += amount
	return f.store.accounts[playerID], nil
}

type discard struct{}

func (discard) Notify([]string, string, any) {}

type routerEnv struct {
	store *fakeStore
	topup *fakeTopup
	mem   *ledger.Memory
	coord *match.Coordinator
	cfg   config.ServerConfig
	r     http.Handler
}

func newRouterEnv(t *testing.T, cfg config.ServerConfig) *routerEnv {
	t.Helper()
	st := &fakeStore{accounts: map[string]int64{}}
	mem := ledger.NewMemory()
	led := ledger.New(mem, time.Second)
	coord := match.NewCoordinator(led, discard{}, match.NewManager(led, discard{}, match.ManagerConfig{}))
	top := &fakeTopup{store: st}
	ws := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	r := NewRouter(Deps{Store: st, Ledger: top, Lobby: coord, WS: ws, Config: cfg})
	return &routerEnv{store: st, topup: top, mem: mem, coord: coord, cfg: cfg, r: r}
}

func (e *routerEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	if w := env.do(http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	env.store.pingErr = errors.New("down")
	if w := env.do(http.MethodGet, "/healthz", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{AdminAPIKey: "admin-key"})

	routes := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/admin/accounts", ""},
		{http.MethodGet, "/api/admin/ledger", ""},
		{http.MethodPost, "/api/admin/topup", `{"player_id":"x","amount_cc":10}`},
		{http.MethodGet, "/api/admin/reconciliations", ""},
		{http.MethodPost, "/api/admin/reconciliations/r1/resolve", ""},
		{http.MethodGet, "/api/admin/debug/vars", ""},
	}
	for _, rt := range routes {
		if w := env.do(rt.method, rt.path, rt.body, nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s expected 401, got %d", rt.method, rt.path, w.Code)
		}
	}

	if w := env.do(http.MethodGet, "/api/admin/accounts", "", http.Header{"X-Admin-Key": {"admin-key"}}); w.Code != http.StatusOK {
		t.Fatalf("X-Admin-Key expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/admin/debug/vars", "", http.Header{"Authorization": {"Bearer admin-key"}}); w.Code != http.StatusOK {
		t.Fatalf("bearer expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/admin/accounts", "", http.Header{"X-Admin-Key": {"wrong"}}); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key expected 401, got %d", w.Code)
	}
}

func TestTopup(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})

	bad := []string{`not json`, `{"player_id":"","amount_cc":10}`, `{"player_id":"alice","amount_cc":0}`}
	for _, body := range bad {
		if w := env.do(http.MethodPost, "/api/admin/topup", body, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q expected 400, got %d", body, w.Code)
		}
	}

	w := env.do(http.MethodPost, "/api/admin/topup", `{"player_id":"alice","amount_cc":250}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK        bool   `json:"ok"`
		BalanceCC int64  `json:"balance_cc"`
		RefID     string `json:"ref_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.BalanceCC != 250 || resp.RefID == "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	env.topup.err = ledger.ErrLedger
	if w := env.do(http.MethodPost, "/api/admin/topup", `{"player_id":"alice","amount_cc":1}`, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ledger failure expected 503, got %d", w.Code)
	}
}

func TestReconciliationResolve(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	env.store.recons = []store.Reconciliation{{ID: "r1", MatchID: "m1", PlayerID: "alice", AmountCC: 20}}

	if w := env.do(http.MethodPost, "/api/admin/reconciliations/r1/resolve", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/admin/reconciliations/nope/resolve", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if len(env.store.resolvedIDs) != 1 || env.store.resolvedIDs[0] != "r1" {
		t.Fatalf("unexpected resolved ids %v", env.store.resolvedIDs)
	}
}

func TestPublicQueuesAndLive(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	env.mem.Seed("alice", 100)
	env.coord.Connect("c1")
	if err := env.coord.FindMatch(context.Background(), "c1", match.FindMatchRequest{GameType: "dice", Stake: 10, PlayerID: "alice"}); err != nil {
		t.Fatalf("find match: %v", err)
	}

	w := env.do(http.MethodGet, "/api/public/queues", "", nil)
	var queues struct {
		Items []match.BucketDepth `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &queues); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(queues.Items) != 1 || queues.Items[0].Waiting != 1 || queues.Items[0].Stake != 10 {
		t.Fatalf("unexpected queues %+v", queues.Items)
	}

	w = env.do(http.MethodGet, "/api/public/live", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"live":0`)) {
		t.Fatalf("unexpected live response %d %s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodGet, "/api/public/live/unknown", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPublicMatches(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	env.store.matches = []store.MatchRecord{{ID: "m1", PlayerA: "alice", PlayerB: "bob", Result: "win", WinnerID: "alice"}}

	w := env.do(http.MethodGet, "/api/public/matches?player_id=alice", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if env.store.lastFilter.PlayerID != "alice" {
		t.Fatalf("player filter not applied: %+v", env.store.lastFilter)
	}
	if w := env.do(http.MethodGet, "/api/public/matches/m1", "", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/public/matches/m2", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestLedgerFilterFromQuery(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{})
	w := env.do(http.MethodGet, "/api/admin/ledger?player_id=bob&match_id=m9&from=2026-01-02T03:04:05Z", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	f := env.store.lastLedger
	if f.PlayerID != "bob" || f.RefID != "m9" || f.From == nil || f.To != nil {
		t.Fatalf("unexpected filter %+v", f)
	}
}

func TestWSRateLimited(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{WSRateLimit: 1})
	if w := env.do(http.MethodGet, "/ws", "", nil); w.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/ws", "", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newRouterEnv(t, config.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}})
	w := env.do(http.MethodOptions, "/api/public/queues", "", http.Header{
		"Origin":                        {"http://localhost:5173"},
		"Access-Control-Request-Method": {http.MethodGet},
	})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query              string
		wantLimit, wantOff int
	}{
		{"", 50, 0},
		{"?limit=10&offset=5", 10, 5},
		{"?limit=0&offset=-3", 1, 0},
		{"?limit=9999", 500, 0},
		{"?limit=abc", 50, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
		limit, offset := ParsePagination(req)
		if limit != tc.wantLimit || offset != tc.wantOff {
			t.Fatalf("%q: got %d/%d, want %d/%d", tc.query, limit, offset, tc.wantLimit, tc.wantOff)
		}
	}
}

func TestTopupAgainstPostgres(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	led := ledger.New(st, time.Second)
	coord := match.NewCoordinator(led, discard{}, match.NewManager(led, discard{}, match.ManagerConfig{}))
	r := NewRouter(Deps{Store: st, Ledger: led, Lobby: coord, Config: config.ServerConfig{}})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/topup", bytes.NewBufferString(`{"player_id":"dora","amount_cc":40}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("topup expected 200, got %d: %s", w.Code, w.Body.String())
	}

	bal, err := st.GetAccountBalance(context.Background(), "dora")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 40 {
		t.Fatalf("expected 40, got %d", bal)
	}
}
