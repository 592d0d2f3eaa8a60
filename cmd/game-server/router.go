package main

import (
	"github.com/go-chi/chi/v5"

	"dice-duel/internal/config"
	"dice-duel/internal/dispatch"
	"dice-duel/internal/ledger"
	"dice-duel/internal/match"
	"dice-duel/internal/store"
	httptransport "dice-duel/internal/transport/http"
	"dice-duel/internal/ws"
)

type app struct {
	router *chi.Mux
	coord  *match.Coordinator
	ledger *ledger.Ledger
}

// newApp wires the match service on top of st. observer may be nil.
func newApp(st *store.Store, cfg config.AppConfig, observer match.LifecycleObserver) *app {
	led := ledger.New(st, cfg.Match.LedgerTimeout)
	disp := dispatch.New(cfg.Match.OutboxSize)
	mgr := match.NewManager(led, disp, match.ManagerConfig{
		FeeRate:         cfg.Match.FeeRate,
		Roller:          match.NewRoller(cfg.Match.DieFaces),
		History:         st,
		Reconciliations: st,
		Observer:        observer,
		StoreTimeout:    cfg.Match.LedgerTimeout,
	})
	coord := match.NewCoordinator(led, disp, mgr)
	wsServer := ws.NewServer(coord, disp, cfg.Server.CORSOrigins)

	r := httptransport.NewRouter(httptransport.Deps{
		Store:  st,
		Ledger: led,
		Lobby:  coord,
		WS:     wsServer.HandleWS,
		Config: cfg.Server,
	})
	return &app{router: r, coord: coord, ledger: led}
}
