package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"dice-duel/internal/broker"
	"dice-duel/internal/config"
	"dice-duel/internal/logging"
	"dice-duel/internal/match"
	"dice-duel/internal/store"
	httptransport "dice-duel/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.AppConfig) error {
	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return err
	}
	if err := seedPlayers(ctx, st, cfg.Server.SeedPlayers, cfg.Server.SeedBalanceCC); err != nil {
		return err
	}

	var observer match.LifecycleObserver
	if cfg.Server.NATSURL != "" {
		nc, err := broker.Connect(cfg.Server.NATSURL, cfg.Log.Service)
		if err != nil {
			return err
		}
		defer nc.Close()
		b := broker.New(nc, cfg.Server.NATSSubject, 0)
		brokerCtx, stopBroker := context.WithCancel(ctx)
		b.Start(brokerCtx)
		defer func() {
			stopBroker()
			<-b.Done()
			_ = nc.Flush()
		}()
		observer = b
		log.Info().Str("url", cfg.Server.NATSURL).Str("subject", cfg.Server.NATSSubject).Msg("nats publishing enabled")
	}

	a := newApp(st, cfg, observer)
	httptransport.LogRoutes(a.router)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func seedPlayers(ctx context.Context, st *store.Store, players []string, balance int64) error {
	for _, p := range players {
		if p == "" {
			continue
		}
		if err := st.EnsureAccount(ctx, p, balance); err != nil {
			return err
		}
		log.Info().Str("player_id", p).Int64("balance", balance).Msg("seeded account")
	}
	return nil
}
