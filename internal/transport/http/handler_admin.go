package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"dice-duel/internal/ledger"
	"dice-duel/internal/store"
)

// Store is the read and admin surface of store.Store.
type Store interface {
	Ping(ctx context.Context) error
	EnsureAccount(ctx context.Context, playerID string, initial int64) error
	ListAccounts(ctx context.Context, playerID string, limit, offset int) ([]store.Account, error)
	ListLedgerEntries(ctx context.Context, f store.LedgerFilter, limit, offset int) ([]store.LedgerEntry, error)
	GetMatch(ctx context.Context, id string) (*store.MatchRecord, error)
	ListMatches(ctx context.Context, f store.MatchFilter, limit, offset int) ([]store.MatchRecord, error)
	ListReconciliations(ctx context.Context, openOnly bool, limit, offset int) ([]store.Reconciliation, error)
	ResolveReconciliation(ctx context.Context, id string) error
}

type Topupper interface {
	Topup(ctx context.Context, playerID string, amount int64, refID string) (int64, error)
}

type AdminHandlers struct {
	store    Store
	ledger   Topupper
	validate *validator.Validate
}

func NewAdminHandlers(st Store, led Topupper) *AdminHandlers {
	return &AdminHandlers{store: st, ledger: led, validate: validator.New()}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) Accounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.store.ListAccounts(r.Context(), r.URL.Query().Get("player_id"), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		q := r.URL.Query()
		f := store.LedgerFilter{PlayerID: q.Get("player_id"), RefID: q.Get("match_id")}
		if v := q.Get("from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.From = &t
			}
		}
		if v := q.Get("to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.To = &t
			}
		}
		items, err := h.store.ListLedgerEntries(r.Context(), f, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

type topupRequest struct {
	PlayerID string `json:"player_id" validate:"required,max=128"`
	AmountCC int64  `json:"amount_cc" validate:"gt=0"`
}

// Topup deposits funds, creating the account when it does not exist yet.
func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body topupRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.validate.Struct(body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricTopupTotal.Add(1)
		if err := h.store.EnsureAccount(r.Context(), body.PlayerID, 0); err != nil {
			metricTopupErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		refID := store.NewID()
		bal, err := h.ledger.Topup(r.Context(), body.PlayerID, body.AmountCC, refID)
		if err != nil {
			metricTopupErrors.Add(1)
			log.Error().Err(err).Str("player_id", body.PlayerID).Int64("amount", body.AmountCC).Msg("topup_failed")
			if errors.Is(err, ledger.ErrLedger) {
				WriteHTTPError(w, http.StatusServiceUnavailable, "ledger_error")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		log.Info().Str("player_id", body.PlayerID).Int64("amount", body.AmountCC).Str("ref_id", refID).Msg("topup")
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "balance_cc": bal, "ref_id": refID})
	}
}

// Reconciliations lists open items unless ?all=true.
func (h *AdminHandlers) Reconciliations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		openOnly := r.URL.Query().Get("all") != "true"
		items, err := h.store.ListReconciliations(r.Context(), openOnly, limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) ResolveReconciliation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "reconciliation_id")
		err := h.store.ResolveReconciliation(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			WriteHTTPError(w, http.StatusNotFound, "reconciliation_not_found")
		case err != nil:
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
		default:
			log.Info().Str("reconciliation_id", id).Msg("reconciliation_resolved")
			WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
		}
	}
}
