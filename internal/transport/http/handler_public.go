package httptransport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dice-duel/internal/match"
	"dice-duel/internal/store"
)

// Lobby exposes in-memory matchmaking state. match.Coordinator implements it.
type Lobby interface {
	Depths() []match.BucketDepth
	Live() int
	Lookup(matchID string) (match.SessionView, bool)
}

type PublicHandlers struct {
	store Store
	lobby Lobby
}

func NewPublicHandlers(st Store, lobby Lobby) *PublicHandlers {
	return &PublicHandlers{store: st, lobby: lobby}
}

func (h *PublicHandlers) Queues() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"items": h.lobby.Depths()})
	}
}

func (h *PublicHandlers) Live() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"live": h.lobby.Live()})
	}
}

func (h *PublicHandlers) LiveMatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := h.lobby.Lookup(chi.URLParam(r, "match_id"))
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "match_not_found")
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

func (h *PublicHandlers) Matches() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		metricHistoryQueries.Add(1)
		items, err := h.store.ListMatches(r.Context(), store.MatchFilter{PlayerID: r.URL.Query().Get("player_id")}, limit, offset)
		if err != nil {
			metricHistoryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *PublicHandlers) Match() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueries.Add(1)
		m, err := h.store.GetMatch(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "match_not_found")
				return
			}
			metricHistoryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		WriteJSON(w, http.StatusOK, m)
	}
}
