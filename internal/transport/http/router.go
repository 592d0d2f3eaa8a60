package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"dice-duel/internal/config"
)

type Deps struct {
	Store  Store
	Ledger Topupper
	Lobby  Lobby
	WS     http.HandlerFunc
	Config config.ServerConfig
}

func NewRouter(d Deps) *chi.Mux {
	publicHandlers := NewPublicHandlers(d.Store, d.Lobby)
	adminHandlers := NewAdminHandlers(d.Store, d.Ledger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())

	if d.WS != nil {
		limit := d.Config.WSRateLimit
		if limit <= 0 {
			limit = 60
		}
		r.With(httprate.LimitByIP(limit, time.Minute)).Get("/ws", d.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.Config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Admin-Key"},
			MaxAge:         300,
		}))
		r.Use(APILogMiddleware())

		r.Get("/public/queues", publicHandlers.Queues())
		r.Get("/public/live", publicHandlers.Live())
		r.Get("/public/live/{match_id}", publicHandlers.LiveMatch())
		r.Get("/public/matches", publicHandlers.Matches())
		r.Get("/public/matches/{match_id}", publicHandlers.Match())

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Get("/accounts", adminHandlers.Accounts())
			r.Get("/ledger", adminHandlers.Ledger())
			r.With(BodyCaptureMiddleware(4096)).Post("/topup", adminHandlers.Topup())
			r.Get("/reconciliations", adminHandlers.Reconciliations())
			r.Post("/reconciliations/{reconciliation_id}/resolve", adminHandlers.ResolveReconciliation())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
