package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func NewRouter(d Deps) *chi.Mux {
	entries := NewEntryHandlers(d)
	admin := NewAdminHandlers(d)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", admin.Health())
	metricsPath := d.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Handle(metricsPath, promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/tournaments/{tournament_id}", entries.Tournament())
		r.With(PaymentRequiredMiddleware(d.Payments, entries.EntryPrice, d.now)).
			Post("/tournaments/{tournament_id}/entries", entries.Enter())

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminAPIKey))
			r.Post("/tournaments", admin.CreateTournament())
			r.Post("/tournaments/{tournament_id}/start", admin.StartTournament())
			r.Post("/tournaments/{tournament_id}/matches", admin.RecordMatch())
			r.Post("/tournaments/{tournament_id}/complete", admin.CompleteTournament())
			r.Post("/tournaments/{tournament_id}/settle", admin.Settle())
			r.Get("/tournaments/{tournament_id}/ledger", admin.Ledger())
			r.Get("/tournaments/{tournament_id}/payments", admin.Payments())
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	var routes []routeDef
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
	fmt.Fprintf(&b, "Registered routes (%d):\n", len(routes))
	for _, rt := range routes {
		fmt.Fprintf(&b, "  %-6s %s\n", rt.Method, rt.Path)
	}
	log.Info().Msg(b.String())
}
