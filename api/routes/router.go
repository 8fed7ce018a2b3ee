package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valkyrie-fleet/srp-backend/api/controllers"
	"github.com/valkyrie-fleet/srp-backend/api/middleware"
	"github.com/valkyrie-fleet/srp-backend/internal/divisions"
	"github.com/valkyrie-fleet/srp-backend/internal/modifiers"
	"github.com/valkyrie-fleet/srp-backend/internal/pilots"
	"github.com/valkyrie-fleet/srp-backend/internal/requests"
	"github.com/valkyrie-fleet/srp-backend/internal/users"
	"github.com/valkyrie-fleet/srp-backend/pkg/config"
	"github.com/valkyrie-fleet/srp-backend/pkg/logger"
)

// Dependencies carries everything the router wires into its handlers.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      controllers.Pinger
	UserLoader middleware.UserLoader
	Limiter    middleware.RateLimiter
	Registry   prometheus.Gatherer

	Requests  requests.Service
	Modifiers modifiers.Service
	Divisions divisions.Service
	Pilots    pilots.Service
	Users     users.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.RateLimit(cfg.RateLimit, deps.Limiter, logg),
			middleware.Auth(cfg.JWT, deps.UserLoader, logg),
		)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.SubmitRequest(deps.Requests, logg))
			r.Get("/", controllers.ListRequests(deps.Requests, logg))
			r.Get("/{requestId}", controllers.GetRequest(deps.Requests, logg))
			r.Post("/{requestId}/actions", controllers.ActOnRequest(deps.Requests, logg))
			r.Put("/{requestId}/payout", controllers.SetBasePayout(deps.Requests, logg))
			r.Put("/{requestId}/division", controllers.ChangeRequestDivision(deps.Requests, logg))
			r.Post("/{requestId}/modifiers", controllers.AddModifier(deps.Modifiers, logg))
		})

		r.Route("/modifiers", func(r chi.Router) {
			r.Post("/{modifierId}/void", controllers.VoidModifier(deps.Modifiers, logg))
			r.Post("/{modifierId}/unvoid", controllers.UnvoidModifier(deps.Modifiers, logg))
		})

		r.Route("/divisions", func(r chi.Router) {
			r.Post("/", controllers.CreateDivision(deps.Divisions, logg))
			r.Get("/", controllers.ListDivisions(deps.Divisions, logg))
			r.Get("/{divisionId}", controllers.GetDivision(deps.Divisions, logg))
			r.Put("/{divisionId}/permissions", controllers.GrantDivisionPermission(deps.Divisions, logg))
			r.Delete("/{divisionId}/permissions", controllers.RevokeDivisionPermission(deps.Divisions, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.Me(deps.Users, logg))
			r.Get("/me/pilots", controllers.ListMyPilots(deps.Pilots, logg))
			r.Post("/me/pilots", controllers.ClaimPilot(deps.Pilots, logg))
		})
	})

	return r
}
