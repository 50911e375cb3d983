package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/praisehq/praise/internal/auth"
	"github.com/praisehq/praise/internal/eventlog"
	"github.com/praisehq/praise/internal/observability"
	"github.com/praisehq/praise/internal/periods"
	"github.com/praisehq/praise/internal/praise"
	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/users"
	"github.com/praisehq/praise/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthService     *auth.Service
	AuthHandler     *auth.Handler
	PeriodsHandler  *periods.Handler
	PraiseHandler   *praise.Handler
	UsersHandler    *users.Handler
	SettingsHandler *settings.Handler
	EventLogHandler *eventlog.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		AuthService: params.AuthService,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/periods", params.PeriodsHandler.MountRoutes)
		r.Route("/praise", params.PraiseHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		if params.SettingsHandler != nil {
			r.Route("/periodsettings", params.SettingsHandler.MountRoutes)
		}
		if params.EventLogHandler != nil {
			r.Route("/eventlog", params.EventLogHandler.MountRoutes)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
