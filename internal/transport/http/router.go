// Package httptransport assembles the HTTP surface: middleware chain, domain
// handlers, health and metrics endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "equitygate/internal/auth/handler"
	authmw "equitygate/internal/auth/middleware"
	companyhandler "equitygate/internal/company/handler"
	disclosurehandler "equitygate/internal/disclosure/handler"
	investmenthandler "equitygate/internal/investment/handler"
	"equitygate/pkg/platform/middleware/metadata"
	"equitygate/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger        *slog.Logger
	Authenticator *authmw.Authenticator
	Auth          *authhandler.Handler
	Companies     *companyhandler.Handler
	Disclosures   *disclosurehandler.Handler
	Investments   *investmenthandler.Handler
	Audit         *AuditHandler
	Health        func() error
}

// NewRouter builds the full route tree. Client metadata and request time run
// for every request; authentication wraps the API group only.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())
	deps.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(deps.Authenticator.RequireAuth)
		deps.Companies.Register(r)
		deps.Disclosures.Register(r)
		deps.Investments.Register(r)
		deps.Audit.Register(r)
	})

	return r
}

func handleHealth(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
