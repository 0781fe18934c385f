package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/outbound-lab/internal/auth"
	"github.com/ignite/outbound-lab/internal/metrics"
)

// SetupRoutes configures all API routes. Health and Prometheus metrics are
// open; everything under /api requires an API key when an auth manager is
// provided.
func SetupRoutes(h *Handlers, authManager *auth.Manager, m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(metricsMiddleware(m))
		if authManager != nil {
			r.Use(authManager.RequireKey)
		}

		r.Route("/tests", func(r chi.Router) {
			r.Post("/", h.CreateTest)
			r.Get("/", h.ListTests)
			r.Route("/{testID}", func(r chi.Router) {
				r.Get("/", h.GetTest)
				r.Delete("/", h.DeleteTest)
				r.Get("/variants", h.ListTestVariants)
				r.Post("/variants", h.AddVariant)
				r.Get("/significance", h.GetSignificance)
				r.Get("/winner", h.GetWinner)
				r.Get("/report", h.GetTestReport)
				r.Get("/pick", h.PickVariant)
				r.Post("/pause", h.PauseTest)
				r.Post("/resume", h.ResumeTest)
				r.Post("/stop", h.StopTest)
				r.Post("/complete", h.CompleteTest)
			})
		})

		r.Route("/variants/{variantID}", func(r chi.Router) {
			r.Delete("/", h.DeleteVariant)
			r.Get("/sends", h.ListVariantSends)
		})

		r.Route("/sends", func(r chi.Router) {
			r.Post("/", h.TrackSend)
			r.Route("/{sendID}", func(r chi.Router) {
				r.Get("/", h.GetSend)
				r.Post("/open", h.TrackOpen)
				r.Post("/reply", h.TrackReply)
				r.Post("/bounce", h.TrackBounce)
			})
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.CreateCampaign)
			r.Get("/", h.ListCampaigns)
			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", h.GetCampaign)
				r.Delete("/", h.DeleteCampaign)
				r.Post("/activate", h.ActivateCampaign)
				r.Post("/complete", h.CompleteCampaign)
				r.Post("/refresh-stats", h.RefreshCampaignStats)
			})
		})

		r.Route("/prospects", func(r chi.Router) {
			r.Post("/", h.AddProspect)
			r.Get("/", h.ListProspects)
			r.Get("/lookup", h.FindProspect)
			r.Post("/import", h.ImportProspects)
			r.Route("/{prospectID}", func(r chi.Router) {
				r.Get("/", h.GetProspect)
				r.Delete("/", h.DeleteProspect)
			})
		})

		r.Route("/lifecycle", func(r chi.Router) {
			r.Post("/archive-sweep", h.ArchiveSweep)
			r.Post("/purge-bounced", h.PurgeBouncedSends)
		})
	})

	return r
}
