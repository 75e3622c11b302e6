package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/rs/cors"

	"github.com/workbenchapp/worknet-proposer/internal/api/handler"
	"github.com/workbenchapp/worknet-proposer/internal/api/middleware"
	"github.com/workbenchapp/worknet-proposer/internal/service"
	"github.com/workbenchapp/worknet-proposer/internal/storage"
)

// Options configures the router.
type Options struct {
	BootstrapKey string
	CORSOrigins  []string
	Logger       logr.Logger
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(store storage.Storage, svc *service.WorkgroupService, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(store, opts.BootstrapKey))

		// API Keys
		keyHandler := handler.NewAPIKeyHandler(store)
		r.Post("/keys", keyHandler.Create)
		r.Get("/keys", keyHandler.List)
		r.Delete("/keys/{id}", keyHandler.Delete)

		// Work groups
		groupHandler := handler.NewWorkgroupHandler(svc)
		r.Post("/workgroups", groupHandler.Create)

		r.Route("/workgroups/{id}", func(r chi.Router) {
			r.Get("/", groupHandler.Get)
			r.Delete("/", groupHandler.Close)

			// Devices
			deviceHandler := handler.NewDeviceHandler(svc)
			r.Get("/devices", deviceHandler.List)
			r.Post("/devices", deviceHandler.Register)
			r.Delete("/devices/{authority}", deviceHandler.Close)

			// Specs
			specHandler := handler.NewSpecHandler(svc)
			r.Get("/specs", specHandler.List)
			r.Post("/specs", specHandler.Create)
			r.Delete("/specs/{name}", specHandler.Close)

			// Deployments
			deploymentHandler := handler.NewDeploymentHandler(svc)
			r.Get("/deployments", deploymentHandler.List)
			r.Post("/deployments", deploymentHandler.Create)
			r.Delete("/deployments/{name}", deploymentHandler.Close)
			r.Post("/deployments/{name}/schedule", deploymentHandler.Schedule)
		})

		// Proposer
		proposerHandler := handler.NewProposerHandler(svc)
		r.Get("/proposer", proposerHandler.Get)

		// Submission journal
		submissionHandler := handler.NewSubmissionHandler(store)
		r.Get("/submissions", submissionHandler.List)
		r.Get("/submissions/{id}", submissionHandler.Get)

		// Device agent
		agentHandler := handler.NewAgentHandler(svc.Agent())
		r.Get("/agent/device", agentHandler.Device)
		r.Get("/agent/wireguard", agentHandler.WireGuard)
		r.Get("/agent/endpoints", agentHandler.Endpoints)
	})

	return r
}
