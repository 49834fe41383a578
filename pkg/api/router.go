// Package api exposes the REST surface of the drive: authentication,
// the virtual filesystem routes, share management, public share access
// and operational endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/auth"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/handlers"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/middleware"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/lifecycle"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/metrics"
	promexport "github.com/Dreamer0iQ/0x40-cloud/pkg/metrics/prometheus"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/quota"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/share"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

// Dependencies bundles the services the router exposes.
type Dependencies struct {
	Catalog     *store.GORMStore
	Files       *lifecycle.Service
	Shares      *share.Service
	Quota       *quota.Service
	JWT         *auth.JWTService
	HTTPMetrics metrics.HTTPMetrics
}

// NewRouter creates and configures the chi router with all middleware
// and routes.
//
// Middleware order matters: request IDs and real client IPs are
// resolved first so the tracer, request logger and metrics see them;
// recovery wraps everything below it.
func NewRouter(config Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics(deps.HTTPMetrics))
	r.Use(chimiddleware.Recoverer)

	authHandler := handlers.NewAuthHandler(deps.Catalog, deps.JWT)
	filesHandler := handlers.NewFilesHandler(deps.Files, deps.Catalog)
	sharesHandler := handlers.NewSharesHandler(deps.Shares, config.BaseURL)
	publicHandler := handlers.NewPublicHandler(deps.Shares, deps.Files)
	statsHandler := handlers.NewStatsHandler(deps.Quota, deps.Catalog)
	healthHandler := handlers.NewHealthHandler(deps.Catalog)
	usersHandler := handlers.NewUsersHandler(deps.Catalog)

	// Operational routes, unauthenticated.
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})
	r.Method(http.MethodGet, "/metrics", promexport.Handler())

	// Public share access, unauthenticated.
	r.Route("/public/share/{token}", func(r chi.Router) {
		r.Get("/", publicHandler.Preview)
		r.Get("/download", publicHandler.Download)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(deps.JWT))
				r.Get("/me", authHandler.Me)
			})
		})

		// Everything below requires a valid access token. Streaming
		// routes (upload, download, archive) are registered outside the
		// request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(deps.JWT))

			r.Route("/files", func(r chi.Router) {
				r.Post("/upload", filesHandler.Upload)
				r.Get("/download-folder", filesHandler.DownloadFolder)
				r.Get("/{id}/download", filesHandler.Download)

				r.Group(func(r chi.Router) {
					r.Use(chimiddleware.Timeout(config.RequestTimeout))

					r.Get("/", filesHandler.List)
					r.Get("/recent", filesHandler.Recent)
					r.Get("/suggested", filesHandler.Suggested)
					r.Get("/starred", filesHandler.Starred)
					r.Get("/images", filesHandler.Images)
					r.Get("/trash", filesHandler.Trashed)
					r.Get("/search", filesHandler.Search)
					r.Get("/storage", statsHandler.Storage)

					r.Post("/folder", filesHandler.CreateFolder)
					r.Delete("/folder", filesHandler.DeleteFolder)
					r.Post("/folder/star", filesHandler.StarFolder)

					r.Patch("/{id}/rename", filesHandler.Rename)
					r.Patch("/{id}/move", filesHandler.Move)
					r.Post("/{id}/star", filesHandler.Star)
					r.Post("/{id}/restore", filesHandler.Restore)
					r.Delete("/{id}/permanent", filesHandler.PermanentDelete)
					r.Delete("/{id}", filesHandler.Trash)
				})
			})

			r.Route("/shares", func(r chi.Router) {
				r.Use(chimiddleware.Timeout(config.RequestTimeout))

				r.Post("/", sharesHandler.Create)
				r.Get("/", sharesHandler.List)
				r.Delete("/{token}", sharesHandler.Revoke)
			})

			r.Route("/admin/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Use(chimiddleware.Timeout(config.RequestTimeout))

				r.Get("/", usersHandler.List)
				r.Post("/", usersHandler.Create)
				r.Delete("/{username}", usersHandler.Delete)
				r.Patch("/{username}/quota", usersHandler.SetQuota)
			})
		})
	})

	return r
}
