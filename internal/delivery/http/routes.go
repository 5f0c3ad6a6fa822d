package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/journal-portal/backend/internal/middleware"
)

func NewRouter(handler *Handler, authMiddleware *middleware.AuthMiddleware, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/auth/me", handler.GetCurrentUser)

			// Editor-only OJS sync routes
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.EditorOnly)

				r.Route("/journals/{journalId}/ojs", func(r chi.Router) {
					r.Post("/import", handler.StartImport)
					r.Get("/import/progress", handler.GetImportProgress)
					r.Get("/mappings", handler.ListMappings)
					r.Get("/mappings.xlsx", handler.ExportMappings)
				})
				r.Post("/submissions/{submissionId}/ojs/push", handler.PushSubmission)
			})
		})
	})

	return r
}
