package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(CORS(allowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", apiHandler.LoginHandler)
			r.Post("/signup", apiHandler.SignupHandler)
			r.Post("/update", apiHandler.UpdateHandler)
			r.Get("/user", apiHandler.UserHandler)
		})

		r.Post("/query", apiHandler.QueryHandler)
	})

	return r
}
