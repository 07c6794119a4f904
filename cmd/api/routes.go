package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
)

// NewRouter mounts every route. Everything except /healthz requires a bearer token.
func (d *Dependencies) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(
		interceptors.RequestID,
		interceptors.Recovery(d.Logger),
		interceptors.Logger(d.Logger),
		cors.New(cors.Options{
			AllowedOrigins:   d.Config.Server.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler,
		d.Metrics.Middleware,
	)

	r.Get("/healthz", d.health)

	r.Group(func(r chi.Router) {
		r.Use(interceptors.Auth(d.TokenManager), d.RateLimiter.Middleware)

		r.Get("/me", d.UserHandler.GetMe)

		r.Get("/profiles", d.LedgerHandler.ListProfiles)
		r.Post("/profiles", d.LedgerHandler.CreateProfile)
		r.Get("/accounts", d.LedgerHandler.ListAccounts)
		r.Post("/accounts", d.LedgerHandler.CreateAccount)
		r.Get("/categories", d.LedgerHandler.ListCategories)
		r.Post("/categories", d.LedgerHandler.CreateCategory)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", d.TransactionsHandler.List)
			r.Post("/", d.TransactionsHandler.Create)
			r.Get("/statistics", d.TransactionsHandler.Statistics)
			r.Get("/{id}", d.TransactionsHandler.Get)
			r.Put("/{id}", d.TransactionsHandler.Update)
			r.Delete("/{id}", d.TransactionsHandler.Delete)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", d.GoalsHandler.List)
			r.Post("/", d.GoalsHandler.Create)
			r.Get("/{id}", d.GoalsHandler.Get)
			r.Put("/{id}", d.GoalsHandler.Update)
			r.Delete("/{id}", d.GoalsHandler.Delete)
			r.Post("/{id}/contributions", d.GoalsHandler.Contribute)
		})

		r.Route("/ai-assistant", func(r chi.Router) {
			r.Post("/chat", d.AssistantHandler.Chat)
			r.Get("/conversations", d.AssistantHandler.ListConversations)
			r.Get("/conversations/{id}", d.AssistantHandler.GetConversation)
			r.Post("/reports", d.ReportsHandler.Generate)
			r.Get("/reports", d.ReportsHandler.List)
			r.Get("/reports/{id}", d.ReportsHandler.Get)
		})

		r.Get("/files/{id}", d.ReportsHandler.File)
	})

	return r
}

func (d *Dependencies) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := d.DB.Pool.Ping(ctx); err != nil {
		interceptors.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	interceptors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
