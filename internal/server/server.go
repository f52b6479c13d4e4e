// Package server assembles the HTTP surface from the component handlers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libretto/internal/accounts"
	"libretto/internal/auth"
	"libretto/internal/borrowing"
	"libretto/internal/catalog"
	"libretto/internal/config"
	"libretto/internal/observability"
)

// Deps are the wired components the router is built from.
type Deps struct {
	Config    *config.Config
	Tokens    *auth.TokenManager
	Accounts  accounts.Service
	Catalog   catalog.Service
	Borrowing borrowing.Service
}

// New builds the full API router.
func New(deps Deps) http.Handler {
	accountsHandler := accounts.NewHandler(deps.Accounts, deps.Tokens)
	catalogHandler := catalog.NewHandler(deps.Catalog, deps.Config.AnonymousCatalogRead)
	borrowingHandler := borrowing.NewHandler(deps.Borrowing, deps.Config.DailyFine)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware())
	r.Use(auth.Authenticate(deps.Tokens))

	r.Route("/auth", accountsHandler.AuthRoutes)
	r.Route("/accounts", accountsHandler.Routes)
	r.Route("/library", catalogHandler.Routes)
	r.Route("/borrowings", borrowingHandler.Routes)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
