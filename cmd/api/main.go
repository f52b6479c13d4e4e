package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"libretto/internal/accounts"
	"libretto/internal/auth"
	"libretto/internal/borrowing"
	"libretto/internal/catalog"
	"libretto/internal/config"
	"libretto/internal/observability"
	"libretto/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	shutdownTracing, err := observability.Setup(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)

	handler := server.New(server.Deps{
		Config:    cfg,
		Tokens:    tokens,
		Accounts:  accounts.NewService(accounts.NewPostgresStore(db)),
		Catalog:   catalog.NewService(catalog.NewPostgresStore(db)),
		Borrowing: borrowing.NewService(borrowing.NewPostgresStore(db)),
	})

	log.Printf("API listening on %s", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, handler))
}
