package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	adapthttp "bodycomp/internal/adapter/http"
	"bodycomp/internal/adapter/memory"
	"bodycomp/internal/adapter/postgres"
	"bodycomp/internal/adapter/sqlite"
	"bodycomp/internal/app"
	"bodycomp/internal/domain"
)

// store is everything main needs from a storage adapter.
type store interface {
	domain.WeightRepository
	domain.CompositionRepository
	domain.ProfileRepository
	domain.UserRepository
}

func main() {
	addr := env("ADDR", ":8080")
	historyLimit, err := strconv.Atoi(env("HISTORY_LIMIT", "200"))
	if err != nil || historyLimit <= 0 {
		log.Fatalf("HISTORY_LIMIT must be a positive integer")
	}

	db, sessions, closeDB := openStore()
	defer closeDB()

	records := app.NewRecordsService(db, db, db, historyLimit)
	defer records.Close()
	hist := app.NewHistoryService(records)
	defer hist.Close()

	oidcCfg, err := adapthttp.NewOIDCConfig(context.Background(),
		os.Getenv("OIDC_ISSUER"),
		os.Getenv("OIDC_CLIENT_ID"),
		os.Getenv("OIDC_CLIENT_SECRET"),
		os.Getenv("OIDC_REDIRECT_URL"),
	)
	if err != nil {
		log.Fatalf("oidc: %v", err)
	}
	if oidcCfg.Enabled {
		log.Printf("sso enabled")
	}

	srv := adapthttp.New(adapthttp.Services{
		Auth:      app.NewAuthService(db, sessions),
		Weight:    app.NewWeightService(db, records),
		Profile:   app.NewProfileService(db),
		Workflows: app.NewWorkflowService(records, time.Hour),
		History:   hist,
		Records:   records,
	}, oidcCfg)
	if os.Getenv("DISABLE_AUTH") == "1" {
		log.Printf("authentication disabled")
		srv = srv.WithoutAuth()
	}

	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// openStore picks postgres when DATABASE_URL is set, the in-memory store
// when STORE=memory, and sqlite otherwise.
func openStore() (store, domain.SessionRepository, func()) {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		db, err := postgres.Open(connStr)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		log.Printf("store: postgres")
		return db, postgres.NewSessionRepo(db), func() { _ = db.Close() }
	}
	if os.Getenv("STORE") == "memory" {
		db := memory.New()
		log.Printf("store: memory")
		return db, db.NewSessionRepo(), func() {}
	}
	path := env("SQLITE_PATH", "data/bodycomp.db")
	db, err := sqlite.Open(path)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	log.Printf("store: sqlite %s", path)
	return db, sqlite.NewSessionRepo(db), func() { _ = db.Close() }
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
