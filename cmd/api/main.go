package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"milstock.org/internal/auth"
	"milstock.org/internal/config"
	"milstock.org/internal/httpapi"
	"milstock.org/internal/inventory"
	"milstock.org/internal/obs"
	"milstock.org/internal/store/pg"
	"milstock.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		inv        inventory.Store
		identities auth.IdentityStore
		probe      httpapi.ReadyProbe
		pgStore    *pg.Store
	)
	if cfg.PGDSN != "" {
		pgStore, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pg.Migrate(ctx, pgStore.DB()); err != nil {
			cancel()
			log.Fatalf("migrate: %v", err)
		}
		cancel()
		inv = pgStore
		identities = pgStore.Identities()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		inv = inventory.NewInMemory()
		identities = auth.NewInMemoryIdentities()
	}

	accounts, err := auth.NewService(identities)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	opts := []httpapi.Option{
		httpapi.WithCORSOrigins(cfg.CORSOrigins),
		httpapi.WithReadyProbe(probe),
	}
	if cfg.AuthEnabled() {
		tokens, err := auth.NewTokens(cfg.AuthSecret, auth.WithTTL(cfg.TokenTTL))
		if err != nil {
			log.Fatalf("tokens: %v", err)
		}
		opts = append(opts, httpapi.WithTokens(tokens))
	}

	api := httpapi.New(accounts, inv, stream.New(), version, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting milstock-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
