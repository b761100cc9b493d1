package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/httpapi"
	"sitedesk.org/internal/obs"
	"sitedesk.org/internal/registry"
	"sitedesk.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	obs.Init()

	addr := flag.String("addr", envOr("SITEDESK_ADDR", ":8080"), "listen address")
	flag.Parse()

	var (
		reg   registry.Service
		dir   auth.Directory
		probe httpapi.ReadyProbe
		store *pg.Store
	)
	if dsn := os.Getenv("SITEDESK_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		reg = store
		dir = store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		// No DSN: run on seeded in-memory state for local development.
		mem := registry.NewInMemory()
		if err := registry.SeedDemo(mem, envOr("SITEDESK_DEMO_PASSWORD", "reviewer123")); err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		reg = mem
		dir = mem
		log.Printf("SITEDESK_PG_DSN not set, serving in-memory demo data")
	}

	api := httpapi.New(probe, version, reg, dir)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting sitedesk-api %s on %s", version, srv.Addr)

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
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
