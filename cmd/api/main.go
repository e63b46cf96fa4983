package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trustcite/api/internal/app"
	"trustcite/api/internal/config"
	"trustcite/api/internal/docstore"
	"trustcite/api/internal/qa"
	"trustcite/api/internal/session"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var kv docstore.KV
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for document storage")
		redisKV, err := docstore.NewRedisKV(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		kv = redisKV
	} else {
		log.Printf("Using PostgreSQL for document storage")
		db, err := docstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := docstore.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		kv = docstore.NewPostgresKV(db)
	}

	docs := docstore.New(kv)
	defer docs.Close()

	if strings.TrimSpace(cfg.BackendURL) == "" {
		log.Printf("WARNING: TRUSTCITE_BACKEND_URL is not set; every ask will fail until it is configured")
	}

	client := qa.NewClient(cfg.BackendURL, cfg.AskTimeout)
	coordinator := qa.NewCoordinator(client)
	controller := session.New(docs, coordinator)

	service := app.New(cfg, controller, docs)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("TrustCite API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
