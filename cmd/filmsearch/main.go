package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filmsearch/filmsearch/internal/config"
	"github.com/filmsearch/filmsearch/internal/database"
	"github.com/filmsearch/filmsearch/internal/logger"
	"github.com/filmsearch/filmsearch/internal/server"
)

func main() {
	fmt.Println("=======================================")
	fmt.Println("  FilmSearch - Catalog & Community API ")
	fmt.Println("=======================================")

	configPath := os.Getenv("FILMSEARCH_CONFIG_PATH")
	if configPath == "" {
		if _, err := os.Stat("./filmsearch.yaml"); err == nil {
			configPath = "./filmsearch.yaml"
		}
	}

	if _, err := config.Load(configPath); err != nil {
		log.Printf("⚠️  Warning: Failed to load configuration from %s: %v", configPath, err)
		log.Printf("Using default configuration")
	} else if configPath != "" {
		log.Printf("✅ Configuration loaded from: %s", configPath)
	} else {
		log.Printf("✅ Using default configuration")
	}

	cfg := config.Get()
	logger.SetLevel(cfg.Logging.Level)

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	r := server.SetupRouter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\nShutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		if err := server.ShutdownEventBus(shutdownCtx); err != nil {
			log.Printf("Event bus shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("🚀 Starting FilmSearch server on %s:%d", cfg.Server.Host, cfg.Server.Port)
	err := srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}
