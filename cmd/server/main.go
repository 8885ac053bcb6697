// Command server serves the board's static assets and its runtime configuration.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rylogix/VentBoard/internal/config"
	"github.com/Rylogix/VentBoard/internal/database"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/server"

	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := observability.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to set log level: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(cfg.TracingConfig())
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	if msg := cfg.GatewayConfigError(); msg != "" {
		observability.Logger.Warn("serving without gateway configuration", "reason", msg)
	}

	// Only the local gateway owns a database; the health check reports on it.
	var db *gorm.DB
	if cfg.Gateway == config.GatewayLocal {
		db, err = database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}

	srv := server.NewServer(cfg, db)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if db != nil {
			if err := database.Close(db); err != nil {
				log.Printf("Database close error: %v", err)
			}
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("Tracing shutdown error: %v", err)
		}
	}()

	log.Printf("Confession Board running at http://localhost:%s", cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}
