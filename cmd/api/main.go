package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"filecatalog/internal/config"
	"filecatalog/internal/database"
	"filecatalog/internal/domain/file"
	"filecatalog/internal/realtime"
	"filecatalog/internal/server"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBConnectAttempts, cfg.DBConnectBackoff)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	if err := file.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	hub := realtime.NewHub()
	defer hub.Close()

	router, err := server.NewRouter(cfg, db, hub)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	if err := server.New(cfg, router).Run(ctx); err != nil {
		log.Printf("server: %v", err)
	}
}
