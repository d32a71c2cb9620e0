package main

import (
	"context"
	"log"

	"coax-rag-be/internal/bootstrap"
	"coax-rag-be/internal/config"
	"coax-rag-be/internal/server"
	"coax-rag-be/internal/tracer"
	"coax-rag-be/pkg/database"
)

func main() {
	// 1. Load and validate configuration. Missing credentials abort startup.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 3. Initialize database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap dependencies
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Run server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
