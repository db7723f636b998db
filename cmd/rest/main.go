package main

import (
	"context"
	"log"

	"derm-triage-be/internal/bootstrap"
	"derm-triage-be/internal/config"
	"derm-triage-be/internal/entity"
	"derm-triage-be/internal/server"
	"derm-triage-be/internal/tracer"
	"derm-triage-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional; memory-only mode without a DSN)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		if err := db.AutoMigrate(&entity.CaseRecord{}, &entity.ReferenceCase{}); err != nil {
			log.Panicf("Unable to migrate schema: %v", err)
		}
		gormDB = db
	} else {
		log.Println("No database configured, case records will not be persisted")
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Case Indexing Consumer...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
