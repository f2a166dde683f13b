package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gridprep/adapters/dataservice"
	"gridprep/adapters/localstore"
	"gridprep/adapters/postgres"
	"gridprep/app"
	"gridprep/internal/config"
	"gridprep/internal/events"
	"gridprep/internal/migration"
	"gridprep/models"
	"gridprep/ports"
	"gridprep/ui"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("[Main] No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Configuration error: %v", err)
	}

	repo, err := buildRepository(cfg)
	if err != nil {
		log.Fatalf("[Main] Persistence setup failed: %v", err)
	}

	hub := events.NewHub()
	client := dataservice.NewClient(dataservice.Config{
		BaseURL:      cfg.DataService.BaseURL,
		Timeout:      cfg.DataService.Timeout,
		PollInterval: cfg.DataService.PollInterval,
		PollTimeout:  cfg.DataService.PollTimeout,
	})

	wizard := app.NewWizardService(client, repo, hub, cfg)
	wizard.OnComplete(func(result models.CompletionResult) {
		log.Printf("[Main] Wizard session %s completed (%d files)",
			result.SessionID, len(result.State.UploadedFiles))
	})
	wizard.StartCleanup(context.Background())

	server := ui.NewServer(cfg, wizard, hub)
	if err := server.Run(cfg.Server.Port); err != nil {
		log.Fatalf("[Main] Server error: %v", err)
	}
}

func buildRepository(cfg *config.Config) (ports.FlowRepository, error) {
	switch cfg.Persistence.Backend {
	case "file":
		log.Printf("[Main] Using file snapshot store at %s", cfg.Persistence.SnapshotDir)
		return localstore.NewStore(cfg.Persistence.SnapshotDir)
	default:
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		runner := migration.NewRunner()
		if err := runner.Run(context.Background(), db); err != nil {
			return nil, err
		}
		log.Printf("[Main] Connected to Postgres (migrations %s)", runner.Version())
		return postgres.NewFlowRepository(db), nil
	}
}
