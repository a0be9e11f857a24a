package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/tracer"
	"ai-docqa-be/pkg/database"
	pkgNats "ai-docqa-be/pkg/nats"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.Init()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Logger.Sync()

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Background: Starting Reindex Consumer...")
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Background Consumer Error: %v", err)
	}

	// Documents embedded with an older model are queued for background
	// re-embedding so queries against the new model recover on their own.
	if queued, err := container.IngestService.RequestReindexAll(ctx, "embedding model changed"); err != nil {
		log.Printf("[WARN] reindex sweep failed: %v", err)
	} else if queued > 0 {
		log.Printf("Queued %d documents for re-embedding", queued)
	}

	// Mirror lifecycle events into the structured log for auditing. The
	// worker keeps running without it when NATS is down.
	if sub, err := pkgNats.NewSubscriber(cfg.App.NatsURL); err != nil {
		log.Printf("[WARN] NATS unavailable, lifecycle audit disabled: %v", err)
	} else {
		defer sub.Close()
		err := sub.Subscribe("docqa.document.>", "docqa-audit", func(ctx context.Context, subject string, payload map[string]interface{}) error {
			container.Logger.Info("lifecycle", subject, payload)
			return nil
		})
		if err != nil {
			log.Printf("[WARN] lifecycle audit subscription failed: %v", err)
		}
	}

	log.Println("Worker running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("Shutting down.")
}
