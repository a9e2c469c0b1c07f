package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"newsletteradmin/internal/config"
	"newsletteradmin/internal/logger"
	"newsletteradmin/internal/models"
	"newsletteradmin/internal/queue"
	"newsletteradmin/internal/repository"
)

func main() {
	recent := flag.Int("recent", 0, "Print the N most recent sync faults and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel, cfg.IsDevelopment())

	// Connect to database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Connected to database")

	faultRepo := repository.NewFaultRepository(db)

	if *recent > 0 {
		if err := printRecent(context.Background(), faultRepo, *recent); err != nil {
			log.Fatalf("Failed to list sync faults: %v", err)
		}
		return
	}

	// Connect to RabbitMQ
	conn, err := queue.NewConnection(cfg.RabbitMQ.URL, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to RabbitMQ")

	consumer, err := queue.NewFaultConsumer(conn, cfg.RabbitMQ.FaultQueue, newFaultHandler(faultRepo, appLogger), appLogger)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer: %v", err)
	}
	log.Printf("✅ Worker started, consuming from queue: %s", cfg.RabbitMQ.FaultQueue)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("🛑 Shutting down gracefully...")
	case <-consumer.Done():
		// exit non-zero so the supervisor restarts the worker with a fresh connection
		consumer.Stop()
		conn.Close()
		log.Fatalf("Consumer stopped: %v", consumer.Err())
	}

	if err := consumer.Stop(); err != nil {
		log.Printf("Error stopping consumer: %v", err)
	}

	log.Println("✅ Worker stopped")
}

// newFaultHandler stores each fault report. A report whose newsletter has
// since been deleted is kept without the reference.
func newFaultHandler(faults repository.FaultRepository, logger *slog.Logger) queue.FaultHandler {
	return func(ctx context.Context, fault *models.SyncFault) error {
		err := faults.Create(ctx, fault)
		if errors.Is(err, repository.ErrInvalidReference) && fault.NewsletterID != nil {
			logger.Warn("newsletter for sync fault no longer exists",
				"fault_id", fault.ID,
				"newsletter_id", *fault.NewsletterID,
			)
			fault.NewsletterID = nil
			err = faults.Create(ctx, fault)
		}
		if err != nil {
			return err
		}

		logger.Info("sync fault recorded",
			"fault_id", fault.ID,
			"kind", fault.Kind,
			"occurred_at", fault.OccurredAt,
		)
		return nil
	}
}

func printRecent(ctx context.Context, faults repository.FaultRepository, limit int) error {
	list, err := faults.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No sync faults recorded")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-10s  %-10s  %s\n", "ID", "OCCURRED AT", "KIND", "NEWSLETTER", "ERROR")
	for _, f := range list {
		newsletter := "-"
		if f.NewsletterID != nil {
			newsletter = fmt.Sprintf("%d", *f.NewsletterID)
		}
		fmt.Printf("%-36s  %-20s  %-10s  %-10s  %s\n",
			f.ID, f.OccurredAt.Format("2006-01-02 15:04:05"), f.Kind, newsletter, f.Error)
	}
	return nil
}
