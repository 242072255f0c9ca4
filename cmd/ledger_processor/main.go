package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/haven-hmis/haven-ledger/internal/config"
	"github.com/haven-hmis/haven-ledger/internal/data/mongo"
	"github.com/haven-hmis/haven-ledger/internal/data/postgres"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/alerts"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/components"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/consumer"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/outbox_poller"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
	"github.com/haven-hmis/haven-ledger/internal/logger"
	"github.com/haven-hmis/haven-ledger/internal/platform/messaging/consumers"
	"github.com/haven-hmis/haven-ledger/internal/platform/messaging/producers"
	"github.com/haven-hmis/haven-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize Kafka producer for confirmed ledger updates
	updateProducer, err := producers.NewLedgerUpdateProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger update Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for financial alerts
	alertsProducer, err := producers.NewAlertsProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize alerts Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize processing service with separated concerns
	processingService := components.CreateProcessingService(
		ledgerRepo,
		outboxRepo,
		mongoDB.Database(),
		log,
		cfg,
	)

	// Initialize transaction event handler
	transactionEventHandler := consumer.NewTransactionEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize outbox poller
	updatePublisher := outbox_poller.NewUpdatePublisher(
		outboxRepo,
		updateProducer,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		updatePublisher,
		log,
	)

	// Initialize financial alerts poller
	alertsPoller := alerts.NewPoller(
		&cfg.Alerts,
		ledgerRepo,
		alertsProducer,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.TransactionTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, transactionEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start alerts poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Financial Alerts Poller",
			"interval", cfg.Alerts.PollingInterval.String(),
		)
		alertsPoller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolProcessingService
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = updateProducer.Close(); err != nil {
		log.Error("Error closing ledger update Kafka producer", "error", err)
	}

	if err = alertsProducer.Close(); err != nil {
		log.Error("Error closing alerts Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Processor shutdown completed with errors")
	} else {
		log.Info("Ledger Processor shutdown completed successfully")
	}
}
