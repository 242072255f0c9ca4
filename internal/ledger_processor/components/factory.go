package components

import (
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/haven-hmis/haven-ledger/internal/config"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/outbox"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	mongoDB *mongo.Database,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewTransactionValidator(ledgerRepo, logger)
	ledgerRecorder := NewLedgerRecorder(ledgerRepo, logger)
	outboxManager := NewOutboxManager(outboxRepo, logger)
	failureRecorder := NewFailureRecorder(mongoDB, logger)

	baseService := service.NewProcessingService(
		validator,
		ledgerRecorder,
		outboxManager,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
