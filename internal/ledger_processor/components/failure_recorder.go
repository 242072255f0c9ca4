package components

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/ledger_processor/service"
)

const failedRequestCollection = "failed_transaction_requests"

// FailureRecorderImpl keeps an audit trail of transaction requests the
// processor rejected, keyed by transaction id so redeliveries do not produce
// duplicate records
type FailureRecorderImpl struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

type failedRequestDoc struct {
	TransactionID     string    `bson:"_id"`
	LedgerID          string    `bson:"ledger_id"`
	Kind              string    `bson:"kind"`
	Amount            string    `bson:"amount"`
	FundingSourceCode string    `bson:"funding_source_code,omitempty"`
	PayeeID           string    `bson:"payee_id,omitempty"`
	RequestedBy       string    `bson:"requested_by"`
	FailureReason     string    `bson:"failure_reason"`
	FailureDetail     string    `bson:"failure_detail,omitempty"`
	CorrelationID     string    `bson:"correlation_id,omitempty"`
	FailedAt          time.Time `bson:"failed_at"`
}

func NewFailureRecorder(db *mongo.Database, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		collection: db.Collection(failedRequestCollection),
		logger:     logger,
	}
}

// RecordFailure upserts the failure record for a rejected transaction request
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.LedgerTransactionRequest,
	reason shared.FailureReason, detail string) error {

	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	doc := failedRequestDoc{
		TransactionID:     request.TransactionID,
		LedgerID:          request.LedgerID.String(),
		Kind:              string(request.Kind),
		Amount:            request.Amount.String(),
		FundingSourceCode: request.FundingSourceCode,
		PayeeID:           request.PayeeID,
		RequestedBy:       request.RecordedBy,
		FailureReason:     string(reason),
		FailureDetail:     detail,
		CorrelationID:     request.CorrelationID,
		FailedAt:          time.Now().UTC(),
	}

	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": request.TransactionID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		logger.Error("Failed to store rejected transaction request",
			"transaction_id", request.TransactionID,
			"error", err,
		)
		return err
	}

	logger.Info("Rejected transaction request stored for audit",
		"transaction_id", request.TransactionID,
		"reason", string(reason),
	)
	return nil
}
