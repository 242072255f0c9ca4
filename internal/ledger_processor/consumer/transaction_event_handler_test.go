package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessTransaction(ctx context.Context, request *shared.LedgerTransactionRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testRequestPayload(t *testing.T) (*shared.LedgerTransactionRequest, []byte) {
	request := &shared.LedgerTransactionRequest{
		TransactionID:     "txn-4001",
		LedgerID:          uuid.New(),
		Kind:              shared.RequestKindPayment,
		Amount:            decimal.RequireFromString("850.00"),
		FundingSourceCode: "ESG-RRH",
		PaymentSubtype:    ledger.PaymentSubtypeRentCurrent,
		PayeeID:           "landlord-17",
		PayeeName:         "Oak Street Properties",
		PaymentDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		RecordedBy:        "case-manager-4",
		CorrelationID:     "corr-consumer-1",
	}
	payload, err := json.Marshal(request)
	require.NoError(t, err)
	return request, payload
}

func TestTransactionEventHandler_HandleMessage(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("valid message is processed and committed", func(t *testing.T) {
		mockService := &MockProcessingService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewTransactionEventHandler(logger, mockService, mockDLQ)

		request, payload := testRequestPayload(t)
		mockService.On("ProcessTransaction", mock.Anything, mock.MatchedBy(func(r *shared.LedgerTransactionRequest) bool {
			return r.TransactionID == request.TransactionID && r.LedgerID == request.LedgerID
		})).Return(nil).Once()

		err := handler.HandleMessage(ctx, []byte(request.LedgerID.String()), payload)

		assert.NoError(t, err)
		mockService.AssertExpectations(t)
		mockDLQ.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processing error is returned for retry", func(t *testing.T) {
		mockService := &MockProcessingService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewTransactionEventHandler(logger, mockService, mockDLQ)

		request, payload := testRequestPayload(t)
		mockService.On("ProcessTransaction", mock.Anything, mock.Anything).Return(errors.New("mongo unavailable")).Once()

		err := handler.HandleMessage(ctx, []byte(request.LedgerID.String()), payload)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "mongo unavailable")
		mockService.AssertExpectations(t)
	})

	t.Run("malformed message goes to the DLQ and is committed", func(t *testing.T) {
		mockService := &MockProcessingService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewTransactionEventHandler(logger, mockService, mockDLQ)

		payload := []byte("{not json")
		mockDLQ.On("PublishToDLQ", mock.Anything, "key-1", payload, mock.Anything).Return(nil).Once()

		err := handler.HandleMessage(ctx, []byte("key-1"), payload)

		assert.NoError(t, err)
		mockDLQ.AssertExpectations(t)
		mockService.AssertNotCalled(t, "ProcessTransaction", mock.Anything, mock.Anything)
	})

	t.Run("malformed message is retried when the DLQ publish fails", func(t *testing.T) {
		mockService := &MockProcessingService{}
		mockDLQ := &MockDeadLetterPublisher{}
		handler := NewTransactionEventHandler(logger, mockService, mockDLQ)

		payload := []byte("{not json")
		mockDLQ.On("PublishToDLQ", mock.Anything, "key-2", payload, mock.Anything).Return(errors.New("kafka down")).Once()

		err := handler.HandleMessage(ctx, []byte("key-2"), payload)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
		mockDLQ.AssertExpectations(t)
	})

	t.Run("malformed message is retried without a DLQ producer", func(t *testing.T) {
		mockService := &MockProcessingService{}
		handler := NewTransactionEventHandler(logger, mockService, nil)

		err := handler.HandleMessage(ctx, []byte("key-3"), []byte("{not json"))

		assert.Error(t, err)
	})
}
