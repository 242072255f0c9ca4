package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/outbox"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

// Mock implementations of the dependencies

type MockTransactionValidator struct {
	mock.Mock
}

func (m *MockTransactionValidator) Validate(ctx context.Context, request *shared.LedgerTransactionRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockTransactionValidator) CheckIdempotency(ctx context.Context, request *shared.LedgerTransactionRequest) (bool, error) {
	args := m.Called(ctx, request)
	return args.Bool(0), args.Error(1)
}

type MockLedgerRecorder struct {
	mock.Mock
}

func (m *MockLedgerRecorder) Record(ctx context.Context, request *shared.LedgerTransactionRequest) (*ledger.FinancialLedger, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FinancialLedger), args.Error(1)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) CreateUpdateEntry(ctx context.Context, request *shared.LedgerTransactionRequest, l *ledger.FinancialLedger) error {
	args := m.Called(ctx, request, l)
	return args.Error(0)
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, request *shared.LedgerTransactionRequest, reason shared.FailureReason, detail string) error {
	args := m.Called(ctx, request, reason, detail)
	return args.Error(0)
}

func TestProcessingService_ProcessTransaction(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	ledgerID := uuid.New()
	request := &shared.LedgerTransactionRequest{
		TransactionID:     "txn-1001",
		LedgerID:          ledgerID,
		Kind:              shared.RequestKindPayment,
		Amount:            decimal.RequireFromString("850.00"),
		FundingSourceCode: "ESG-RRH",
		PaymentSubtype:    ledger.PaymentSubtypeRentCurrent,
		PayeeID:           "landlord-17",
		PayeeName:         "Oak Street Properties",
		PaymentDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		RecordedBy:        "case-manager-4",
		CorrelationID:     "corr-1",
	}

	recordedLedger := ledger.Create(uuid.New(), uuid.New(), uuid.New(), "FY25 Assistance", false, "case-manager-4")

	tests := []struct {
		name          string
		setupMocks    func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder)
		expectedError string
	}{
		{
			name: "successful processing",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, nil).Once()
				r.On("Record", mock.Anything, request).Return(recordedLedger, nil).Once()
				o.On("CreateUpdateEntry", mock.Anything, request, recordedLedger).Return(nil).Once()
			},
		},
		{
			name: "validation failure is recorded and acknowledged",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(ledger.ErrInvalidAmount).Once()
				f.On("RecordFailure", mock.Anything, request, shared.FailureReasonInvalidAmount, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "already recorded transaction is skipped",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(true, nil).Once()
			},
		},
		{
			name: "missing ledger during idempotency check is acknowledged",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, ledger.ErrLedgerNotFound{LedgerID: ledgerID}).Once()
				f.On("RecordFailure", mock.Anything, request, shared.FailureReasonLedgerNotFound, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "transient idempotency error is retried",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, errors.New("mongo timeout")).Once()
			},
			expectedError: "mongo timeout",
		},
		{
			name: "closed ledger rejection is recorded and acknowledged",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, nil).Once()
				r.On("Record", mock.Anything, request).Return(nil, ledger.ErrLedgerClosed).Once()
				f.On("RecordFailure", mock.Anything, request, shared.FailureReasonLedgerClosed, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "exhausted version conflict is retried",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, nil).Once()
				r.On("Record", mock.Anything, request).Return(nil, ledger.ErrVersionConflict{LedgerID: ledgerID}).Once()
			},
			expectedError: "ledger busy",
		},
		{
			name: "transient recorder error is retried",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, nil).Once()
				r.On("Record", mock.Anything, request).Return(nil, errors.New("mongo connection reset")).Once()
			},
			expectedError: "mongo connection reset",
		},
		{
			name: "duplicate outbox entry is treated as success",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, nil).Once()
				r.On("Record", mock.Anything, request).Return(recordedLedger, nil).Once()
				o.On("CreateUpdateEntry", mock.Anything, request, recordedLedger).
					Return(outbox.ErrDuplicateMessage{TransactionID: request.TransactionID}).Once()
			},
		},
		{
			name: "outbox write error is retried",
			setupMocks: func(v *MockTransactionValidator, r *MockLedgerRecorder, o *MockOutboxManager, f *MockFailureRecorder) {
				v.On("Validate", mock.Anything, request).Return(nil).Once()
				v.On("CheckIdempotency", mock.Anything, request).Return(false, nil).Once()
				r.On("Record", mock.Anything, request).Return(recordedLedger, nil).Once()
				o.On("CreateUpdateEntry", mock.Anything, request, recordedLedger).Return(errors.New("pg unavailable")).Once()
			},
			expectedError: "pg unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockValidator := &MockTransactionValidator{}
			mockRecorder := &MockLedgerRecorder{}
			mockOutbox := &MockOutboxManager{}
			mockFailure := &MockFailureRecorder{}

			svc := NewProcessingService(mockValidator, mockRecorder, mockOutbox, mockFailure, logger)

			tt.setupMocks(mockValidator, mockRecorder, mockOutbox, mockFailure)

			err := svc.ProcessTransaction(context.Background(), request)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			mockValidator.AssertExpectations(t)
			mockRecorder.AssertExpectations(t)
			mockOutbox.AssertExpectations(t)
			mockFailure.AssertExpectations(t)
		})
	}
}

func TestProcessingService_FailureRecorderErrorStillAcknowledges(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	request := &shared.LedgerTransactionRequest{
		TransactionID: "txn-1002",
		LedgerID:      uuid.New(),
		Kind:          shared.RequestKindDeposit,
		Amount:        decimal.RequireFromString("-5.00"),
		RecordedBy:    "case-manager-4",
	}

	mockValidator := &MockTransactionValidator{}
	mockRecorder := &MockLedgerRecorder{}
	mockOutbox := &MockOutboxManager{}
	mockFailure := &MockFailureRecorder{}

	mockValidator.On("Validate", mock.Anything, request).Return(ledger.ErrInvalidAmount).Once()
	mockFailure.On("RecordFailure", mock.Anything, request, shared.FailureReasonInvalidAmount, mock.Anything).
		Return(errors.New("mongo write failed")).Once()

	svc := NewProcessingService(mockValidator, mockRecorder, mockOutbox, mockFailure, logger)

	err := svc.ProcessTransaction(context.Background(), request)

	assert.NoError(t, err)
	mockValidator.AssertExpectations(t)
	mockFailure.AssertExpectations(t)
}
