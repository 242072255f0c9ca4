package components

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/outbox"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

// MockOutboxRepository for testing
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByTransactionID(ctx context.Context, transactionID string) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

func TestOutboxManager_CreateUpdateEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("stages a ledger update with the committed totals", func(t *testing.T) {
		mockRepo := &MockOutboxRepository{}
		manager := NewOutboxManager(mockRepo, newTestLogger())

		l := fundedTestLedger(t)
		request := paymentRecordRequest(l.ID)
		request.CorrelationID = "corr-outbox-1"
		require.NoError(t, l.RecordPayment(request.TransactionID, "", request.Amount,
			request.FundingSourceCode, "", request.PaymentSubtype,
			request.PayeeID, request.PayeeName, request.PaymentDate, nil, nil, request.RecordedBy))

		var staged *outbox.Message
		mockRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Run(func(args mock.Arguments) {
				staged = args.Get(1).(*outbox.Message)
			}).Return(nil).Once()

		err := manager.CreateUpdateEntry(ctx, request, l)

		require.NoError(t, err)
		require.NotNil(t, staged)
		assert.Equal(t, request.TransactionID, staged.TransactionID)
		assert.Equal(t, shared.OutboxStatusPending, staged.Status)

		update, err := staged.GetLedgerUpdate()
		require.NoError(t, err)
		assert.Equal(t, l.ID, update.LedgerID)
		assert.Equal(t, l.ClientID, update.ClientID)
		assert.Equal(t, ledger.EventTypeTransactionRecorded, update.EventType)
		assert.Equal(t, request.Amount.String(), update.Amount.String())
		assert.Equal(t, l.TotalDebits.String(), update.TotalDebits.String())
		assert.Equal(t, l.TotalCredits.String(), update.TotalCredits.String())
		assert.Equal(t, "corr-outbox-1", update.CorrelationID)
		assert.WithinDuration(t, time.Now().UTC(), update.OccurredAt, 5*time.Second)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate transaction surfaces the repository error", func(t *testing.T) {
		mockRepo := &MockOutboxRepository{}
		manager := NewOutboxManager(mockRepo, newTestLogger())

		l := fundedTestLedger(t)
		request := &shared.LedgerTransactionRequest{
			TransactionID: "txn-dup",
			LedgerID:      l.ID,
			Kind:          shared.RequestKindDeposit,
			Amount:        decimal.RequireFromString("100.00"),
		}

		mockRepo.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).
			Return(outbox.ErrDuplicateMessage{TransactionID: "txn-dup"}).Once()

		err := manager.CreateUpdateEntry(ctx, request, l)

		var duplicate outbox.ErrDuplicateMessage
		assert.ErrorAs(t, err, &duplicate)
		assert.Equal(t, "txn-dup", duplicate.TransactionID)
		mockRepo.AssertExpectations(t)
	})
}

func TestOutboxMessage_LifecycleMarkers(t *testing.T) {
	update := &outbox.LedgerUpdate{
		LedgerID:      uuid.New(),
		ClientID:      uuid.New(),
		TransactionID: "txn-lifecycle",
		EventType:     ledger.EventTypeTransactionRecorded,
		Amount:        decimal.RequireFromString("75.00"),
		OccurredAt:    time.Now().UTC(),
	}

	msg, err := outbox.NewMessage(update)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Equal(t, 0, msg.Attempts)

	msg.IncrementAttempts()
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)

	msg.MarkAsProcessed()
	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)

	msg.MarkAsFailed()
	assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
}
