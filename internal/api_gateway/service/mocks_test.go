package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Save(ctx context.Context, l *ledger.FinancialLedger) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.FinancialLedger, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*ledger.FinancialLedger, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindByClientIDAndStatus(ctx context.Context, clientID uuid.UUID, status ledger.LedgerStatus) (*ledger.FinancialLedger, error) {
	args := m.Called(ctx, clientID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindActiveByPayeeID(ctx context.Context, payeeID string) ([]*ledger.FinancialLedger, error) {
	args := m.Called(ctx, payeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindByFundingSourceCode(ctx context.Context, fundingSourceCode string) ([]*ledger.FinancialLedger, error) {
	args := m.Called(ctx, fundingSourceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindUnbalancedLedgers(ctx context.Context) ([]*ledger.FinancialLedger, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindLedgersWithOverdueArrears(ctx context.Context, olderThan time.Time) ([]*ledger.FinancialLedger, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.FinancialLedger), args.Error(1)
}

func (m *MockLedgerRepository) FindLedgersWithUnmatchedDeposits(ctx context.Context, olderThan time.Time) ([]*ledger.FinancialLedger, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.FinancialLedger), args.Error(1)
}

type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) Save(ctx context.Context, w *approval.Workflow) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockApprovalRepository) FindByID(ctx context.Context, workflowID uuid.UUID) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalRepository) FindByStatus(ctx context.Context, status approval.Status) ([]*approval.Workflow, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}

func (m *MockApprovalRepository) FindPendingByRole(ctx context.Context, role string) ([]*approval.Workflow, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}

func (m *MockApprovalRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*approval.Workflow, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}

func (m *MockApprovalRepository) WithTx(tx pgx.Tx) approval.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(approval.Repository)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) InitiateApproval(ctx context.Context, request *shared.LedgerTransactionRequest,
	requestedBy, purpose string) (*approval.Workflow, error) {
	args := m.Called(ctx, request, requestedBy, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) AddApproval(ctx context.Context, workflowID uuid.UUID,
	approverID, approverRole, approverName, comments string) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID, approverID, approverRole, approverName, comments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) RejectApproval(ctx context.Context, workflowID uuid.UUID,
	rejectedBy, reason string) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID, rejectedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) GetWorkflow(ctx context.Context, workflowID uuid.UUID) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) GetPendingForApprover(ctx context.Context, userID, userRole string) ([]*approval.Workflow, error) {
	args := m.Called(ctx, userID, userRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) GetHistory(ctx context.Context, start, end time.Time) ([]*approval.Workflow, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}
