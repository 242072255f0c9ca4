package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newApprovalService(approvalRepo *MockApprovalRepository, ledgerRepo *MockLedgerRepository) *ApprovalServiceImpl {
	svc := NewApprovalService(newTestLogger(), approvalRepo, ledgerRepo).(*ApprovalServiceImpl)
	svc.WithNow(func() time.Time { return fixedNow })
	return svc
}

func pendingWorkflow(amount string) *approval.Workflow {
	return approval.NewWorkflow(uuid.New(), "txn-gated-1", decimal.RequireFromString(amount),
		"LANDLORD_42", "Oak Street Properties", "Rent to Oak Street Properties",
		"case.manager@example.org", fixedNow.Add(-time.Hour))
}

func TestApprovalServiceImpl_InitiateApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockApprovalRepository)
		svc := newApprovalService(mockRepo, new(MockLedgerRepository))
		req := paymentRequest(uuid.New(), "3000.00")

		mockRepo.On("Save", ctx, mock.AnythingOfType("*approval.Workflow")).Return(nil).Once()

		w, err := svc.InitiateApproval(ctx, req, "case.manager@example.org", "Rent to Oak Street Properties")

		require.NoError(t, err)
		assert.Equal(t, approval.StatusPending, w.Status)
		assert.Equal(t, req.TransactionID, w.TransactionID)
		assert.Equal(t, 2, w.Requirement.RequiredApprovals)
		mockRepo.AssertExpectations(t)
	})

	t.Run("BelowThreshold", func(t *testing.T) {
		mockRepo := new(MockApprovalRepository)
		svc := newApprovalService(mockRepo, new(MockLedgerRepository))
		req := paymentRequest(uuid.New(), "2499.99")

		w, err := svc.InitiateApproval(ctx, req, "case.manager@example.org", "Rent")

		assert.ErrorIs(t, err, ErrApprovalBelowThreshold)
		assert.Nil(t, w)
		mockRepo.AssertNotCalled(t, "Save")
	})
}

func TestApprovalServiceImpl_AddApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstApprovalKeepsPending", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		svc := newApprovalService(mockApprovalRepo, mockLedgerRepo)
		w := pendingWorkflow("3000.00")

		mockApprovalRepo.On("FindByID", ctx, w.WorkflowID).Return(w, nil).Once()
		mockApprovalRepo.On("Save", ctx, w).Return(nil).Once()

		result, err := svc.AddApproval(ctx, w.WorkflowID, "user-2", approval.RoleCaseManager, "First Approver", "looks right")

		require.NoError(t, err)
		assert.Equal(t, approval.StatusPending, result.Status)
		assert.Len(t, result.Approvals, 1)
		mockLedgerRepo.AssertNotCalled(t, "FindByID")
		mockApprovalRepo.AssertExpectations(t)
	})

	t.Run("FinalApprovalRecordsLedgerTransaction", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		svc := newApprovalService(mockApprovalRepo, mockLedgerRepo)

		l := ledger.Create(uuid.New(), uuid.New(), uuid.New(), "L", false, "admin")
		w := approval.NewWorkflow(l.ID, "txn-gated-2", decimal.RequireFromString("3000.00"),
			"LANDLORD_42", "Oak Street Properties", "Rent", "case.manager@example.org", fixedNow.Add(-time.Hour))
		require.NoError(t, w.AddApproval(approval.Record{
			ApprovalID:   uuid.New(),
			ApproverID:   "user-2",
			ApproverRole: approval.RoleCaseManager,
			ApprovedAt:   fixedNow.Add(-30 * time.Minute),
		}))

		mockApprovalRepo.On("FindByID", ctx, w.WorkflowID).Return(w, nil).Once()
		mockLedgerRepo.On("FindByID", ctx, l.ID).Return(l, nil).Once()
		mockLedgerRepo.On("Save", ctx, l).Return(nil).Once()
		mockApprovalRepo.On("Save", ctx, w).Return(nil).Once()

		result, err := svc.AddApproval(ctx, w.WorkflowID, "user-3", approval.RoleFinancialAdmin, "Second Approver", "")

		require.NoError(t, err)
		assert.Equal(t, approval.StatusApproved, result.Status)
		require.Len(t, l.Entries, 2)
		assert.Equal(t, "txn-gated-2", l.Entries[0].TransactionID)
		assert.Equal(t, approval.SystemRecordedBy, l.Entries[0].RecordedBy)
		assert.True(t, l.Entries[0].Amount.Equal(decimal.RequireFromString("3000.00")))
		mockApprovalRepo.AssertExpectations(t)
		mockLedgerRepo.AssertExpectations(t)
	})

	t.Run("LedgerWriteFailureFailsWorkflow", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		svc := newApprovalService(mockApprovalRepo, mockLedgerRepo)

		l := ledger.Create(uuid.New(), uuid.New(), uuid.New(), "L", false, "admin")
		require.NoError(t, l.Close("done", "admin"))

		w := approval.NewWorkflow(l.ID, "txn-gated-3", decimal.RequireFromString("3000.00"),
			"LANDLORD_42", "Oak Street Properties", "Rent", "case.manager@example.org", fixedNow.Add(-time.Hour))
		require.NoError(t, w.AddApproval(approval.Record{
			ApprovalID:   uuid.New(),
			ApproverID:   "user-2",
			ApproverRole: approval.RoleCaseManager,
			ApprovedAt:   fixedNow.Add(-30 * time.Minute),
		}))

		mockApprovalRepo.On("FindByID", ctx, w.WorkflowID).Return(w, nil).Once()
		mockLedgerRepo.On("FindByID", ctx, l.ID).Return(l, nil).Once()
		mockApprovalRepo.On("Save", ctx, w).Return(nil).Once()

		result, err := svc.AddApproval(ctx, w.WorkflowID, "user-3", approval.RoleFinancialAdmin, "Second Approver", "")

		require.NoError(t, err)
		assert.Equal(t, approval.StatusFailed, result.Status)
		assert.Contains(t, result.RejectionReason, "Transaction processing failed")
		assert.ErrorIs(t, result.FailureCause(), ledger.ErrLedgerClosed)
		mockLedgerRepo.AssertNotCalled(t, "Save")
		mockApprovalRepo.AssertExpectations(t)
	})

	t.Run("RetriedFinalApprovalDoesNotRecordTwice", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		mockLedgerRepo := new(MockLedgerRepository)
		svc := newApprovalService(mockApprovalRepo, mockLedgerRepo)

		// Ledger already carries the disbursement from an earlier attempt
		// whose workflow save did not go through.
		l := ledger.Create(uuid.New(), uuid.New(), uuid.New(), "L", false, "admin")
		require.NoError(t, l.RecordPayment("txn-gated-4", "", decimal.RequireFromString("3000.00"),
			"", "", ledger.PaymentSubtypeOther, "LANDLORD_42", "Oak Street Properties",
			fixedNow, nil, nil, approval.SystemRecordedBy))
		entriesBefore := len(l.Entries)

		w := approval.NewWorkflow(l.ID, "txn-gated-4", decimal.RequireFromString("3000.00"),
			"LANDLORD_42", "Oak Street Properties", "Rent", "case.manager@example.org", fixedNow.Add(-time.Hour))
		require.NoError(t, w.AddApproval(approval.Record{
			ApprovalID:   uuid.New(),
			ApproverID:   "user-2",
			ApproverRole: approval.RoleCaseManager,
			ApprovedAt:   fixedNow.Add(-30 * time.Minute),
		}))

		mockApprovalRepo.On("FindByID", ctx, w.WorkflowID).Return(w, nil).Once()
		mockLedgerRepo.On("FindByID", ctx, l.ID).Return(l, nil).Once()
		mockApprovalRepo.On("Save", ctx, w).Return(nil).Once()

		result, err := svc.AddApproval(ctx, w.WorkflowID, "user-3", approval.RoleFinancialAdmin, "Second Approver", "")

		require.NoError(t, err)
		assert.Equal(t, approval.StatusApproved, result.Status)
		assert.Len(t, l.Entries, entriesBefore)
		mockLedgerRepo.AssertNotCalled(t, "Save")
		mockApprovalRepo.AssertExpectations(t)
		mockLedgerRepo.AssertExpectations(t)
	})

	t.Run("SelfApprovalRejected", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		svc := newApprovalService(mockApprovalRepo, new(MockLedgerRepository))
		w := pendingWorkflow("3000.00")

		mockApprovalRepo.On("FindByID", ctx, w.WorkflowID).Return(w, nil).Once()

		result, err := svc.AddApproval(ctx, w.WorkflowID, "case.manager@example.org",
			approval.RoleCaseManager, "Requester", "")

		assert.ErrorIs(t, err, ErrApprovalNotAllowed)
		assert.Nil(t, result)
		mockApprovalRepo.AssertNotCalled(t, "Save")
	})

	t.Run("WorkflowNotFound", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		svc := newApprovalService(mockApprovalRepo, new(MockLedgerRepository))
		workflowID := uuid.New()

		mockApprovalRepo.On("FindByID", ctx, workflowID).
			Return(nil, approval.ErrWorkflowNotFound{WorkflowID: workflowID}).Once()

		result, err := svc.AddApproval(ctx, workflowID, "user-2", approval.RoleCaseManager, "A", "")

		assert.ErrorIs(t, err, approval.ErrWorkflowNotFound{})
		assert.Nil(t, result)
	})
}

func TestApprovalServiceImpl_RejectApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		svc := newApprovalService(mockApprovalRepo, new(MockLedgerRepository))
		w := pendingWorkflow("3000.00")

		mockApprovalRepo.On("FindByID", ctx, w.WorkflowID).Return(w, nil).Once()
		mockApprovalRepo.On("Save", ctx, w).Return(nil).Once()

		result, err := svc.RejectApproval(ctx, w.WorkflowID, "supervisor@example.org", "Wrong payee")

		require.NoError(t, err)
		assert.Equal(t, approval.StatusRejected, result.Status)
		assert.Equal(t, "Wrong payee", result.RejectionReason)
		mockApprovalRepo.AssertExpectations(t)
	})

	t.Run("MissingReason", func(t *testing.T) {
		mockApprovalRepo := new(MockApprovalRepository)
		svc := newApprovalService(mockApprovalRepo, new(MockLedgerRepository))

		result, err := svc.RejectApproval(ctx, uuid.New(), "supervisor@example.org", "")

		assert.ErrorIs(t, err, ErrMissingRejectionReason)
		assert.Nil(t, result)
		mockApprovalRepo.AssertNotCalled(t, "FindByID")
	})
}

func TestApprovalServiceImpl_GetPendingForApprover(t *testing.T) {
	ctx := context.Background()
	mockApprovalRepo := new(MockApprovalRepository)
	svc := newApprovalService(mockApprovalRepo, new(MockLedgerRepository))

	own := pendingWorkflow("3000.00")
	other := approval.NewWorkflow(uuid.New(), "txn-other", decimal.RequireFromString("4000.00"),
		"LANDLORD_7", "Hillside Flats", "Rent", "someone.else@example.org", fixedNow.Add(-time.Hour))

	mockApprovalRepo.On("FindPendingByRole", ctx, approval.RoleCaseManager).
		Return([]*approval.Workflow{own, other}, nil).Once()

	eligible, err := svc.GetPendingForApprover(ctx, "case.manager@example.org", approval.RoleCaseManager)

	require.NoError(t, err)
	// The requester's own workflow is filtered out
	require.Len(t, eligible, 1)
	assert.Equal(t, other.WorkflowID, eligible[0].WorkflowID)
}

func TestApprovalServiceImpl_GetHistory(t *testing.T) {
	ctx := context.Background()
	mockApprovalRepo := new(MockApprovalRepository)
	svc := newApprovalService(mockApprovalRepo, new(MockLedgerRepository))

	start := fixedNow.Add(-24 * time.Hour)
	end := fixedNow
	expected := []*approval.Workflow{pendingWorkflow("3000.00")}

	mockApprovalRepo.On("FindByDateRange", ctx, start, end).Return(expected, nil).Once()

	got, err := svc.GetHistory(ctx, start, end)

	require.NoError(t, err)
	assert.Equal(t, expected, got)

	mockApprovalRepo.On("FindByDateRange", ctx, start, end).
		Return(nil, errors.New("query timeout")).Once()
	_, err = svc.GetHistory(ctx, start, end)
	assert.Error(t, err)
}
