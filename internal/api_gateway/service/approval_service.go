package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

// Approval action errors surfaced to the API layer
var (
	ErrApprovalNotAllowed     = errors.New("user is not eligible to approve this workflow")
	ErrApprovalBelowThreshold = errors.New("amount does not require two-person approval")
	ErrMissingRejectionReason = errors.New("rejection reason is required")
)

// ApprovalServiceImpl implements the ApprovalService interface. On final
// approval it writes the gated transaction to the ledger synchronously so a
// completed workflow always corresponds to a recorded disbursement.
type ApprovalServiceImpl struct {
	approvalRepo approval.Repository
	ledgerRepo   ledger.Repository
	logger       *slog.Logger
	now          func() time.Time
}

// NewApprovalService creates a new approval service
func NewApprovalService(logger *slog.Logger, approvalRepo approval.Repository, ledgerRepo ledger.Repository) ApprovalService {
	return &ApprovalServiceImpl{
		approvalRepo: approvalRepo,
		ledgerRepo:   ledgerRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// WithNow overrides the clock, for tests
func (s *ApprovalServiceImpl) WithNow(now func() time.Time) {
	s.now = now
}

// InitiateApproval opens a workflow for a large disbursement request
func (s *ApprovalServiceImpl) InitiateApproval(ctx context.Context, request *shared.LedgerTransactionRequest,
	requestedBy, purpose string) (*approval.Workflow, error) {

	if !approval.RequiresTwoPersonApproval(request.Amount) {
		return nil, ErrApprovalBelowThreshold
	}

	w := approval.NewWorkflow(request.LedgerID, request.TransactionID, request.Amount,
		request.PayeeID, request.PayeeName, purpose, requestedBy, s.now())

	if err := s.approvalRepo.Save(ctx, w); err != nil {
		s.logger.Error("Failed to save approval workflow",
			"transaction_id", request.TransactionID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Approval workflow initiated",
		"workflow_id", w.WorkflowID.String(),
		"ledger_id", w.LedgerID.String(),
		"amount", w.Amount.String(),
		"required_approvals", w.Requirement.RequiredApprovals,
		"requires_supervisor", w.Requirement.RequiresSupervisor,
	)
	return w, nil
}

// AddApproval records one approver's sign-off. When the workflow collects
// enough approvals it transitions to APPROVED and the gated transaction is
// written to the ledger; a failed ledger write moves the workflow to FAILED
// and the failure is preserved on the workflow for audit.
func (s *ApprovalServiceImpl) AddApproval(ctx context.Context, workflowID uuid.UUID,
	approverID, approverRole, approverName, comments string) (*approval.Workflow, error) {

	w, err := s.approvalRepo.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if ok, reason := w.CanApprove(approverID, approverRole); !ok {
		s.logger.Warn("Approval denied",
			"workflow_id", workflowID.String(),
			"approver_id", approverID,
			"approver_role", approverRole,
			"reason", reason,
		)
		return nil, fmt.Errorf("%w: %s", ErrApprovalNotAllowed, reason)
	}

	rec := approval.Record{
		ApprovalID:   uuid.New(),
		ApproverID:   approverID,
		ApproverRole: approverRole,
		ApproverName: approverName,
		Comments:     comments,
		ApprovedAt:   s.now(),
	}
	if err := w.AddApproval(rec); err != nil {
		return nil, err
	}

	s.logger.Info("Approval recorded",
		"workflow_id", workflowID.String(),
		"approver_id", approverID,
		"approvals", len(w.Approvals),
		"required", w.Requirement.RequiredApprovals,
	)

	if w.IsComplete() {
		if err := w.Approve(s.now()); err != nil {
			return nil, err
		}
		if err := s.recordApprovedTransaction(ctx, w); err != nil {
			w.Fail(fmt.Sprintf("Transaction processing failed: %v", err), err, s.now())
			s.logger.Error("Approved transaction failed to record on ledger",
				"workflow_id", workflowID.String(),
				"ledger_id", w.LedgerID.String(),
				"transaction_id", w.TransactionID,
				"error", err,
			)
		}
	}

	if err := s.approvalRepo.Save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// recordApprovedTransaction writes the gated disbursement to the ledger on
// behalf of the approval system. A retried final approval finds the earlier
// entries and does not record the disbursement twice.
func (s *ApprovalServiceImpl) recordApprovedTransaction(ctx context.Context, w *approval.Workflow) error {
	l, err := s.ledgerRepo.FindByID(ctx, w.LedgerID)
	if err != nil {
		return err
	}

	for _, entry := range l.Entries {
		if entry.TransactionID == w.TransactionID {
			s.logger.Info("Approved disbursement already present on ledger, skipping",
				"workflow_id", w.WorkflowID.String(),
				"ledger_id", w.LedgerID.String(),
				"transaction_id", w.TransactionID,
			)
			return nil
		}
	}

	err = l.RecordPayment(w.TransactionID, "", w.Amount, "", "",
		ledger.PaymentSubtypeOther, w.PayeeID, w.PayeeName, s.now(), nil, nil,
		approval.SystemRecordedBy)
	if err != nil {
		return err
	}

	if err := s.ledgerRepo.Save(ctx, l); err != nil {
		return err
	}

	s.logger.Info("Approved disbursement recorded on ledger",
		"workflow_id", w.WorkflowID.String(),
		"ledger_id", w.LedgerID.String(),
		"transaction_id", w.TransactionID,
		"amount", w.Amount.String(),
	)
	return nil
}

// RejectApproval rejects a pending workflow with a reason
func (s *ApprovalServiceImpl) RejectApproval(ctx context.Context, workflowID uuid.UUID,
	rejectedBy, reason string) (*approval.Workflow, error) {

	if reason == "" {
		return nil, ErrMissingRejectionReason
	}

	w, err := s.approvalRepo.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if err := w.Reject(rejectedBy, reason, s.now()); err != nil {
		return nil, err
	}

	if err := s.approvalRepo.Save(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info("Approval workflow rejected",
		"workflow_id", workflowID.String(),
		"rejected_by", rejectedBy,
	)
	return w, nil
}

// GetWorkflow retrieves a workflow by ID
func (s *ApprovalServiceImpl) GetWorkflow(ctx context.Context, workflowID uuid.UUID) (*approval.Workflow, error) {
	return s.approvalRepo.FindByID(ctx, workflowID)
}

// GetPendingForApprover returns pending workflows the user can currently
// approve, applying the same eligibility gate used when approving
func (s *ApprovalServiceImpl) GetPendingForApprover(ctx context.Context, userID, userRole string) ([]*approval.Workflow, error) {
	pending, err := s.approvalRepo.FindPendingByRole(ctx, userRole)
	if err != nil {
		return nil, err
	}

	eligible := make([]*approval.Workflow, 0, len(pending))
	for _, w := range pending {
		if ok, _ := w.CanApprove(userID, userRole); ok {
			eligible = append(eligible, w)
		}
	}
	return eligible, nil
}

// GetHistory returns workflows requested within [start, end] for audit
func (s *ApprovalServiceImpl) GetHistory(ctx context.Context, start, end time.Time) ([]*approval.Workflow, error) {
	return s.approvalRepo.FindByDateRange(ctx, start, end)
}
