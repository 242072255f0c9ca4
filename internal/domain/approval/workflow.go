// Package approval implements the two-person approval workflow that gates
// large financial assistance disbursements before they reach a ledger.
package approval

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Approver roles recognized by the workflow
const (
	RoleCaseManager    = "CASE_MANAGER"
	RoleFinancialAdmin = "FINANCIAL_ADMIN"
	RoleSupervisor     = "SUPERVISOR"
)

// SystemRecordedBy marks ledger transactions written by approval completion
const SystemRecordedBy = "TWO_PERSON_APPROVAL_SYSTEM"

// Disbursement thresholds. Two-person approval starts at the large threshold;
// the critical threshold additionally requires a supervisor in the chain.
var (
	LargeDisbursementThreshold    = decimal.RequireFromString("2500.00")
	CriticalDisbursementThreshold = decimal.RequireFromString("10000.00")
)

// Common state errors
var (
	ErrNotPending        = errors.New("workflow is not pending")
	ErrDuplicateApprover = errors.New("user has already provided approval for this workflow")
)

// Status enumerates workflow states. PENDING is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
)

// Requirement describes how many sign-offs a disbursement needs and from whom
type Requirement struct {
	RequiredApprovals  int      `json:"required_approvals"`
	AllowedRoles       []string `json:"allowed_roles"`
	RequiresSupervisor bool     `json:"requires_supervisor"`
	Description        string   `json:"description"`
}

// Record is one approver's sign-off on a workflow
type Record struct {
	ApprovalID   uuid.UUID `json:"approval_id"`
	ApproverID   string    `json:"approver_id"`
	ApproverRole string    `json:"approver_role"`
	ApproverName string    `json:"approver_name"`
	Comments     string    `json:"comments,omitempty"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// Workflow gates one pending ledger transaction behind collected approvals.
// Status only ever moves PENDING -> APPROVED | REJECTED | FAILED; terminal
// states are final. Mutations must be serialized per workflow by the caller.
type Workflow struct {
	WorkflowID      uuid.UUID       `json:"workflow_id"`
	LedgerID        uuid.UUID       `json:"ledger_id"`
	TransactionID   string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	PayeeID         string          `json:"payee_id,omitempty"`
	PayeeName       string          `json:"payee_name,omitempty"`
	Purpose         string          `json:"purpose,omitempty"`
	Requirement     Requirement     `json:"requirement"`
	Status          Status          `json:"status"`
	RequestedBy     string          `json:"requested_by"`
	RequestedAt     time.Time       `json:"requested_at"`
	Approvals       []Record        `json:"approvals"`
	RejectedBy      string          `json:"rejected_by,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`

	// failureCause preserves the structured downstream error behind a FAILED
	// status; RejectionReason keeps the string contract for persistence.
	failureCause error
}

// NewWorkflow creates a pending workflow with the requirement derived from amount
func NewWorkflow(ledgerID uuid.UUID, transactionID string, amount decimal.Decimal,
	payeeID, payeeName, purpose, requestedBy string, requestedAt time.Time) *Workflow {

	return &Workflow{
		WorkflowID:    uuid.New(),
		LedgerID:      ledgerID,
		TransactionID: transactionID,
		Amount:        amount,
		PayeeID:       payeeID,
		PayeeName:     payeeName,
		Purpose:       purpose,
		Requirement:   DetermineRequirement(amount),
		Status:        StatusPending,
		RequestedBy:   requestedBy,
		RequestedAt:   requestedAt,
	}
}

// RequiresTwoPersonApproval reports whether amount crosses the large threshold
func RequiresTwoPersonApproval(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(LargeDisbursementThreshold)
}

// DetermineRequirement is a pure function of amount against the fixed thresholds
func DetermineRequirement(amount decimal.Decimal) Requirement {
	switch {
	case amount.GreaterThanOrEqual(CriticalDisbursementThreshold):
		return Requirement{
			RequiredApprovals:  2,
			AllowedRoles:       []string{RoleFinancialAdmin, RoleSupervisor},
			RequiresSupervisor: true,
			Description:        "Critical disbursement over $10,000",
		}
	case amount.GreaterThanOrEqual(LargeDisbursementThreshold):
		return Requirement{
			RequiredApprovals:  2,
			AllowedRoles:       []string{RoleCaseManager, RoleFinancialAdmin},
			RequiresSupervisor: false,
			Description:        "Large disbursement over $2,500",
		}
	default:
		return Requirement{
			RequiredApprovals:  1,
			AllowedRoles:       []string{RoleCaseManager},
			RequiresSupervisor: false,
			Description:        "Standard disbursement",
		}
	}
}

// AddApproval appends one approver's sign-off. It rejects non-pending
// workflows and duplicate approvers but does not enforce role eligibility;
// that gate is CanApprove, applied by the caller.
func (w *Workflow) AddApproval(rec Record) error {
	if w.Status != StatusPending {
		return ErrNotPending
	}
	if w.HasApprovalFrom(rec.ApproverID) {
		return ErrDuplicateApprover
	}
	w.Approvals = append(w.Approvals, rec)
	return nil
}

// HasApprovalFrom reports whether userID already signed off
func (w *Workflow) HasApprovalFrom(userID string) bool {
	for _, a := range w.Approvals {
		if a.ApproverID == userID {
			return true
		}
	}
	return false
}

// IsComplete reports whether enough approvals were collected
func (w *Workflow) IsComplete() bool {
	return len(w.Approvals) >= w.Requirement.RequiredApprovals
}

// CanApprove is the caller-side eligibility gate: requesters never approve
// their own request, approvers only sign off once, the role must be allowed,
// and when a supervisor is required the first eligible approval must come
// from a supervisor. The returned reason is empty when approval is allowed.
func (w *Workflow) CanApprove(userID, userRole string) (bool, string) {
	if w.Status != StatusPending {
		return false, "workflow is not pending"
	}
	if userID == w.RequestedBy {
		return false, "requester cannot approve their own request"
	}
	if w.HasApprovalFrom(userID) {
		return false, "user has already provided approval for this workflow"
	}

	allowed := false
	for _, role := range w.Requirement.AllowedRoles {
		if role == userRole {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, "user role is not authorized to approve this disbursement"
	}

	if w.Requirement.RequiresSupervisor {
		hasSupervisor := false
		for _, a := range w.Approvals {
			if a.ApproverRole == RoleSupervisor {
				hasSupervisor = true
				break
			}
		}
		if !hasSupervisor && userRole != RoleSupervisor {
			return false, "supervisor approval is required before other roles"
		}
	}

	return true, ""
}

// Approve transitions the workflow to its approved terminal state
func (w *Workflow) Approve(at time.Time) error {
	if w.Status != StatusPending {
		return ErrNotPending
	}
	w.Status = StatusApproved
	w.CompletedAt = &at
	return nil
}

// Reject transitions the workflow to its rejected terminal state
func (w *Workflow) Reject(rejectedBy, reason string, at time.Time) error {
	if w.Status != StatusPending {
		return ErrNotPending
	}
	w.Status = StatusRejected
	w.RejectedBy = rejectedBy
	w.RejectionReason = reason
	w.CompletedAt = &at
	return nil
}

// Fail marks the workflow failed after a downstream ledger write error.
// The structured cause is retained for observability via FailureCause.
func (w *Workflow) Fail(reason string, cause error, at time.Time) {
	w.Status = StatusFailed
	w.RejectionReason = reason
	w.failureCause = cause
	w.CompletedAt = &at
}

// FailureCause returns the downstream error behind a FAILED status, if any
func (w *Workflow) FailureCause() error {
	return w.failureCause
}
