package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/domain/vawa"
)

// SubmissionStatus reports how a submitted transaction request was routed
type SubmissionStatus string

const (
	// SubmissionQueued means the request was published for async processing
	SubmissionQueued SubmissionStatus = "QUEUED"
	// SubmissionPendingApproval means the request is held behind a two-person
	// approval workflow and will only reach the ledger once approved
	SubmissionPendingApproval SubmissionStatus = "PENDING_APPROVAL"
)

// SubmissionResult is the outcome of submitting a ledger transaction request
type SubmissionResult struct {
	TransactionID string
	Status        SubmissionStatus
	WorkflowID    *uuid.UUID
}

// LedgerService defines the interface for financial ledger operations
type LedgerService interface {
	// CreateLedger creates a new financial assistance ledger for a client
	CreateLedger(ctx context.Context, clientID, enrollmentID, householdID uuid.UUID,
		ledgerName string, isVawaProtected bool, createdBy string) (*ledger.FinancialLedger, error)

	// GetOrCreateActiveLedger returns the client's active ledger, creating one
	// with a default name when none exists
	GetOrCreateActiveLedger(ctx context.Context, clientID, enrollmentID, householdID uuid.UUID,
		createdBy string) (*ledger.FinancialLedger, error)

	// GetLedgerByID retrieves a ledger by its ID
	// Returns ErrLedgerNotFound if the ledger doesn't exist
	GetLedgerByID(ctx context.Context, id uuid.UUID) (*ledger.FinancialLedger, error)

	// GetLedgersByClientID retrieves every ledger belonging to a client
	GetLedgersByClientID(ctx context.Context, clientID uuid.UUID) ([]*ledger.FinancialLedger, error)

	// SubmitTransaction routes a payment, deposit, or arrears request. Large
	// disbursements are diverted to a two-person approval workflow; everything
	// else is queued for asynchronous recording.
	SubmitTransaction(ctx context.Context, request *shared.LedgerTransactionRequest, requestedBy string) (*SubmissionResult, error)

	// RecordCommunication records landlord communication metadata on a ledger
	RecordCommunication(ctx context.Context, ledgerID uuid.UUID, landlordID, landlordName string,
		communicationType ledger.CommunicationType, subject, content string,
		communicationDate time.Time, recordedBy string) error

	// AttachDocument attaches a supporting document to a ledger
	AttachDocument(ctx context.Context, ledgerID uuid.UUID, documentName, documentType,
		uploadedBy string, content []byte) error

	// CloseLedger closes a balanced ledger; unbalanced ledgers are rejected
	CloseLedger(ctx context.Context, ledgerID uuid.UUID, reason, closedBy string) error

	// GetLandlordView projects a ledger for landlord access with VAWA
	// redaction applied
	GetLandlordView(ctx context.Context, ledgerID uuid.UUID, landlordID string) (*vawa.LandlordView, error)
}

// ApprovalService defines the interface for two-person approval operations
type ApprovalService interface {
	// InitiateApproval opens a workflow for a large disbursement request
	InitiateApproval(ctx context.Context, request *shared.LedgerTransactionRequest,
		requestedBy, purpose string) (*approval.Workflow, error)

	// AddApproval records one approver's sign-off. When the workflow becomes
	// complete the gated transaction is written to the ledger; a downstream
	// write failure moves the workflow to FAILED.
	AddApproval(ctx context.Context, workflowID uuid.UUID, approverID, approverRole,
		approverName, comments string) (*approval.Workflow, error)

	// RejectApproval rejects a pending workflow with a reason
	RejectApproval(ctx context.Context, workflowID uuid.UUID, rejectedBy, reason string) (*approval.Workflow, error)

	// GetWorkflow retrieves a workflow by ID
	GetWorkflow(ctx context.Context, workflowID uuid.UUID) (*approval.Workflow, error)

	// GetPendingForApprover returns pending workflows the given user is
	// currently eligible to approve
	GetPendingForApprover(ctx context.Context, userID, userRole string) ([]*approval.Workflow, error)

	// GetHistory returns workflows requested within [start, end] for audit
	GetHistory(ctx context.Context, start, end time.Time) ([]*approval.Workflow, error)
}

// ReconciliationService defines the interface for reconciliation reporting
type ReconciliationService interface {
	// ReconcileFundingSource totals deposits against spending for one funding
	// source across all ledgers that drew on it
	ReconcileFundingSource(ctx context.Context, fundingSourceCode string) (*FundingSourceReconciliation, error)

	// DailySummary builds a reconciliation summary covering unbalanced ledgers
	// and the given funding sources
	DailySummary(ctx context.Context, fundingSourceCodes []string) (*DailyReconciliationSummary, error)

	// FindUnbalancedLedgers returns ledgers whose debits and credits disagree
	FindUnbalancedLedgers(ctx context.Context) ([]*UnbalancedLedgerInfo, error)
}
