package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/vawa"
)

// CreateLedgerRequest represents a request to open a financial assistance ledger
type CreateLedgerRequest struct {
	ClientID        string `json:"client_id" binding:"required,uuid"`
	EnrollmentID    string `json:"enrollment_id" binding:"required,uuid"`
	HouseholdID     string `json:"household_id" binding:"required,uuid"`
	LedgerName      string `json:"ledger_name" binding:"required"`
	IsVawaProtected bool   `json:"is_vawa_protected"`
	CreatedBy       string `json:"created_by" binding:"required"`
}

// SubmitTransactionRequest represents a payment, deposit, or arrears submission
type SubmitTransactionRequest struct {
	Kind              string     `json:"kind" binding:"required,oneof=PAYMENT DEPOSIT ARREARS"`
	Amount            string     `json:"amount" binding:"required"`
	FundingSourceCode string     `json:"funding_source_code,omitempty"`
	HudCategoryCode   string     `json:"hud_category_code,omitempty"`
	PaymentSubtype    string     `json:"payment_subtype,omitempty"`
	ArrearsType       string     `json:"arrears_type,omitempty"`
	AssistanceID      string     `json:"assistance_id,omitempty"`
	PayeeID           string     `json:"payee_id,omitempty"`
	PayeeName         string     `json:"payee_name,omitempty"`
	DepositSource     string     `json:"deposit_source,omitempty"`
	PaymentDate       time.Time  `json:"payment_date" binding:"required"`
	PeriodStart       *time.Time `json:"period_start,omitempty"`
	PeriodEnd         *time.Time `json:"period_end,omitempty"`
	RequestedBy       string     `json:"requested_by" binding:"required"`
}

// RecordCommunicationRequest represents landlord communication metadata
type RecordCommunicationRequest struct {
	LandlordID        string    `json:"landlord_id" binding:"required"`
	LandlordName      string    `json:"landlord_name" binding:"required"`
	CommunicationType string    `json:"communication_type" binding:"required,oneof=EMAIL PHONE LETTER IN_PERSON"`
	Subject           string    `json:"subject" binding:"required"`
	Content           string    `json:"content"`
	CommunicationDate time.Time `json:"communication_date" binding:"required"`
	RecordedBy        string    `json:"recorded_by" binding:"required"`
}

// AttachDocumentRequest represents a supporting document upload
type AttachDocumentRequest struct {
	DocumentName string `json:"document_name" binding:"required"`
	DocumentType string `json:"document_type" binding:"required"`
	UploadedBy   string `json:"uploaded_by" binding:"required"`
	Content      []byte `json:"content" binding:"required"`
}

// CloseLedgerRequest represents a request to close a ledger
type CloseLedgerRequest struct {
	Reason   string `json:"reason" binding:"required"`
	ClosedBy string `json:"closed_by" binding:"required"`
}

// AddApprovalRequest represents one approver's sign-off on a workflow
type AddApprovalRequest struct {
	ApproverID   string `json:"approver_id" binding:"required"`
	ApproverRole string `json:"approver_role" binding:"required,oneof=CASE_MANAGER FINANCIAL_ADMIN SUPERVISOR"`
	ApproverName string `json:"approver_name" binding:"required"`
	Comments     string `json:"comments,omitempty"`
}

// RejectApprovalRequest represents a rejection of a pending workflow
type RejectApprovalRequest struct {
	RejectedBy string `json:"rejected_by" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

// DailySummaryRequest selects the funding sources to include in the report
type DailySummaryRequest struct {
	FundingSourceCodes []string `json:"funding_source_codes" binding:"required,min=1"`
}

// EntryResponse represents one ledger entry in API responses
type EntryResponse struct {
	EntryID               string     `json:"entry_id"`
	TransactionID         string     `json:"transaction_id"`
	EntryType             string     `json:"entry_type"`
	AccountClassification string     `json:"account_classification"`
	Amount                string     `json:"amount"`
	Description           string     `json:"description"`
	FundingSourceCode     string     `json:"funding_source_code,omitempty"`
	HudCategoryCode       string     `json:"hud_category_code,omitempty"`
	PayeeID               string     `json:"payee_id,omitempty"`
	PayeeName             string     `json:"payee_name,omitempty"`
	PeriodStart           *time.Time `json:"period_start,omitempty"`
	PeriodEnd             *time.Time `json:"period_end,omitempty"`
	RecordedBy            string     `json:"recorded_by"`
	RecordedAt            string     `json:"recorded_at"`
}

// LedgerResponse represents a financial ledger in API responses
type LedgerResponse struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	EnrollmentID    string          `json:"enrollment_id"`
	HouseholdID     string          `json:"household_id"`
	LedgerName      string          `json:"ledger_name"`
	Status          string          `json:"status"`
	TotalDebits     string          `json:"total_debits"`
	TotalCredits    string          `json:"total_credits"`
	Balance         string          `json:"balance"`
	IsBalanced      bool            `json:"is_balanced"`
	IsVawaProtected bool            `json:"is_vawa_protected"`
	EntryCount      int             `json:"entry_count"`
	Entries         []EntryResponse `json:"entries,omitempty"`
	CreatedAt       string          `json:"created_at"`
	LastModified    string          `json:"last_modified"`
}

// SubmissionResponse reports how a transaction request was routed
type SubmissionResponse struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	WorkflowID    *string `json:"workflow_id,omitempty"`
}

// ApprovalRecordResponse represents one sign-off on a workflow
type ApprovalRecordResponse struct {
	ApprovalID   string `json:"approval_id"`
	ApproverID   string `json:"approver_id"`
	ApproverRole string `json:"approver_role"`
	ApproverName string `json:"approver_name"`
	Comments     string `json:"comments,omitempty"`
	ApprovedAt   string `json:"approved_at"`
}

// WorkflowResponse represents an approval workflow in API responses
type WorkflowResponse struct {
	WorkflowID        string                   `json:"workflow_id"`
	LedgerID          string                   `json:"ledger_id"`
	TransactionID     string                   `json:"transaction_id"`
	Amount            string                   `json:"amount"`
	PayeeID           string                   `json:"payee_id"`
	PayeeName         string                   `json:"payee_name"`
	Purpose           string                   `json:"purpose"`
	Status            string                   `json:"status"`
	RequiredApprovals int                      `json:"required_approvals"`
	AllowedRoles      []string                 `json:"allowed_roles"`
	RequestedBy       string                   `json:"requested_by"`
	RequestedAt       string                   `json:"requested_at"`
	Approvals         []ApprovalRecordResponse `json:"approvals"`
	RejectedBy        string                   `json:"rejected_by,omitempty"`
	RejectionReason   string                   `json:"rejection_reason,omitempty"`
	CompletedAt       *string                  `json:"completed_at,omitempty"`
}

// LandlordViewResponse represents the redacted landlord projection
type LandlordViewResponse struct {
	LedgerID        string          `json:"ledger_id"`
	ClientID        *string         `json:"client_id,omitempty"`
	ClientName      string          `json:"client_name"`
	LandlordID      string          `json:"landlord_id"`
	VisibleEntries  []EntryResponse `json:"visible_entries"`
	VisibleBalance  string          `json:"visible_balance"`
	IsVawaProtected bool            `json:"is_vawa_protected"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapEntryToResponse(e ledger.Entry) EntryResponse {
	return EntryResponse{
		EntryID:               e.EntryID.String(),
		TransactionID:         e.TransactionID,
		EntryType:             string(e.EntryType),
		AccountClassification: string(e.AccountClassification),
		Amount:                e.Amount.StringFixed(2),
		Description:           e.Description,
		FundingSourceCode:     e.FundingSourceCode,
		HudCategoryCode:       e.HudCategoryCode,
		PayeeID:               e.PayeeID,
		PayeeName:             e.PayeeName,
		PeriodStart:           e.PeriodStart,
		PeriodEnd:             e.PeriodEnd,
		RecordedBy:            e.RecordedBy,
		RecordedAt:            e.RecordedAt.Format(time.RFC3339),
	}
}

func mapLedgerToResponse(l *ledger.FinancialLedger, includeEntries bool) LedgerResponse {
	resp := LedgerResponse{
		ID:              l.ID.String(),
		ClientID:        l.ClientID.String(),
		EnrollmentID:    l.EnrollmentID.String(),
		HouseholdID:     l.HouseholdID.String(),
		LedgerName:      l.LedgerName,
		Status:          string(l.Status),
		TotalDebits:     l.TotalDebits.StringFixed(2),
		TotalCredits:    l.TotalCredits.StringFixed(2),
		Balance:         l.Balance.StringFixed(2),
		IsBalanced:      l.IsBalanced(),
		IsVawaProtected: l.IsVawaProtected,
		EntryCount:      len(l.Entries),
		CreatedAt:       l.CreatedAt.Format(time.RFC3339),
		LastModified:    l.LastModified.Format(time.RFC3339),
	}
	if includeEntries {
		resp.Entries = make([]EntryResponse, 0, len(l.Entries))
		for _, e := range l.Entries {
			resp.Entries = append(resp.Entries, mapEntryToResponse(e))
		}
	}
	return resp
}

func mapWorkflowToResponse(w *approval.Workflow) WorkflowResponse {
	approvals := make([]ApprovalRecordResponse, 0, len(w.Approvals))
	for _, rec := range w.Approvals {
		approvals = append(approvals, ApprovalRecordResponse{
			ApprovalID:   rec.ApprovalID.String(),
			ApproverID:   rec.ApproverID,
			ApproverRole: rec.ApproverRole,
			ApproverName: rec.ApproverName,
			Comments:     rec.Comments,
			ApprovedAt:   rec.ApprovedAt.Format(time.RFC3339),
		})
	}

	resp := WorkflowResponse{
		WorkflowID:        w.WorkflowID.String(),
		LedgerID:          w.LedgerID.String(),
		TransactionID:     w.TransactionID,
		Amount:            w.Amount.StringFixed(2),
		PayeeID:           w.PayeeID,
		PayeeName:         w.PayeeName,
		Purpose:           w.Purpose,
		Status:            string(w.Status),
		RequiredApprovals: w.Requirement.RequiredApprovals,
		AllowedRoles:      w.Requirement.AllowedRoles,
		RequestedBy:       w.RequestedBy,
		RequestedAt:       w.RequestedAt.Format(time.RFC3339),
		Approvals:         approvals,
		RejectedBy:        w.RejectedBy,
		RejectionReason:   w.RejectionReason,
	}
	if w.CompletedAt != nil {
		completed := w.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func mapLandlordViewToResponse(v *vawa.LandlordView) LandlordViewResponse {
	entries := make([]EntryResponse, 0, len(v.VisibleEntries))
	for _, e := range v.VisibleEntries {
		entries = append(entries, mapEntryToResponse(e))
	}

	resp := LandlordViewResponse{
		LedgerID:        v.LedgerID.String(),
		ClientName:      v.ClientName,
		LandlordID:      v.LandlordID,
		VisibleEntries:  entries,
		VisibleBalance:  v.VisibleBalance.StringFixed(2),
		IsVawaProtected: v.IsVawaProtected,
	}
	if v.ClientID != nil {
		id := v.ClientID.String()
		resp.ClientID = &id
	}
	return resp
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}
