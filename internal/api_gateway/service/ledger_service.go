package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
	"github.com/haven-hmis/haven-ledger/internal/domain/vawa"
	"github.com/haven-hmis/haven-ledger/internal/platform/messaging/producers"
)

// LedgerServiceImpl implements the LedgerService interface
type LedgerServiceImpl struct {
	ledgerRepo      ledger.Repository
	approvalService ApprovalService
	producer        producers.MessagePublisher
	logger          *slog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(logger *slog.Logger, ledgerRepo ledger.Repository,
	approvalService ApprovalService, producer producers.MessagePublisher) LedgerService {
	return &LedgerServiceImpl{
		ledgerRepo:      ledgerRepo,
		approvalService: approvalService,
		producer:        producer,
		logger:          logger,
	}
}

// CreateLedger creates a new financial assistance ledger for a client
func (s *LedgerServiceImpl) CreateLedger(ctx context.Context, clientID, enrollmentID, householdID uuid.UUID,
	ledgerName string, isVawaProtected bool, createdBy string) (*ledger.FinancialLedger, error) {

	l := ledger.Create(clientID, enrollmentID, householdID, ledgerName, isVawaProtected, createdBy)
	if err := s.ledgerRepo.Save(ctx, l); err != nil {
		s.logger.Error("Failed to save new financial ledger",
			"client_id", clientID.String(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Financial ledger created",
		"ledger_id", l.ID.String(),
		"client_id", clientID.String(),
		"vawa_protected", isVawaProtected,
	)
	return l, nil
}

// GetOrCreateActiveLedger returns the client's active ledger, creating one
// with a default name when none exists
func (s *LedgerServiceImpl) GetOrCreateActiveLedger(ctx context.Context, clientID, enrollmentID, householdID uuid.UUID,
	createdBy string) (*ledger.FinancialLedger, error) {

	existing, err := s.ledgerRepo.FindByClientIDAndStatus(ctx, clientID, ledger.LedgerStatusActive)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := fmt.Sprintf("Financial Assistance Ledger - %s", clientID.String())
	return s.CreateLedger(ctx, clientID, enrollmentID, householdID, name, false, createdBy)
}

// GetLedgerByID retrieves a ledger by its ID
func (s *LedgerServiceImpl) GetLedgerByID(ctx context.Context, id uuid.UUID) (*ledger.FinancialLedger, error) {
	return s.ledgerRepo.FindByID(ctx, id)
}

// GetLedgersByClientID retrieves every ledger belonging to a client
func (s *LedgerServiceImpl) GetLedgersByClientID(ctx context.Context, clientID uuid.UUID) ([]*ledger.FinancialLedger, error) {
	return s.ledgerRepo.FindByClientID(ctx, clientID)
}

// SubmitTransaction validates and routes a transaction request. Payment
// requests at or above the two-person threshold open an approval workflow
// instead of being queued; the ledger write happens on final approval.
func (s *LedgerServiceImpl) SubmitTransaction(ctx context.Context, request *shared.LedgerTransactionRequest,
	requestedBy string) (*SubmissionResult, error) {

	if err := request.Validate(); err != nil {
		return nil, err
	}

	// The target ledger must exist before anything is queued
	if _, err := s.ledgerRepo.FindByID(ctx, request.LedgerID); err != nil {
		return nil, err
	}

	if request.Kind == shared.RequestKindPayment && approval.RequiresTwoPersonApproval(request.Amount) {
		purpose := fmt.Sprintf("%s to %s", request.PaymentSubtype.DisplayName(), request.PayeeName)
		workflow, err := s.approvalService.InitiateApproval(ctx, request, requestedBy, purpose)
		if err != nil {
			return nil, err
		}

		s.logger.Info("Transaction diverted to two-person approval",
			"transaction_id", request.TransactionID,
			"ledger_id", request.LedgerID.String(),
			"workflow_id", workflow.WorkflowID.String(),
			"amount", request.Amount.String(),
		)
		workflowID := workflow.WorkflowID
		return &SubmissionResult{
			TransactionID: request.TransactionID,
			Status:        SubmissionPendingApproval,
			WorkflowID:    &workflowID,
		}, nil
	}

	if err := s.producer.Publish(ctx, request.TransactionID, request); err != nil {
		s.logger.Error("Failed to publish ledger transaction request",
			"transaction_id", request.TransactionID,
			"ledger_id", request.LedgerID.String(),
			"kind", string(request.Kind),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Ledger transaction request published",
		"transaction_id", request.TransactionID,
		"ledger_id", request.LedgerID.String(),
		"kind", string(request.Kind),
		"amount", request.Amount.String(),
	)
	return &SubmissionResult{
		TransactionID: request.TransactionID,
		Status:        SubmissionQueued,
	}, nil
}

// RecordCommunication records landlord communication metadata on a ledger.
// The write is synchronous because it never affects balances.
func (s *LedgerServiceImpl) RecordCommunication(ctx context.Context, ledgerID uuid.UUID,
	landlordID, landlordName string, communicationType ledger.CommunicationType,
	subject, content string, communicationDate time.Time, recordedBy string) error {

	l, err := s.ledgerRepo.FindByID(ctx, ledgerID)
	if err != nil {
		return err
	}

	communicationID := uuid.New().String()
	if err := l.RecordLandlordCommunication(communicationID, landlordID, landlordName,
		communicationType, subject, content, communicationDate, recordedBy); err != nil {
		return err
	}

	return s.ledgerRepo.Save(ctx, l)
}

// AttachDocument attaches a supporting document to a ledger
func (s *LedgerServiceImpl) AttachDocument(ctx context.Context, ledgerID uuid.UUID,
	documentName, documentType, uploadedBy string, content []byte) error {

	l, err := s.ledgerRepo.FindByID(ctx, ledgerID)
	if err != nil {
		return err
	}

	documentID := uuid.New().String()
	if err := l.AttachDocument(documentID, documentName, documentType, uploadedBy, content); err != nil {
		return err
	}

	return s.ledgerRepo.Save(ctx, l)
}

// CloseLedger closes a balanced ledger
func (s *LedgerServiceImpl) CloseLedger(ctx context.Context, ledgerID uuid.UUID, reason, closedBy string) error {
	l, err := s.ledgerRepo.FindByID(ctx, ledgerID)
	if err != nil {
		return err
	}

	if err := l.Close(reason, closedBy); err != nil {
		return err
	}

	if err := s.ledgerRepo.Save(ctx, l); err != nil {
		return err
	}

	s.logger.Info("Financial ledger closed",
		"ledger_id", ledgerID.String(),
		"closed_by", closedBy,
	)
	return nil
}

// GetLandlordView projects a ledger for landlord access with VAWA redaction
func (s *LedgerServiceImpl) GetLandlordView(ctx context.Context, ledgerID uuid.UUID, landlordID string) (*vawa.LandlordView, error) {
	l, err := s.ledgerRepo.FindByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	view := vawa.CreateLandlordView(l, landlordID)
	return &view, nil
}
