package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haven-hmis/haven-ledger/internal/api_gateway/middleware"
	"github.com/haven-hmis/haven-ledger/internal/api_gateway/service"
	"github.com/haven-hmis/haven-ledger/internal/domain/ledger"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

// LedgerHandler handles HTTP requests for financial ledger operations
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Create opens a new financial assistance ledger for a client
func (h *LedgerHandler) Create(c *gin.Context) {
	var req CreateLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	clientID, _ := uuid.Parse(req.ClientID)
	enrollmentID, _ := uuid.Parse(req.EnrollmentID)
	householdID, _ := uuid.Parse(req.HouseholdID)

	l, err := h.ledgerService.CreateLedger(c.Request.Context(), clientID, enrollmentID, householdID,
		req.LedgerName, req.IsVawaProtected, req.CreatedBy)
	if err != nil {
		h.logger.Error("Failed to create financial ledger", "client_id", req.ClientID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapLedgerToResponse(l, false))
}

// GetByID retrieves a ledger with its full entry history, returning 404 if not found
func (h *LedgerHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid ledger ID")
	if !ok {
		return
	}

	l, err := h.ledgerService.GetLedgerByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound{}) {
			RespondNotFound(c, "Financial ledger not found")
			return
		}
		h.logger.Error("Failed to get financial ledger", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapLedgerToResponse(l, true))
}

// GetByClientID lists every ledger belonging to a client
func (h *LedgerHandler) GetByClientID(c *gin.Context) {
	clientID, ok := parseUUIDParam(c, h.logger, "clientId", "Invalid client ID")
	if !ok {
		return
	}

	ledgers, err := h.ledgerService.GetLedgersByClientID(c.Request.Context(), clientID)
	if err != nil {
		h.logger.Error("Failed to list ledgers", "client_id", clientID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LedgerResponse, 0, len(ledgers))
	for _, l := range ledgers {
		responses = append(responses, mapLedgerToResponse(l, false))
	}
	RespondOK(c, gin.H{"ledgers": responses})
}

// SubmitTransaction accepts a payment, deposit, or arrears request. Requests
// below the two-person threshold are queued and answered 202; large payments
// come back 200 with the approval workflow that now gates them.
func (h *LedgerHandler) SubmitTransaction(c *gin.Context) {
	ledgerID, ok := parseUUIDParam(c, h.logger, "id", "Invalid ledger ID")
	if !ok {
		return
	}

	var req SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	request := &shared.LedgerTransactionRequest{
		TransactionID:     uuid.New().String(),
		LedgerID:          ledgerID,
		Kind:              shared.RequestKind(req.Kind),
		Amount:            amount,
		FundingSourceCode: req.FundingSourceCode,
		HudCategoryCode:   req.HudCategoryCode,
		PaymentSubtype:    ledger.PaymentSubtype(req.PaymentSubtype),
		ArrearsType:       ledger.ArrearsType(req.ArrearsType),
		AssistanceID:      req.AssistanceID,
		PayeeID:           req.PayeeID,
		PayeeName:         req.PayeeName,
		DepositSource:     req.DepositSource,
		PaymentDate:       req.PaymentDate,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		RecordedBy:        req.RequestedBy,
		CorrelationID:     middleware.GetCorrelationID(c),
		Timestamp:         time.Now(),
	}

	result, err := h.ledgerService.SubmitTransaction(c.Request.Context(), request, req.RequestedBy)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrLedgerNotFound{}):
			RespondNotFound(c, "Financial ledger not found")
		case errors.Is(err, shared.ErrInvalidRequestKind),
			errors.Is(err, ledger.ErrInvalidAmount):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to submit ledger transaction",
				"ledger_id", ledgerID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	resp := SubmissionResponse{
		TransactionID: result.TransactionID,
		Status:        string(result.Status),
	}
	if result.WorkflowID != nil {
		id := result.WorkflowID.String()
		resp.WorkflowID = &id
	}

	if result.Status == service.SubmissionPendingApproval {
		RespondOK(c, resp)
		return
	}
	RespondAccepted(c, resp)
}

// RecordCommunication stores landlord communication metadata on a ledger
func (h *LedgerHandler) RecordCommunication(c *gin.Context) {
	ledgerID, ok := parseUUIDParam(c, h.logger, "id", "Invalid ledger ID")
	if !ok {
		return
	}

	var req RecordCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.ledgerService.RecordCommunication(c.Request.Context(), ledgerID,
		req.LandlordID, req.LandlordName, ledger.CommunicationType(req.CommunicationType),
		req.Subject, req.Content, req.CommunicationDate, req.RecordedBy)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound{}) {
			RespondNotFound(c, "Financial ledger not found")
			return
		}
		h.logger.Error("Failed to record communication", "ledger_id", ledgerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, gin.H{"ledger_id": ledgerID.String()})
}

// AttachDocument attaches a supporting document to a ledger
func (h *LedgerHandler) AttachDocument(c *gin.Context) {
	ledgerID, ok := parseUUIDParam(c, h.logger, "id", "Invalid ledger ID")
	if !ok {
		return
	}

	var req AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.ledgerService.AttachDocument(c.Request.Context(), ledgerID,
		req.DocumentName, req.DocumentType, req.UploadedBy, req.Content)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound{}) {
			RespondNotFound(c, "Financial ledger not found")
			return
		}
		h.logger.Error("Failed to attach document", "ledger_id", ledgerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, gin.H{"ledger_id": ledgerID.String()})
}

// Close closes a balanced ledger; closing an unbalanced ledger is a conflict
func (h *LedgerHandler) Close(c *gin.Context) {
	ledgerID, ok := parseUUIDParam(c, h.logger, "id", "Invalid ledger ID")
	if !ok {
		return
	}

	var req CloseLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.ledgerService.CloseLedger(c.Request.Context(), ledgerID, req.Reason, req.ClosedBy)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrLedgerNotFound{}):
			RespondNotFound(c, "Financial ledger not found")
		case errors.Is(err, ledger.ErrLedgerUnbalanced),
			errors.Is(err, ledger.ErrLedgerAlreadyClosed):
			RespondConflict(c, err.Error())
		default:
			h.logger.Error("Failed to close ledger", "ledger_id", ledgerID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, gin.H{"ledger_id": ledgerID.String(), "status": string(ledger.LedgerStatusClosed)})
}

// GetLandlordView returns the ledger projection a landlord may see, with
// privacy redaction already applied
func (h *LedgerHandler) GetLandlordView(c *gin.Context) {
	ledgerID, ok := parseUUIDParam(c, h.logger, "id", "Invalid ledger ID")
	if !ok {
		return
	}

	landlordID := c.Query("landlord_id")
	if landlordID == "" {
		RespondBadRequest(c, "landlord_id query parameter is required")
		return
	}

	view, err := h.ledgerService.GetLandlordView(c.Request.Context(), ledgerID, landlordID)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerNotFound{}) {
			RespondNotFound(c, "Financial ledger not found")
			return
		}
		h.logger.Error("Failed to build landlord view", "ledger_id", ledgerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapLandlordViewToResponse(view))
}

// parseUUIDParam parses a path parameter as a UUID, answering 400 on failure
func parseUUIDParam(c *gin.Context, logger *slog.Logger, name, message string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Error("Invalid UUID path parameter", "param", name, "value", raw, "error", err)
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}
