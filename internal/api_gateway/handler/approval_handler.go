package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haven-hmis/haven-ledger/internal/api_gateway/service"
	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
)

// ApprovalHandler handles HTTP requests for the two-person approval workflow
type ApprovalHandler struct {
	approvalService service.ApprovalService
	logger          *slog.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(logger *slog.Logger, approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService: approvalService,
		logger:          logger,
	}
}

// GetByID retrieves a workflow by its ID, returning 404 if not found
func (h *ApprovalHandler) GetByID(c *gin.Context) {
	workflowID, ok := parseUUIDParam(c, h.logger, "id", "Invalid workflow ID")
	if !ok {
		return
	}

	w, err := h.approvalService.GetWorkflow(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, approval.ErrWorkflowNotFound{}) {
			RespondNotFound(c, "Approval workflow not found")
			return
		}
		h.logger.Error("Failed to get approval workflow", "workflow_id", workflowID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapWorkflowToResponse(w))
}

// GetPending lists the pending workflows the calling user may approve
func (h *ApprovalHandler) GetPending(c *gin.Context) {
	userID := c.Query("user_id")
	userRole := c.Query("user_role")
	if userID == "" || userRole == "" {
		RespondBadRequest(c, "user_id and user_role query parameters are required")
		return
	}

	workflows, err := h.approvalService.GetPendingForApprover(c.Request.Context(), userID, userRole)
	if err != nil {
		h.logger.Error("Failed to list pending approvals", "user_id", userID, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]WorkflowResponse, 0, len(workflows))
	for _, w := range workflows {
		responses = append(responses, mapWorkflowToResponse(w))
	}
	RespondOK(c, gin.H{"workflows": responses})
}

// Approve records one approver's sign-off. A completed workflow comes back
// APPROVED with the gated transaction already written to the ledger, or
// FAILED when that write was rejected.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	workflowID, ok := parseUUIDParam(c, h.logger, "id", "Invalid workflow ID")
	if !ok {
		return
	}

	var req AddApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.approvalService.AddApproval(c.Request.Context(), workflowID,
		req.ApproverID, req.ApproverRole, req.ApproverName, req.Comments)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrWorkflowNotFound{}):
			RespondNotFound(c, "Approval workflow not found")
		case errors.Is(err, service.ErrApprovalNotAllowed):
			RespondForbidden(c, err.Error())
		case errors.Is(err, approval.ErrNotPending),
			errors.Is(err, approval.ErrDuplicateApprover):
			RespondConflict(c, err.Error())
		default:
			h.logger.Error("Failed to record approval", "workflow_id", workflowID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapWorkflowToResponse(w))
}

// Reject rejects a pending workflow
func (h *ApprovalHandler) Reject(c *gin.Context) {
	workflowID, ok := parseUUIDParam(c, h.logger, "id", "Invalid workflow ID")
	if !ok {
		return
	}

	var req RejectApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.approvalService.RejectApproval(c.Request.Context(), workflowID, req.RejectedBy, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrWorkflowNotFound{}):
			RespondNotFound(c, "Approval workflow not found")
		case errors.Is(err, approval.ErrNotPending):
			RespondConflict(c, err.Error())
		default:
			h.logger.Error("Failed to reject workflow", "workflow_id", workflowID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapWorkflowToResponse(w))
}

// GetHistory lists workflows requested within a date range for audit review
func (h *ApprovalHandler) GetHistory(c *gin.Context) {
	start, err := parseDateQuery(c, "start", time.Now().AddDate(0, -1, 0))
	if err != nil {
		RespondBadRequest(c, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := parseDateQuery(c, "end", time.Now())
	if err != nil {
		RespondBadRequest(c, "Invalid end date, expected YYYY-MM-DD")
		return
	}

	workflows, err := h.approvalService.GetHistory(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("Failed to load approval history", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]WorkflowResponse, 0, len(workflows))
	for _, w := range workflows {
		responses = append(responses, mapWorkflowToResponse(w))
	}
	RespondOK(c, gin.H{"workflows": responses})
}

func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", raw)
}
