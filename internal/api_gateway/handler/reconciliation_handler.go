package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/haven-hmis/haven-ledger/internal/api_gateway/service"
)

// ReconciliationHandler handles HTTP requests for reconciliation reporting
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// ReconcileFundingSource totals deposits against spending for one funding source
func (h *ReconciliationHandler) ReconcileFundingSource(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		RespondBadRequest(c, "Funding source code is required")
		return
	}

	rec, err := h.reconciliationService.ReconcileFundingSource(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("Failed to reconcile funding source", "funding_source_code", code, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, rec)
}

// DailySummary builds the daily control report over the requested funding sources
func (h *ReconciliationHandler) DailySummary(c *gin.Context) {
	var req DailySummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	summary, err := h.reconciliationService.DailySummary(c.Request.Context(), req.FundingSourceCodes)
	if err != nil {
		h.logger.Error("Failed to build daily reconciliation summary", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, summary)
}

// GetUnbalancedLedgers lists ledgers whose debit and credit totals disagree
func (h *ReconciliationHandler) GetUnbalancedLedgers(c *gin.Context) {
	infos, err := h.reconciliationService.FindUnbalancedLedgers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to find unbalanced ledgers", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"unbalanced_ledgers": infos})
}
