package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haven-hmis/haven-ledger/internal/api_gateway/handler"
	"github.com/haven-hmis/haven-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
	approvalHandler *handler.ApprovalHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	// CorrelationID runs first so recovery responses and request logs carry it
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Financial ledger operations
		ledgers := v1.Group("/ledgers")
		{
			ledgers.POST("", ledgerHandler.Create)
			ledgers.GET("/:id", ledgerHandler.GetByID)
			ledgers.POST("/:id/transactions", ledgerHandler.SubmitTransaction)
			ledgers.POST("/:id/communications", ledgerHandler.RecordCommunication)
			ledgers.POST("/:id/documents", ledgerHandler.AttachDocument)
			ledgers.POST("/:id/close", ledgerHandler.Close)
			ledgers.GET("/:id/landlord-view", ledgerHandler.GetLandlordView)
		}

		clients := v1.Group("/clients")
		{
			clients.GET("/:clientId/ledgers", ledgerHandler.GetByClientID)
		}

		// Two-person approval workflow
		approvals := v1.Group("/approvals")
		{
			approvals.GET("/pending", approvalHandler.GetPending)
			approvals.GET("/history", approvalHandler.GetHistory)
			approvals.GET("/:id", approvalHandler.GetByID)
			approvals.POST("/:id/approvals", approvalHandler.Approve)
			approvals.POST("/:id/reject", approvalHandler.Reject)
		}

		// Reconciliation reporting
		reconciliation := v1.Group("/reconciliation")
		{
			reconciliation.GET("/funding-sources/:code", reconciliationHandler.ReconcileFundingSource)
			reconciliation.POST("/daily-summary", reconciliationHandler.DailySummary)
			reconciliation.GET("/unbalanced", reconciliationHandler.GetUnbalancedLedgers)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
