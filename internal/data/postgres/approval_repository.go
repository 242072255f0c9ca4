// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the financial ledger system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/platform/persistence"
)

// ApprovalRepository implements the approval.Repository interface for PostgreSQL
type ApprovalRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewApprovalRepository creates a new PostgreSQL approval repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewApprovalRepository(logger *slog.Logger, db *persistence.PostgresDB) approval.Repository {
	return &ApprovalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls
func (r *ApprovalRepository) WithTx(tx pgx.Tx) approval.Repository {
	return &ApprovalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Save upserts the workflow row and inserts any sign-off records not yet
// stored. Approval records are immutable once written.
func (r *ApprovalRepository) Save(ctx context.Context, w *approval.Workflow) error {
	query := `
		INSERT INTO approval_workflows (
			workflow_id, ledger_id, transaction_id, amount, payee_id, payee_name, purpose,
			required_approvals, allowed_roles, requires_supervisor, requirement_description,
			status, requested_by, requested_at, rejected_by, rejection_reason, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (workflow_id) DO UPDATE SET
			status = EXCLUDED.status,
			rejected_by = EXCLUDED.rejected_by,
			rejection_reason = EXCLUDED.rejection_reason,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.querier.Exec(ctx, query,
		w.WorkflowID,
		w.LedgerID,
		w.TransactionID,
		w.Amount,
		w.PayeeID,
		w.PayeeName,
		w.Purpose,
		w.Requirement.RequiredApprovals,
		w.Requirement.AllowedRoles,
		w.Requirement.RequiresSupervisor,
		w.Requirement.Description,
		w.Status,
		w.RequestedBy,
		w.RequestedAt,
		w.RejectedBy,
		w.RejectionReason,
		w.CompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save approval workflow",
			"workflow_id", w.WorkflowID.String(),
			"error", err)
		return fmt.Errorf("failed to save approval workflow: %w", err)
	}

	recordQuery := `
		INSERT INTO approval_records (approval_id, workflow_id, approver_id, approver_role, approver_name, comments, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (approval_id) DO NOTHING
	`
	for _, rec := range w.Approvals {
		_, err := r.querier.Exec(ctx, recordQuery,
			rec.ApprovalID,
			w.WorkflowID,
			rec.ApproverID,
			rec.ApproverRole,
			rec.ApproverName,
			rec.Comments,
			rec.ApprovedAt,
		)
		if err != nil {
			r.logger.Error("Failed to save approval record",
				"workflow_id", w.WorkflowID.String(),
				"approval_id", rec.ApprovalID.String(),
				"error", err)
			return fmt.Errorf("failed to save approval record: %w", err)
		}
	}

	return nil
}

const workflowColumns = `
	workflow_id, ledger_id, transaction_id, amount, payee_id, payee_name, purpose,
	required_approvals, allowed_roles, requires_supervisor, requirement_description,
	status, requested_by, requested_at, rejected_by, rejection_reason, completed_at
`

// FindByID retrieves a workflow with its approval records
func (r *ApprovalRepository) FindByID(ctx context.Context, workflowID uuid.UUID) (*approval.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM approval_workflows WHERE workflow_id = $1`

	w, err := r.scanWorkflow(r.querier.QueryRow(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrWorkflowNotFound{WorkflowID: workflowID}
		}
		r.logger.Error("Failed to get approval workflow",
			"workflow_id", workflowID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get approval workflow: %w", err)
	}

	if err := r.loadApprovals(ctx, []*approval.Workflow{w}); err != nil {
		return nil, err
	}
	return w, nil
}

// FindByStatus retrieves workflows in the given status, newest first
func (r *ApprovalRepository) FindByStatus(ctx context.Context, status approval.Status) ([]*approval.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM approval_workflows WHERE status = $1 ORDER BY requested_at DESC`
	return r.queryWorkflows(ctx, query, status)
}

// FindPendingByRole retrieves pending workflows whose requirement allows the role
func (r *ApprovalRepository) FindPendingByRole(ctx context.Context, role string) ([]*approval.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM approval_workflows
		WHERE status = $1 AND $2 = ANY(allowed_roles)
		ORDER BY requested_at ASC
	`
	return r.queryWorkflows(ctx, query, approval.StatusPending, role)
}

// FindByDateRange retrieves workflows requested within [start, end] for audit
func (r *ApprovalRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*approval.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM approval_workflows
		WHERE requested_at >= $1 AND requested_at <= $2
		ORDER BY requested_at ASC
	`
	return r.queryWorkflows(ctx, query, start, end)
}

func (r *ApprovalRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*approval.Workflow, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query approval workflows", "error", err)
		return nil, fmt.Errorf("failed to query approval workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*approval.Workflow
	for rows.Next() {
		w, err := r.scanWorkflow(rows)
		if err != nil {
			r.logger.Error("Failed to scan approval workflow", "error", err)
			return nil, fmt.Errorf("failed to scan approval workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over approval workflows", "error", err)
		return nil, fmt.Errorf("error iterating over approval workflows: %w", err)
	}

	if err := r.loadApprovals(ctx, workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

func (r *ApprovalRepository) scanWorkflow(row pgx.Row) (*approval.Workflow, error) {
	var w approval.Workflow
	err := row.Scan(
		&w.WorkflowID,
		&w.LedgerID,
		&w.TransactionID,
		&w.Amount,
		&w.PayeeID,
		&w.PayeeName,
		&w.Purpose,
		&w.Requirement.RequiredApprovals,
		&w.Requirement.AllowedRoles,
		&w.Requirement.RequiresSupervisor,
		&w.Requirement.Description,
		&w.Status,
		&w.RequestedBy,
		&w.RequestedAt,
		&w.RejectedBy,
		&w.RejectionReason,
		&w.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// loadApprovals attaches sign-off records to the given workflows in one query
func (r *ApprovalRepository) loadApprovals(ctx context.Context, workflows []*approval.Workflow) error {
	if len(workflows) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(workflows))
	byID := make(map[uuid.UUID]*approval.Workflow, len(workflows))
	for _, w := range workflows {
		ids = append(ids, w.WorkflowID)
		byID[w.WorkflowID] = w
	}

	query := `
		SELECT approval_id, workflow_id, approver_id, approver_role, approver_name, comments, approved_at
		FROM approval_records
		WHERE workflow_id = ANY($1)
		ORDER BY approved_at ASC
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to query approval records", "error", err)
		return fmt.Errorf("failed to query approval records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec approval.Record
		var workflowID uuid.UUID
		err := rows.Scan(
			&rec.ApprovalID,
			&workflowID,
			&rec.ApproverID,
			&rec.ApproverRole,
			&rec.ApproverName,
			&rec.Comments,
			&rec.ApprovedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan approval record", "error", err)
			return fmt.Errorf("failed to scan approval record: %w", err)
		}
		if w, ok := byID[workflowID]; ok {
			w.Approvals = append(w.Approvals, rec)
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over approval records", "error", err)
		return fmt.Errorf("error iterating over approval records: %w", err)
	}

	return nil
}
