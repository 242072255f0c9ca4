package approval

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists approval workflows and their sign-off records
type Repository interface {
	Save(ctx context.Context, w *Workflow) error
	FindByID(ctx context.Context, workflowID uuid.UUID) (*Workflow, error)
	FindByStatus(ctx context.Context, status Status) ([]*Workflow, error)

	// FindPendingByRole returns pending workflows whose requirement allows
	// the given approver role
	FindPendingByRole(ctx context.Context, role string) ([]*Workflow, error)

	// FindByDateRange returns workflows requested within [start, end] for audit
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*Workflow, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrWorkflowNotFound indicates a missing approval workflow
type ErrWorkflowNotFound struct {
	WorkflowID uuid.UUID
}

func (e ErrWorkflowNotFound) Error() string {
	return "approval workflow not found: " + e.WorkflowID.String()
}

// Is implements the errors.Is interface for ErrWorkflowNotFound
func (e ErrWorkflowNotFound) Is(target error) bool {
	t, ok := target.(ErrWorkflowNotFound)
	if !ok {
		return false
	}
	if t.WorkflowID == uuid.Nil {
		return true
	}
	return e.WorkflowID == t.WorkflowID
}
