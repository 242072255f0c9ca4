package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflow(t *testing.T, amount string) *Workflow {
	t.Helper()
	w := NewWorkflow(uuid.New(), "txn-1", decimal.RequireFromString(amount),
		"LANDLORD_1", "Oak Apartments", "Security deposit and first month rent",
		"case_manager_1", time.Now())
	require.NotNil(t, w)
	return w
}

func approvalBy(userID, role string) Record {
	return Record{
		ApprovalID:   uuid.New(),
		ApproverID:   userID,
		ApproverRole: role,
		ApproverName: userID,
		ApprovedAt:   time.Now(),
	}
}

func TestRequiresTwoPersonApproval(t *testing.T) {
	cases := []struct {
		amount   string
		required bool
	}{
		{"2499.99", false},
		{"2500.00", true},
		{"2500.01", true},
		{"10000.00", true},
		{"0.01", false},
	}

	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			assert.Equal(t, tc.required, RequiresTwoPersonApproval(decimal.RequireFromString(tc.amount)))
		})
	}
}

func TestDetermineRequirement(t *testing.T) {
	t.Run("BelowThreshold", func(t *testing.T) {
		req := DetermineRequirement(decimal.RequireFromString("2499.99"))
		assert.Equal(t, 1, req.RequiredApprovals)
		assert.False(t, req.RequiresSupervisor)
		assert.Equal(t, "Standard disbursement", req.Description)
	})

	t.Run("LargeDisbursement", func(t *testing.T) {
		req := DetermineRequirement(decimal.RequireFromString("2500.00"))
		assert.Equal(t, 2, req.RequiredApprovals)
		assert.ElementsMatch(t, []string{RoleCaseManager, RoleFinancialAdmin}, req.AllowedRoles)
		assert.False(t, req.RequiresSupervisor)
		assert.Equal(t, "Large disbursement over $2,500", req.Description)
	})

	t.Run("CriticalDisbursement", func(t *testing.T) {
		req := DetermineRequirement(decimal.RequireFromString("10000.00"))
		assert.Equal(t, 2, req.RequiredApprovals)
		assert.ElementsMatch(t, []string{RoleFinancialAdmin, RoleSupervisor}, req.AllowedRoles)
		assert.True(t, req.RequiresSupervisor)
		assert.Equal(t, "Critical disbursement over $10,000", req.Description)
	})
}

func TestNewWorkflow(t *testing.T) {
	w := newTestWorkflow(t, "3000.00")

	assert.NotEqual(t, uuid.Nil, w.WorkflowID)
	assert.Equal(t, StatusPending, w.Status)
	assert.Equal(t, "case_manager_1", w.RequestedBy)
	assert.Equal(t, 2, w.Requirement.RequiredApprovals)
	assert.Empty(t, w.Approvals)
	assert.Nil(t, w.CompletedAt)
}

func TestAddApproval(t *testing.T) {
	t.Run("CollectsApprovalsUntilComplete", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")

		require.NoError(t, w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin)))
		assert.False(t, w.IsComplete())
		assert.Equal(t, StatusPending, w.Status)

		require.NoError(t, w.AddApproval(approvalBy("case_manager_2", RoleCaseManager)))
		assert.True(t, w.IsComplete())
	})

	t.Run("RejectsDuplicateApprover", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		require.NoError(t, w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin)))

		err := w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin))
		assert.ErrorIs(t, err, ErrDuplicateApprover)
		assert.Len(t, w.Approvals, 1)
	})

	t.Run("RejectsApprovalOnSettledWorkflow", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		require.NoError(t, w.Reject("supervisor_1", "wrong payee", time.Now()))

		err := w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin))
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestCanApprove(t *testing.T) {
	t.Run("RequesterCannotSelfApprove", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		ok, reason := w.CanApprove("case_manager_1", RoleCaseManager)
		assert.False(t, ok)
		assert.NotEmpty(t, reason)
	})

	t.Run("DisallowedRoleCannotApprove", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		ok, _ := w.CanApprove("supervisor_1", RoleSupervisor)
		assert.False(t, ok)
	})

	t.Run("AllowedRoleCanApprove", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		ok, reason := w.CanApprove("fin_admin_1", RoleFinancialAdmin)
		assert.True(t, ok, reason)
	})

	t.Run("CriticalWorkflowRequiresSupervisorFirst", func(t *testing.T) {
		w := newTestWorkflow(t, "12000.00")

		ok, _ := w.CanApprove("fin_admin_1", RoleFinancialAdmin)
		assert.False(t, ok, "non-supervisor cannot approve before a supervisor has")

		ok, _ = w.CanApprove("supervisor_1", RoleSupervisor)
		assert.True(t, ok)

		require.NoError(t, w.AddApproval(approvalBy("supervisor_1", RoleSupervisor)))

		ok, _ = w.CanApprove("fin_admin_1", RoleFinancialAdmin)
		assert.True(t, ok, "non-supervisor may approve once a supervisor has")
	})

	t.Run("ApproverCannotApproveTwice", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		require.NoError(t, w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin)))

		ok, _ := w.CanApprove("fin_admin_1", RoleFinancialAdmin)
		assert.False(t, ok)
	})
}

func TestApprove(t *testing.T) {
	w := newTestWorkflow(t, "3000.00")
	require.NoError(t, w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin)))
	require.NoError(t, w.AddApproval(approvalBy("case_manager_2", RoleCaseManager)))

	completedAt := time.Now()
	require.NoError(t, w.Approve(completedAt))

	assert.Equal(t, StatusApproved, w.Status)
	require.NotNil(t, w.CompletedAt)
	assert.True(t, w.CompletedAt.Equal(completedAt))
}

func TestReject(t *testing.T) {
	t.Run("RecordsRejectionDetails", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		require.NoError(t, w.Reject("supervisor_1", "duplicate request", time.Now()))

		assert.Equal(t, StatusRejected, w.Status)
		assert.Equal(t, "supervisor_1", w.RejectedBy)
		assert.Equal(t, "duplicate request", w.RejectionReason)
	})

	t.Run("RejectsSettledWorkflow", func(t *testing.T) {
		w := newTestWorkflow(t, "3000.00")
		require.NoError(t, w.Reject("supervisor_1", "duplicate request", time.Now()))
		assert.ErrorIs(t, w.Reject("supervisor_2", "again", time.Now()), ErrNotPending)
	})
}

func TestFail(t *testing.T) {
	w := newTestWorkflow(t, "3000.00")
	require.NoError(t, w.AddApproval(approvalBy("fin_admin_1", RoleFinancialAdmin)))
	require.NoError(t, w.AddApproval(approvalBy("case_manager_2", RoleCaseManager)))
	require.NoError(t, w.Approve(time.Now()))

	cause := errors.New("ledger is closed")
	w.Fail("Transaction processing failed: ledger is closed", cause, time.Now())

	assert.Equal(t, StatusFailed, w.Status)
	assert.Equal(t, "Transaction processing failed: ledger is closed", w.RejectionReason)
	assert.ErrorIs(t, w.FailureCause(), cause)
}
