package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haven-hmis/haven-ledger/internal/api_gateway/service"
	"github.com/haven-hmis/haven-ledger/internal/domain/approval"
	"github.com/haven-hmis/haven-ledger/internal/domain/shared"
)

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) InitiateApproval(ctx context.Context, request *shared.LedgerTransactionRequest,
	requestedBy, purpose string) (*approval.Workflow, error) {
	args := m.Called(ctx, request, requestedBy, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) AddApproval(ctx context.Context, workflowID uuid.UUID,
	approverID, approverRole, approverName, comments string) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID, approverID, approverRole, approverName, comments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) RejectApproval(ctx context.Context, workflowID uuid.UUID,
	rejectedBy, reason string) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID, rejectedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) GetWorkflow(ctx context.Context, workflowID uuid.UUID) (*approval.Workflow, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) GetPendingForApprover(ctx context.Context, userID, userRole string) ([]*approval.Workflow, error) {
	args := m.Called(ctx, userID, userRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}

func (m *MockApprovalService) GetHistory(ctx context.Context, start, end time.Time) ([]*approval.Workflow, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Workflow), args.Error(1)
}

func testWorkflow() *approval.Workflow {
	return approval.NewWorkflow(uuid.New(), "txn-1", decimal.RequireFromString("3000.00"),
		"LANDLORD_42", "Oak Street Properties", "Rent to Oak Street Properties",
		"case.manager@example.org", time.Now())
}

func TestApprovalHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		w := testWorkflow()
		mockService.On("GetWorkflow", mock.Anything, w.WorkflowID).Return(w, nil)

		router := setupTestRouter()
		router.GET("/approvals/:id", h.GetByID)

		req := httptest.NewRequest(http.MethodGet, "/approvals/"+w.WorkflowID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data WorkflowResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, w.WorkflowID.String(), resp.Data.WorkflowID)
		assert.Equal(t, "PENDING", resp.Data.Status)
		assert.Equal(t, 2, resp.Data.RequiredApprovals)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		id := uuid.New()
		mockService.On("GetWorkflow", mock.Anything, id).
			Return(nil, approval.ErrWorkflowNotFound{WorkflowID: id})

		router := setupTestRouter()
		router.GET("/approvals/:id", h.GetByID)

		req := httptest.NewRequest(http.MethodGet, "/approvals/"+id.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApprovalHandler_Approve(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	approveBody := func(role string) []byte {
		body, _ := json.Marshal(AddApprovalRequest{
			ApproverID:   "user-2",
			ApproverRole: role,
			ApproverName: "Second Approver",
			Comments:     "verified against the lease",
		})
		return body
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		w := testWorkflow()
		mockService.On("AddApproval", mock.Anything, w.WorkflowID,
			"user-2", approval.RoleCaseManager, "Second Approver", "verified against the lease").
			Return(w, nil)

		router := setupTestRouter()
		router.POST("/approvals/:id/approvals", h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/approvals/"+w.WorkflowID.String()+"/approvals",
			bytes.NewBuffer(approveBody("CASE_MANAGER")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NotAllowedReturns403", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		workflowID := uuid.New()
		mockService.On("AddApproval", mock.Anything, workflowID,
			"user-2", approval.RoleCaseManager, "Second Approver", "verified against the lease").
			Return(nil, fmt.Errorf("%w: requester cannot approve their own request", service.ErrApprovalNotAllowed))

		router := setupTestRouter()
		router.POST("/approvals/:id/approvals", h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/approvals/"+workflowID.String()+"/approvals",
			bytes.NewBuffer(approveBody("CASE_MANAGER")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("UnknownRoleRejected", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/approvals/:id/approvals", h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/approvals/"+uuid.New().String()+"/approvals",
			bytes.NewBuffer(approveBody("INTERN")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "AddApproval")
	})

	t.Run("SettledWorkflowConflict", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		workflowID := uuid.New()
		mockService.On("AddApproval", mock.Anything, workflowID,
			"user-2", approval.RoleCaseManager, "Second Approver", "verified against the lease").
			Return(nil, approval.ErrNotPending)

		router := setupTestRouter()
		router.POST("/approvals/:id/approvals", h.Approve)

		req := httptest.NewRequest(http.MethodPost, "/approvals/"+workflowID.String()+"/approvals",
			bytes.NewBuffer(approveBody("CASE_MANAGER")))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestApprovalHandler_Reject(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		w := testWorkflow()
		require.NoError(t, w.Reject("supervisor@example.org", "Wrong payee", time.Now()))
		mockService.On("RejectApproval", mock.Anything, w.WorkflowID,
			"supervisor@example.org", "Wrong payee").Return(w, nil)

		router := setupTestRouter()
		router.POST("/approvals/:id/reject", h.Reject)

		body, _ := json.Marshal(RejectApprovalRequest{RejectedBy: "supervisor@example.org", Reason: "Wrong payee"})
		req := httptest.NewRequest(http.MethodPost, "/approvals/"+w.WorkflowID.String()+"/reject",
			bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data WorkflowResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "REJECTED", resp.Data.Status)
		assert.Equal(t, "Wrong payee", resp.Data.RejectionReason)
	})

	t.Run("MissingReasonRejected", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/approvals/:id/reject", h.Reject)

		req := httptest.NewRequest(http.MethodPost, "/approvals/"+uuid.New().String()+"/reject",
			bytes.NewBufferString(`{"rejected_by":"supervisor@example.org"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RejectApproval")
	})
}

func TestApprovalHandler_GetPending(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		mockService.On("GetPendingForApprover", mock.Anything, "user-2", approval.RoleFinancialAdmin).
			Return([]*approval.Workflow{testWorkflow()}, nil)

		router := setupTestRouter()
		router.GET("/approvals/pending", h.GetPending)

		req := httptest.NewRequest(http.MethodGet,
			"/approvals/pending?user_id=user-2&user_role=FINANCIAL_ADMIN", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Workflows []WorkflowResponse `json:"workflows"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Data.Workflows, 1)
	})

	t.Run("MissingQueryParams", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/approvals/pending", h.GetPending)

		req := httptest.NewRequest(http.MethodGet, "/approvals/pending?user_id=user-2", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "GetPendingForApprover")
	})
}

func TestApprovalHandler_GetHistory(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ExplicitRange", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		mockService.On("GetHistory", mock.Anything, start, end).
			Return([]*approval.Workflow{}, nil)

		router := setupTestRouter()
		router.GET("/approvals/history", h.GetHistory)

		req := httptest.NewRequest(http.MethodGet,
			"/approvals/history?start=2025-01-01&end=2025-01-31", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("BadDateRejected", func(t *testing.T) {
		mockService := new(MockApprovalService)
		h := NewApprovalHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/approvals/history", h.GetHistory)

		req := httptest.NewRequest(http.MethodGet, "/approvals/history?start=January", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "GetHistory")
	})
}
