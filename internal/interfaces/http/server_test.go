package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/application/workflow"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/commission"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// fakeCommission implements service.CommissionService with canned results
type fakeCommission struct {
	service.CommissionService
	resolveErr error
	sale       *entity.Sale
	createErr  error
	setErr     error
	confirmErr error
	lastActor  string
}

func (f *fakeCommission) Resolve(calc string, rateOrAmount decimal.Decimal, base commission.Base) (decimal.Decimal, error) {
	if f.resolveErr != nil {
		return decimal.Zero, f.resolveErr
	}
	return base.SaleValue.Mul(rateOrAmount).Div(decimal.NewFromInt(100)), nil
}

func (f *fakeCommission) CreateSale(ctx context.Context, in service.SaleInput, actor string) (*entity.Sale, *service.AllocationResult, error) {
	f.lastActor = actor
	if f.createErr != nil {
		return nil, nil, f.createErr
	}
	return &entity.Sale{ID: 1, Name: in.Name, State: entity.SaleStateDraft}, &service.AllocationResult{}, nil
}

func (f *fakeCommission) GetSale(ctx context.Context, id int64) (*entity.Sale, error) {
	if f.sale == nil || f.sale.ID != id {
		return nil, service.ErrSaleNotFound
	}
	return f.sale, nil
}

func (f *fakeCommission) ListSales(ctx context.Context, limit, offset int) ([]*entity.Sale, error) {
	return nil, nil
}

func (f *fakeCommission) SetBeneficiaries(ctx context.Context, saleID int64, rows []service.BeneficiaryInput) (*entity.Sale, *service.AllocationResult, error) {
	return nil, nil, f.setErr
}

func (f *fakeCommission) ConfirmSale(ctx context.Context, saleID int64, actor string) (*entity.Sale, []*entity.CommissionPurchaseOrder, error) {
	if f.confirmErr != nil {
		return nil, nil, f.confirmErr
	}
	return &entity.Sale{ID: saleID, State: entity.SaleStateConfirmed},
		[]*entity.CommissionPurchaseOrder{{ID: 1, Reference: "CPO/S1/1"}}, nil
}

// fakeEngine implements workflow.WorkflowEngine
type fakeEngine struct {
	workflow.WorkflowEngine
	err        error
	lastTarget approval.State
	lastReason string
}

func (f *fakeEngine) Transition(ctx context.Context, id int64, target approval.State, actor, reason string) (*entity.ApprovalRecord, error) {
	f.lastTarget, f.lastReason = target, reason
	if f.err != nil {
		return nil, f.err
	}
	return &entity.ApprovalRecord{ID: id, State: target}, nil
}

func (f *fakeEngine) ApproveTransfer(ctx context.Context, id int64, actor string) (*entity.ApprovalRecord, error) {
	return f.Transition(ctx, id, approval.StateApproved, actor, "")
}

func (f *fakeEngine) RejectTransfer(ctx context.Context, id int64, actor, reason string) (*entity.ApprovalRecord, error) {
	return f.Transition(ctx, id, approval.StateRejected, actor, reason)
}

func (f *fakeEngine) AvailableTargets(ctx context.Context, id int64, actor string) ([]approval.State, error) {
	return []approval.State{approval.StateApproved, approval.StateRejected}, nil
}

// fakeReports implements service.ReportService
type fakeReports struct{}

var _ service.ReportService = fakeReports{}

func (fakeReports) SaleStatement(ctx context.Context, saleID int64) ([]byte, error) {
	if saleID != 1 {
		return nil, service.ErrSaleNotFound
	}
	return []byte("PK-statement"), nil
}

func (fakeReports) AllocationSummary(ctx context.Context, state string) ([]byte, error) {
	return []byte("PK-summary"), nil
}

func (fakeReports) ArchiveStatement(ctx context.Context, saleID int64) (string, error) {
	return fmt.Sprintf("statements/commission-statement-%d.xlsx", saleID), nil
}

func (fakeReports) HandleSaleConfirmed(ctx context.Context, evt *event.Event) error {
	return nil
}

// fakeLeads implements service.LeadService
type fakeLeads struct {
	service.LeadService
}

func (fakeLeads) ScoreLead(ctx context.Context, id int64) (*entity.Lead, error) {
	return nil, service.ErrScoringDisabled
}

type fakeHealth map[string]error

func (f fakeHealth) Health(ctx context.Context) map[string]error {
	return f
}

type fixture struct {
	server     *Server
	commission *fakeCommission
	engine     *fakeEngine
}

func newFixture(health HealthChecker) *fixture {
	fc := &fakeCommission{sale: &entity.Sale{ID: 7, Name: "S0007"}}
	fe := &fakeEngine{}
	h := NewHandlers(Deps{
		Commission: fc,
		Engine:     fe,
		Leads:      fakeLeads{},
		Reports:    fakeReports{},
		Health:     health,
		Version:    "test",
	}, nopLogger{})
	cfg := DefaultServerConfig()
	cfg.Mode = "test"
	return &fixture{server: NewServer(cfg, h, nopLogger{}), commission: fc, engine: fe}
}

func (f *fixture) do(t *testing.T, method, path, actor string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)

	var resp Response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(fakeHealth{"database": nil})
	w, resp := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	f = newFixture(fakeHealth{"database": errors.New("disk I/O error")})
	w, resp = f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestResolveCommission(t *testing.T) {
	f := newFixture(nil)
	w, resp := f.do(t, http.MethodPost, "/api/commission/resolve", "", map[string]string{
		"calc_type": "pct_sale_value", "rate_or_amount": "2", "sale_value": "1000000",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20000", resp.Data.(map[string]interface{})["amount"])

	f.commission.resolveErr = fmt.Errorf("resolve: %w", commission.ErrUnknownCalcType)
	w, resp = f.do(t, http.MethodPost, "/api/commission/resolve", "", map[string]string{"calc_type": "bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeValidation, resp.Code)
}

func TestResolveCommission_BadBody(t *testing.T) {
	f := newFixture(nil)
	w, resp := f.do(t, http.MethodPost, "/api/commission/resolve", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeBadRequest, resp.Code)
}

func TestCreateSale_RequiresActor(t *testing.T) {
	f := newFixture(nil)
	w, resp := f.do(t, http.MethodPost, "/api/sales", "", map[string]string{"name": "S1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeMissingActor, resp.Code)

	w, resp = f.do(t, http.MethodPost, "/api/sales", "42", map[string]string{"name": "S1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "42", f.commission.lastActor)
}

func TestCreateSale_OverAllocation(t *testing.T) {
	f := newFixture(nil)
	f.commission.createErr = &commission.OverAllocationError{
		Total: decimal.NewFromInt(110), Ceiling: decimal.NewFromInt(100), Excess: decimal.NewFromInt(10),
	}

	w, resp := f.do(t, http.MethodPost, "/api/sales", "42", map[string]string{"name": "S1"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeOverAllocation, resp.Code)
	assert.Contains(t, resp.Error, "exceeds untaxed total")
}

func TestGetSale(t *testing.T) {
	f := newFixture(nil)

	w, _ := f.do(t, http.MethodGet, "/api/sales/7", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := f.do(t, http.MethodGet, "/api/sales/8", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, resp.Code)

	w, _ = f.do(t, http.MethodGet, "/api/sales/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSales_EmptyIsArray(t *testing.T) {
	f := newFixture(nil)
	w, _ := f.do(t, http.MethodGet, "/api/sales?limit=500", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestSetBeneficiaries_Locked(t *testing.T) {
	f := newFixture(nil)
	f.commission.setErr = service.ErrSaleLocked

	w, resp := f.do(t, http.MethodPut, "/api/sales/7/beneficiaries", "42", BeneficiariesRequest{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeSaleLocked, resp.Code)
}

func TestConfirmSale(t *testing.T) {
	f := newFixture(nil)
	w, resp := f.do(t, http.MethodPost, "/api/sales/7/confirm", "42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["purchase_orders"], 1)

	f.commission.confirmErr = service.ErrSaleState
	w, resp = f.do(t, http.MethodPost, "/api/sales/7/confirm", "42", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeSaleState, resp.Code)

	f.commission.confirmErr = &commission.BeneficiaryError{Index: 2, Role: commission.RoleOther, Err: commission.ErrMissingPartner}
	w, resp = f.do(t, http.MethodPost, "/api/sales/7/confirm", "42", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "no partner")
}

func TestSaleStatement(t *testing.T) {
	f := newFixture(nil)

	w, _ := f.do(t, http.MethodGet, "/api/sales/1/statement.xlsx", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "commission-statement-1.xlsx")
	assert.Equal(t, "PK-statement", w.Body.String())

	w, _ = f.do(t, http.MethodGet, "/api/sales/2/statement.xlsx", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/reports/allocation-summary.xlsx?state=confirmed", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApproveRecord_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not authorized", &approval.TransitionError{Kind: approval.KindNotAuthorized, From: approval.StateUnderReview, To: approval.StateApproved, Actor: "5"}, http.StatusForbidden, CodeNotAuthorized},
		{"already approved", &approval.TransitionError{Kind: approval.KindAlreadyInState, From: approval.StateApproved, To: approval.StateApproved}, http.StatusConflict, CodeAlreadyInState},
		{"illegal", &approval.TransitionError{Kind: approval.KindIllegalTransition, From: approval.StateDraft, To: approval.StateApproved}, http.StatusConflict, CodeIllegalTransition},
		{"not found", service.ErrRecordNotFound, http.StatusNotFound, CodeNotFound},
		{"stale", fmt.Errorf("save: %w", port.ErrStaleRecord), http.StatusConflict, CodeConflict},
		{"internal", errors.New("disk full"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			f.engine.err = tt.err

			w, resp := f.do(t, http.MethodPost, "/api/approvals/1/approve", "5", nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, resp.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestInternalErrorMessageHidden(t *testing.T) {
	f := newFixture(nil)
	f.engine.err = errors.New("sql: connection refused at 10.0.0.5")

	_, resp := f.do(t, http.MethodPost, "/api/approvals/1/approve", "5", nil)
	assert.Equal(t, "approve record failed", resp.Error)
}

func TestTransitionRecord(t *testing.T) {
	f := newFixture(nil)

	w, resp := f.do(t, http.MethodPost, "/api/approvals/3/transition", "rev", TransitionRequest{Target: "under_review"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, approval.StateUnderReview, f.engine.lastTarget)

	w, _ = f.do(t, http.MethodPost, "/api/approvals/3/transition", "rev", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.engine.err = workflow.ErrReasonRequired
	w, resp = f.do(t, http.MethodPost, "/api/approvals/3/transition", "rev", TransitionRequest{Target: "rejected"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeValidation, resp.Code)
}

func TestRejectRecord_PassesReason(t *testing.T) {
	f := newFixture(nil)

	w, _ := f.do(t, http.MethodPost, "/api/approvals/3/reject", "7", ReasonRequest{Reason: "wrong IBAN"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, approval.StateRejected, f.engine.lastTarget)
	assert.Equal(t, "wrong IBAN", f.engine.lastReason)
}

func TestAvailableTargets(t *testing.T) {
	f := newFixture(nil)

	w, resp := f.do(t, http.MethodGet, "/api/approvals/3/targets", "7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"approved", "rejected"}, resp.Data)
}

func TestScoreLead_Disabled(t *testing.T) {
	f := newFixture(nil)

	w, resp := f.do(t, http.MethodPost, "/api/leads/1/score", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeUnavailable, resp.Code)
}
