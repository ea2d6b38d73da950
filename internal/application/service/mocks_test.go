package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/osusproperties/brokerage-core/internal/application/dispatcher"
	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
)

// Mock repositories

type mockSaleRepo struct {
	sales     map[int64]*entity.Sale
	createErr error
}

func newMockSaleRepo() *mockSaleRepo {
	return &mockSaleRepo{sales: make(map[int64]*entity.Sale)}
}

func copySale(s *entity.Sale) *entity.Sale {
	cp := *s
	cp.Beneficiaries = append([]entity.SaleBeneficiary(nil), s.Beneficiaries...)
	return &cp
}

func (m *mockSaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	if m.createErr != nil {
		return m.createErr
	}
	sale.ID = int64(len(m.sales) + 1)
	m.sales[sale.ID] = copySale(sale)
	return nil
}

func (m *mockSaleRepo) GetByID(ctx context.Context, id int64) (*entity.Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	return copySale(s), nil
}

func (m *mockSaleRepo) List(ctx context.Context, limit, offset int) ([]*entity.Sale, error) {
	return m.ListByState(ctx, "")
}

func (m *mockSaleRepo) ListByState(ctx context.Context, state string) ([]*entity.Sale, error) {
	var out []*entity.Sale
	for _, s := range m.sales {
		if state == "" || s.State == state {
			out = append(out, copySale(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSaleRepo) UpdateState(ctx context.Context, id int64, from, to string, at time.Time) error {
	s, ok := m.sales[id]
	if !ok || s.State != from {
		return port.ErrStaleRecord
	}
	s.State = to
	return nil
}

func (m *mockSaleRepo) ReplaceBeneficiaries(ctx context.Context, saleID int64, rows []entity.SaleBeneficiary) error {
	m.sales[saleID].Beneficiaries = append([]entity.SaleBeneficiary(nil), rows...)
	return nil
}

type mockPORepo struct {
	orders []*entity.CommissionPurchaseOrder
}

func (m *mockPORepo) Create(ctx context.Context, po *entity.CommissionPurchaseOrder) error {
	po.ID = int64(len(m.orders) + 1)
	m.orders = append(m.orders, po)
	return nil
}

func (m *mockPORepo) GetByID(ctx context.Context, id int64) (*entity.CommissionPurchaseOrder, error) {
	for _, po := range m.orders {
		if po.ID == id {
			return po, nil
		}
	}
	return nil, nil
}

func (m *mockPORepo) GetBySaleID(ctx context.Context, saleID int64) ([]*entity.CommissionPurchaseOrder, error) {
	var out []*entity.CommissionPurchaseOrder
	for _, po := range m.orders {
		if po.SaleID == saleID {
			out = append(out, po)
		}
	}
	return out, nil
}

func (m *mockPORepo) ListByExportStatus(ctx context.Context, status string, limit int) ([]*entity.CommissionPurchaseOrder, error) {
	var out []*entity.CommissionPurchaseOrder
	for _, po := range m.orders {
		if po.ExportStatus == status && po.State == entity.POStateDraft {
			out = append(out, po)
		}
	}
	return out, nil
}

func (m *mockPORepo) UpdateState(ctx context.Context, id int64, state string) error {
	po, _ := m.GetByID(ctx, id)
	po.State = state
	return nil
}

func (m *mockPORepo) UpdateExportStatus(ctx context.Context, id int64, status, errMsg string) error {
	po, _ := m.GetByID(ctx, id)
	po.ExportStatus, po.ExportError = status, errMsg
	return nil
}

func (m *mockPORepo) MarkExported(ctx context.Context, id int64, odooID int64, at time.Time) error {
	po, _ := m.GetByID(ctx, id)
	if po.ExportStatus != entity.ExportStatusPending {
		return port.ErrStaleRecord
	}
	po.ExportStatus, po.OdooID, po.ExportedAt = entity.ExportStatusExported, &odooID, &at
	if po.State == entity.POStateCancelled {
		po.ExportStatus = entity.ExportStatusNeedsReversal
	}
	return nil
}

type mockRecordRepo struct {
	records   map[int64]*entity.ApprovalRecord
	createErr error
}

func (m *mockRecordRepo) Create(ctx context.Context, record *entity.ApprovalRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = int64(len(m.records) + 1)
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockRecordRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecordRepo) List(ctx context.Context, state approval.State, limit, offset int) ([]*entity.ApprovalRecord, error) {
	var out []*entity.ApprovalRecord
	for _, r := range m.records {
		if state == "" || r.State == state {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) SaveTransition(ctx context.Context, record *entity.ApprovalRecord, from approval.State) error {
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

type mockAuditRepo struct {
	entries []*entity.AuditEntry
}

func (m *mockAuditRepo) Append(ctx context.Context, entry *entity.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByRecordID(ctx context.Context, recordID int64) ([]*entity.AuditEntry, error) {
	var out []*entity.AuditEntry
	for _, e := range m.entries {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockLeadRepo struct {
	leads map[int64]*entity.Lead
}

func (m *mockLeadRepo) Create(ctx context.Context, lead *entity.Lead) error {
	lead.ID = int64(len(m.leads) + 1)
	m.leads[lead.ID] = lead
	return nil
}

func (m *mockLeadRepo) GetByID(ctx context.Context, id int64) (*entity.Lead, error) {
	return m.leads[id], nil
}

func (m *mockLeadRepo) List(ctx context.Context, limit, offset int) ([]*entity.Lead, error) {
	return nil, nil
}

func (m *mockLeadRepo) ListUnscored(ctx context.Context, limit int) ([]*entity.Lead, error) {
	var out []*entity.Lead
	for id := int64(1); id <= int64(len(m.leads)); id++ {
		if l := m.leads[id]; l != nil && l.Score == nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLeadRepo) UpdateScore(ctx context.Context, id int64, score int, reasoning string, at time.Time) error {
	l := m.leads[id]
	l.Score, l.Reasoning, l.ScoredAt = &score, reasoning, &at
	return nil
}

// Other ports

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockParams map[string]string

func (m mockParams) GetParam(ctx context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

type mockScorer struct {
	scoreFunc func(ctx context.Context, lead *entity.Lead) (*entity.LeadScore, error)
}

func (m *mockScorer) ScoreLead(ctx context.Context, lead *entity.Lead) (*entity.LeadScore, error) {
	return m.scoreFunc(ctx, lead)
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
