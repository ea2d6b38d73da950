package service

import (
	"context"
	"errors"
	"testing"

	"github.com/osusproperties/brokerage-core/internal/domain/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osusproperties/brokerage-core/internal/application/port"
)

type mockRenderer struct {
	statements []*port.SaleStatement
	err        error
}

func (m *mockRenderer) RenderStatement(stmt *port.SaleStatement) ([]byte, error) {
	m.statements = append(m.statements, stmt)
	return []byte("xlsx"), m.err
}

func (m *mockRenderer) RenderSummary(stmts []*port.SaleStatement) ([]byte, error) {
	m.statements = append(m.statements, stmts...)
	return []byte("xlsx"), m.err
}

func TestReportService(t *testing.T) {
	f := newCommissionFixture(false)
	ctx := context.Background()
	sale := createDraft(t, f, BeneficiaryInput{Role: "broker", PartnerID: 1, CalcType: "fixed", RateOrAmount: dec("1000")})
	_, _, err := f.svc.ConfirmSale(ctx, sale.ID, "u1")
	require.NoError(t, err)

	renderer := &mockRenderer{}
	svc := NewReportService(f.svc, renderer, nil, nil)

	data, err := svc.SaleStatement(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), data)
	require.Len(t, renderer.statements, 1)
	assert.Len(t, renderer.statements[0].Orders, 1)

	_, err = svc.AllocationSummary(ctx, "")
	require.NoError(t, err)
	assert.Len(t, renderer.statements, 2)

	renderer.err = errors.New("boom")
	_, err = svc.SaleStatement(ctx, sale.ID)
	assert.Error(t, err)
}

type mockStorage struct {
	files map[string][]byte
	err   error
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.err != nil {
		return m.err
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.files[path], nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/reports/" + relativePath
}

func TestReportService_ArchiveStatement(t *testing.T) {
	f := newCommissionFixture(false)
	ctx := context.Background()
	sale := createDraft(t, f, BeneficiaryInput{Role: "broker", PartnerID: 1, CalcType: "fixed", RateOrAmount: dec("1000")})

	_, err := NewReportService(f.svc, &mockRenderer{}, nil, nil).ArchiveStatement(ctx, sale.ID)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	store := &mockStorage{files: map[string][]byte{}}
	svc := NewReportService(f.svc, &mockRenderer{}, store, nil)

	p, err := svc.ArchiveStatement(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), store.files[p])

	evt := event.NewEvent(event.TypeSaleConfirmed, sale.ID, sale.Name, nil)
	require.NoError(t, svc.HandleSaleConfirmed(ctx, evt))

	_, err = svc.ArchiveStatement(ctx, 999)
	assert.ErrorIs(t, err, ErrSaleNotFound)

	store.err = errors.New("read-only file system")
	_, err = svc.ArchiveStatement(ctx, sale.ID)
	assert.Error(t, err)
}

func TestStatementPath(t *testing.T) {
	assert.Equal(t, "statements/4-S_2024_0004.xlsx", statementPath(4, "S/2024/0004"))
	assert.Equal(t, "statements/5-Unit_12_Marina.xlsx", statementPath(5, " Unit 12 Marina "))
	assert.Equal(t, "statements/6.xlsx", statementPath(6, "..."))
}
