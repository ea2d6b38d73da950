package odoo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/domain/commission"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

const (
	intResponse   = `<?xml version="1.0"?><methodResponse><params><param><value><int>%s</int></value></param></params></methodResponse>`
	faultResponse = `<?xml version="1.0"?><methodResponse><fault><value><struct>
<member><name>faultCode</name><value><int>2</int></value></member>
<member><name>faultString</name><value><string>Access Denied</string></value></member>
</struct></value></fault></methodResponse>`
)

// fakeOdoo answers XML-RPC calls with canned bodies keyed by method name
type fakeOdoo struct {
	mu       sync.Mutex
	bodies   map[string]string
	requests []string
	authN    int
}

func (f *fakeOdoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := string(raw)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, body)

	w.Header().Set("Content-Type", "text/xml")
	switch {
	case strings.Contains(body, "<methodName>authenticate</methodName>"):
		f.authN++
		_, _ = io.WriteString(w, f.bodies["authenticate"])
	case strings.Contains(body, "<string>search_read</string>"):
		_, _ = io.WriteString(w, f.bodies["search_read"])
	case strings.Contains(body, "<string>create</string>"):
		_, _ = io.WriteString(w, f.bodies["create"])
	default:
		http.Error(w, "unexpected call", http.StatusBadRequest)
	}
}

func (f *fakeOdoo) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeOdoo, mutate func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := Config{
		URL:       srv.URL,
		Database:  "osus",
		Username:  "bot@osus.ae",
		Password:  "secret",
		Timeout:   2 * time.Second,
		ProductID: 42,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func intBody(v string) string {
	return strings.Replace(intResponse, "%s", v, 1)
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	_, err := NewClient(Config{URL: "ftp://odoo.local"}, zap.NewNop())
	assert.Error(t, err)
}

func TestGetParam(t *testing.T) {
	fake := &fakeOdoo{bodies: map[string]string{
		"authenticate": intBody("2"),
		"search_read": `<?xml version="1.0"?><methodResponse><params><param><value><array><data>
<value><struct>
<member><name>id</name><value><int>11</int></value></member>
<member><name>value</name><value><string>7,9</string></value></member>
</struct></value>
</data></array></value></param></params></methodResponse>`,
	}}
	c := newTestClient(t, fake, nil)

	v, ok, err := c.GetParam(context.Background(), "account_payment_approval.approval_user_ids")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7,9", v)
	assert.Contains(t, fake.last(), "ir.config_parameter")
	assert.Contains(t, fake.last(), "account_payment_approval.approval_user_ids")

	// the session is cached between calls
	_, _, err = c.GetParam(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.authN)
}

func TestGetParam_Missing(t *testing.T) {
	fake := &fakeOdoo{bodies: map[string]string{
		"authenticate": intBody("2"),
		"search_read":  `<?xml version="1.0"?><methodResponse><params><param><value><array><data></data></array></value></param></params></methodResponse>`,
	}}
	c := newTestClient(t, fake, nil)

	v, ok, err := c.GetParam(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestAuthenticate_Failure(t *testing.T) {
	fake := &fakeOdoo{bodies: map[string]string{"authenticate": intBody("0")}}
	c := newTestClient(t, fake, nil)

	_, _, err := c.GetParam(context.Background(), "k")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestExecuteKw_Fault(t *testing.T) {
	fake := &fakeOdoo{bodies: map[string]string{
		"authenticate": intBody("2"),
		"create":       faultResponse,
	}}
	c := newTestClient(t, fake, nil)

	_, err := c.ExportPurchaseOrder(context.Background(), samplePO())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRPC)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Contains(t, rpcErr.Message, "Access Denied")
}

func TestExportPurchaseOrder(t *testing.T) {
	fake := &fakeOdoo{bodies: map[string]string{
		"authenticate": intBody("2"),
		"create":       intBody("501"),
	}}
	c := newTestClient(t, fake, func(cfg *Config) { cfg.CurrencyID = 130 })

	id, err := c.ExportPurchaseOrder(context.Background(), samplePO())
	require.NoError(t, err)
	assert.Equal(t, int64(501), id)

	req := fake.last()
	assert.Contains(t, req, "purchase.order")
	assert.Contains(t, req, "CPO/S0001/1")
	assert.Contains(t, req, "<name>partner_id</name>")
	assert.Contains(t, req, "<name>currency_id</name>")
	assert.Contains(t, req, "<name>product_id</name>")
}

func TestExportPurchaseOrder_NoPartner(t *testing.T) {
	c := newTestClient(t, &fakeOdoo{}, nil)
	po := samplePO()
	po.PartnerID = 0

	_, err := c.ExportPurchaseOrder(context.Background(), po)
	assert.Error(t, err)
}

func TestExecuteKw_ContextCancelled(t *testing.T) {
	fake := &fakeOdoo{bodies: map[string]string{"authenticate": intBody("2")}}
	c := newTestClient(t, fake, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.GetParam(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPurchaseOrderValues(t *testing.T) {
	values := purchaseOrderValues(samplePO(), 0, 0)

	assert.Equal(t, int64(12), values["partner_id"])
	assert.NotContains(t, values, "currency_id")

	lines := values["order_line"].([]interface{})
	require.Len(t, lines, 2)
	cmd := lines[0].([]interface{})
	assert.Equal(t, 0, cmd[0])
	vals := cmd[2].(map[string]interface{})
	assert.Equal(t, 25000.5, vals["price_unit"])
	assert.NotContains(t, vals, "product_id")
}

func TestParseFault(t *testing.T) {
	assert.Nil(t, parseFault(nil))

	err := parseFault(errors.New("Fault(1): 'Record does not exist'"))
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 1, rpcErr.Code)
	assert.Equal(t, "Record does not exist", rpcErr.Message)
}

func samplePO() *entity.CommissionPurchaseOrder {
	return &entity.CommissionPurchaseOrder{
		SaleID:      1,
		PartnerID:   12,
		PartnerName: "Gulf Realty",
		Reference:   "CPO/S0001/1",
		Total:       decimal.RequireFromString("30000.50"),
		Currency:    "AED",
		Lines: []entity.CommissionPOLine{
			{Role: commission.RoleBroker, Description: "broker commission - S0001", Amount: decimal.RequireFromString("25000.50")},
			{Role: commission.RoleReferrer, Description: "referrer commission - S0001", Amount: decimal.RequireFromString("5000")},
		},
	}
}
