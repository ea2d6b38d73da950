package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/domain/commission"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// ResolveRequest is the body of POST /api/commission/resolve
type ResolveRequest struct {
	CalcType      string          `json:"calc_type" binding:"required"`
	RateOrAmount  decimal.Decimal `json:"rate_or_amount"`
	SaleValue     decimal.Decimal `json:"sale_value"`
	AmountUntaxed decimal.Decimal `json:"amount_untaxed"`
}

// PreviewRequest is the body of POST /api/commission/preview
type PreviewRequest struct {
	SaleValue     decimal.Decimal            `json:"sale_value"`
	AmountUntaxed decimal.Decimal            `json:"amount_untaxed"`
	Beneficiaries []service.BeneficiaryInput `json:"beneficiaries"`
}

// BeneficiariesRequest is the body of PUT /api/sales/:id/beneficiaries
type BeneficiariesRequest struct {
	Beneficiaries []service.BeneficiaryInput `json:"beneficiaries"`
}

// SaleResponse pairs a sale with its current allocation verdict
type SaleResponse struct {
	Sale       *entity.Sale              `json:"sale"`
	Allocation *service.AllocationResult `json:"allocation,omitempty"`
}

// ConfirmResponse is returned by POST /api/sales/:id/confirm
type ConfirmResponse struct {
	Sale           *entity.Sale                      `json:"sale"`
	PurchaseOrders []*entity.CommissionPurchaseOrder `json:"purchase_orders"`
}

// ResolveCommission handles POST /api/commission/resolve
func (h *Handlers) ResolveCommission(c *gin.Context) {
	var req ResolveRequest
	if !bindJSON(c, &req) {
		return
	}

	base := commission.Base{SaleValue: req.SaleValue, UntaxedTotal: req.AmountUntaxed}
	amount, err := h.commission.Resolve(req.CalcType, req.RateOrAmount, base)
	if err != nil {
		h.respondError(c, "resolve commission", err)
		return
	}

	respond(c, http.StatusOK, gin.H{"amount": amount})
}

// PreviewAllocation handles POST /api/commission/preview
func (h *Handlers) PreviewAllocation(c *gin.Context) {
	var req PreviewRequest
	if !bindJSON(c, &req) {
		return
	}

	base := commission.Base{SaleValue: req.SaleValue, UntaxedTotal: req.AmountUntaxed}
	result, err := h.commission.Preview(base, req.Beneficiaries)
	if err != nil {
		h.respondError(c, "preview allocation", err)
		return
	}

	respond(c, http.StatusOK, result)
}

// CreateSale handles POST /api/sales
func (h *Handlers) CreateSale(c *gin.Context) {
	who, valid := actor(c)
	if !valid {
		return
	}
	var in service.SaleInput
	if !bindJSON(c, &in) {
		return
	}

	sale, result, err := h.commission.CreateSale(c.Request.Context(), in, who)
	if err != nil {
		h.respondError(c, "create sale", err)
		return
	}

	respond(c, http.StatusCreated, SaleResponse{Sale: sale, Allocation: result})
}

// ListSales handles GET /api/sales
func (h *Handlers) ListSales(c *gin.Context) {
	var q PageQuery
	if !bindQuery(c, &q) {
		return
	}

	sales, err := h.commission.ListSales(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, "list sales", err)
		return
	}
	if sales == nil {
		sales = []*entity.Sale{}
	}

	respond(c, http.StatusOK, sales)
}

// GetSale handles GET /api/sales/:id
func (h *Handlers) GetSale(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	sale, err := h.commission.GetSale(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get sale", err)
		return
	}

	respond(c, http.StatusOK, sale)
}

// SetBeneficiaries handles PUT /api/sales/:id/beneficiaries
func (h *Handlers) SetBeneficiaries(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req BeneficiariesRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, result, err := h.commission.SetBeneficiaries(c.Request.Context(), id, req.Beneficiaries)
	if err != nil {
		h.respondError(c, "set beneficiaries", err)
		return
	}

	respond(c, http.StatusOK, SaleResponse{Sale: sale, Allocation: result})
}

// ConfirmSale handles POST /api/sales/:id/confirm
func (h *Handlers) ConfirmSale(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	who, valid := actor(c)
	if !valid {
		return
	}

	sale, orders, err := h.commission.ConfirmSale(c.Request.Context(), id, who)
	if err != nil {
		h.respondError(c, "confirm sale", err)
		return
	}
	if orders == nil {
		orders = []*entity.CommissionPurchaseOrder{}
	}

	respond(c, http.StatusOK, ConfirmResponse{Sale: sale, PurchaseOrders: orders})
}

// CancelSale handles POST /api/sales/:id/cancel
func (h *Handlers) CancelSale(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	who, valid := actor(c)
	if !valid {
		return
	}

	sale, err := h.commission.CancelSale(c.Request.Context(), id, who)
	if err != nil {
		h.respondError(c, "cancel sale", err)
		return
	}

	respond(c, http.StatusOK, sale)
}

// PurchaseOrders handles GET /api/sales/:id/purchase-orders
func (h *Handlers) PurchaseOrders(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	orders, err := h.commission.PurchaseOrders(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "list purchase orders", err)
		return
	}
	if orders == nil {
		orders = []*entity.CommissionPurchaseOrder{}
	}

	respond(c, http.StatusOK, orders)
}

// SaleStatement handles GET /api/sales/:id/statement.xlsx
func (h *Handlers) SaleStatement(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	body, err := h.reports.SaleStatement(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "render statement", err)
		return
	}

	xlsx(c, fmt.Sprintf("commission-statement-%d.xlsx", id), body)
}

// AllocationSummary handles GET /api/reports/allocation-summary.xlsx
func (h *Handlers) AllocationSummary(c *gin.Context) {
	state := strings.TrimSpace(c.Query("state"))

	body, err := h.reports.AllocationSummary(c.Request.Context(), state)
	if err != nil {
		h.respondError(c, "render allocation summary", err)
		return
	}

	xlsx(c, "allocation-summary.xlsx", body)
}
