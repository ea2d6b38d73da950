package odoo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

const modelPurchaseOrder = "purchase.order"

// ExportPurchaseOrder creates a draft purchase.order holding one line per
// commission role and returns its Odoo ID.
func (c *Client) ExportPurchaseOrder(ctx context.Context, po *entity.CommissionPurchaseOrder) (int64, error) {
	if po.PartnerID == 0 {
		return 0, fmt.Errorf("purchase order %s has no partner", po.Reference)
	}

	values := purchaseOrderValues(po, c.cfg.ProductID, c.cfg.CurrencyID)

	var id int64
	if err := c.ExecuteKw(ctx, modelPurchaseOrder, "create", []interface{}{values}, nil, &id); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: create returned no id for %s", ErrInvalidResponse, po.Reference)
	}

	c.logger.Info("Exported commission purchase order",
		zap.String("reference", po.Reference),
		zap.Int64("partner_id", po.PartnerID),
		zap.Int64("odoo_id", id))
	return id, nil
}

// purchaseOrderValues builds the create() values; lines use the (0, 0, vals) command
func purchaseOrderValues(po *entity.CommissionPurchaseOrder, productID, currencyID int64) map[string]interface{} {
	lines := make([]interface{}, 0, len(po.Lines))
	for _, l := range po.Lines {
		vals := map[string]interface{}{
			"name":        l.Description,
			"product_qty": 1.0,
			"price_unit":  l.Amount.InexactFloat64(),
		}
		if productID != 0 {
			vals["product_id"] = productID
		}
		lines = append(lines, []interface{}{0, 0, vals})
	}

	values := map[string]interface{}{
		"partner_id":  po.PartnerID,
		"partner_ref": po.Reference,
		"origin":      po.Reference,
		"order_line":  lines,
	}
	if currencyID != 0 {
		values["currency_id"] = currencyID
	}
	return values
}

var _ port.PurchaseOrderExporter = (*Client)(nil)
