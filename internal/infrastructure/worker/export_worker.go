package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// DefaultExportConfig returns default export polling settings
func DefaultExportConfig() PollConfig {
	return PollConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		Timeout:      60 * time.Second,
	}
}

// ExportWorker pushes pending commission purchase orders to Odoo
type ExportWorker struct {
	*poller
	poRepo   port.PurchaseOrderRepository
	exporter port.PurchaseOrderExporter
	now      func() time.Time
}

// NewExportWorker creates a new export worker
func NewExportWorker(config PollConfig, poRepo port.PurchaseOrderRepository, exporter port.PurchaseOrderExporter, logger *zap.Logger) *ExportWorker {
	w := &ExportWorker{
		poRepo:   poRepo,
		exporter: exporter,
		now:      time.Now,
	}
	w.poller = &poller{
		name:   "ExportWorker",
		config: config.withDefaults(DefaultExportConfig()),
		batch:  w.processPending,
		logger: logger,
	}
	return w
}

func (w *ExportWorker) processPending(ctx context.Context) error {
	orders, err := w.poRepo.ListByExportStatus(ctx, entity.ExportStatusPending, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending purchase orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	w.logger.Debug("Exporting purchase orders", zap.Int("count", len(orders)))

	for _, po := range orders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.export(ctx, po); err != nil {
			w.logger.Warn("Failed to export purchase order",
				zap.Int64("po_id", po.ID),
				zap.String("reference", po.Reference),
				zap.Error(err))
			w.record(false)
			continue
		}
		w.record(true)
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, po *entity.CommissionPurchaseOrder) error {
	exportCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	odooID, err := w.exporter.ExportPurchaseOrder(exportCtx, po)
	if err != nil {
		// shutdown is not an export failure; the order stays pending
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if uerr := w.poRepo.UpdateExportStatus(ctx, po.ID, entity.ExportStatusFailed, err.Error()); uerr != nil {
			w.logger.Error("Failed to record export failure", zap.Int64("po_id", po.ID), zap.Error(uerr))
		}
		return err
	}

	if err := w.poRepo.MarkExported(ctx, po.ID, odooID, w.now().UTC()); err != nil {
		return fmt.Errorf("exported as %d but failed to mark: %w", odooID, err)
	}

	w.logger.Info("Purchase order exported",
		zap.Int64("po_id", po.ID),
		zap.String("reference", po.Reference),
		zap.Int64("odoo_id", odooID))
	return nil
}
