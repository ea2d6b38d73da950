package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/config"
	"github.com/osusproperties/brokerage-core/internal/container"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/report"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	saleID := flag.Int64("sale", 0, "write the statement of this sale; 0 writes the allocation summary")
	state := flag.String("state", "", "summary only: restrict to sales in this state (draft, confirmed, cancelled)")
	out := flag.String("out", "", "output file (default: commission-statement-<id>.xlsx or commission-summary.xlsx)")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	verbose := flag.Bool("verbose", false, "verbose output")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	path, err := run(ctx, cfg, logger, *saleID, *state, *out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report written to %s\n", path)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, saleID int64, state, out string) (string, error) {
	db, err := container.ProvideDatabase(&cfg.Database, logger)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Raw.Close() }()

	repos, err := container.ProvideRepositories(db.TransactionMgr, logger)
	if err != nil {
		return "", err
	}

	// Read-only: no dispatcher, no export
	commission := service.NewCommissionService(repos.Sale, repos.PurchaseOrder, db.TransactionMgr, nil,
		container.CommissionPolicy(&cfg.Commission, false), nil)
	reports := service.NewReportService(commission, report.NewExcelRenderer(cfg.Report.CompanyName, logger), nil, nil)

	var content []byte
	if saleID > 0 {
		content, err = reports.SaleStatement(ctx, saleID)
		if out == "" {
			out = fmt.Sprintf("commission-statement-%d.xlsx", saleID)
		}
	} else {
		content, err = reports.AllocationSummary(ctx, state)
		if out == "" {
			out = "commission-summary.xlsx"
		}
	}
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, content, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return out, nil
}
