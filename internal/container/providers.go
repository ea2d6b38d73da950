package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/dispatcher"
	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/application/workflow"
	"github.com/osusproperties/brokerage-core/internal/config"
	"github.com/osusproperties/brokerage-core/internal/domain/event"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/external/lark"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/external/odoo"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/external/openai"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/repository"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/sqlite"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/report"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/storage"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/worker"
	"github.com/osusproperties/brokerage-core/migrations"
	"github.com/osusproperties/brokerage-core/pkg/database"
)

// DatabaseBundle holds the raw connection and the transaction manager built on it
type DatabaseBundle struct {
	Raw            *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	raw, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(raw, logger).Run(migrations.FS); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw:            raw,
		TransactionMgr: sqlite.NewDB(raw.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Sale:          repository.NewSaleRepository(db, logger),
		PurchaseOrder: repository.NewPurchaseOrderRepository(db, logger),
		Record:        repository.NewApprovalRecordRepository(db, logger),
		Audit:         repository.NewAuditRepository(db, logger),
		Param:         repository.NewParamRepository(db, logger),
		Lead:          repository.NewLeadRepository(db, logger),
	}, nil
}

// ProvideOdooClient returns nil when no ERP is configured.
func ProvideOdooClient(cfg *config.OdooConfig, logger *zap.Logger) (*odoo.Client, error) {
	if cfg == nil || !cfg.Enabled() {
		logger.Info("Odoo not configured, purchase order export disabled")
		return nil, nil
	}

	return odoo.NewClient(odoo.Config{
		URL:        cfg.URL,
		Database:   cfg.Database,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		ProductID:  cfg.ProductID,
		CurrencyID: cfg.CurrencyID,
	}, logger.Named("odoo"))
}

// ProvideNotifier falls back to a logging notifier without Lark credentials.
func ProvideNotifier(cfg *config.LarkConfig, logger *zap.Logger) port.ApproverNotifier {
	if cfg == nil || !cfg.Enabled() {
		logger.Info("Lark not configured, approver notifications are logged only")
		return lark.NewNopNotifier(logger)
	}

	sdk := lark.NewSDKClient(lark.Config{
		AppID:      cfg.AppID,
		AppSecret:  cfg.AppSecret,
		APITimeout: cfg.APITimeout,
		BaseURL:    cfg.BaseURL,
	}, logger.Named("lark"))
	return lark.NewNotifier(sdk, cfg.ReceiveIDType, cfg.Recipients, logger.Named("lark"))
}

// ProvideLeadScorer returns nil when no API key is configured.
func ProvideLeadScorer(cfg *config.OpenAIConfig, logger *zap.Logger) (port.LeadScorer, error) {
	if cfg == nil || !cfg.Enabled() {
		logger.Info("OpenAI not configured, lead scoring disabled")
		return nil, nil
	}

	prompts := openai.DefaultPrompts()
	if cfg.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, err
		}
		prompts = loaded
	}

	return openai.NewScorer(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, prompts, logger.Named("openai")), nil
}

// ProvideParamSource picks where approver parameters are read from.
func ProvideParamSource(cfg *config.ApprovalConfig, repos *RepositoryBundle, odooClient *odoo.Client) (port.ParamReader, error) {
	if cfg.ParamSource == "odoo" {
		if odooClient == nil {
			return nil, fmt.Errorf("approval.param_source is odoo but no Odoo client is available")
		}
		return odooClient, nil
	}
	return repos.Param, nil
}

// ProvidePolicySource builds the approver resolver and the policy provider.
func ProvidePolicySource(cfg *config.ApprovalConfig, params port.ParamReader, logger *zap.Logger) *service.PolicyProvider {
	resolver := service.NewApproverResolver(params, cfg.ApproverIDsKey, cfg.ApproverIDKey)
	return service.NewPolicyProvider(resolver, cfg.StaticGrants(), &zapLoggerAdapter{logger: logger})
}

// CommissionPolicy converts the commission section of the configuration
func CommissionPolicy(cfg *config.CommissionConfig, exportEnabled bool) service.CommissionPolicy {
	return service.CommissionPolicy{
		Currency:      cfg.Currency,
		Rounding:      cfg.Rounding(),
		Validation:    cfg.ValidationPolicy(),
		ExportEnabled: exportEnabled,
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Config     *config.Config
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Scorer     port.LeadScorer
	Notifier   port.ApproverNotifier
	Storage    port.FileStorage
	Export     bool
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Config == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	commissionSvc := service.NewCommissionService(
		deps.Repos.Sale,
		deps.Repos.PurchaseOrder,
		deps.TxManager,
		deps.Dispatcher,
		CommissionPolicy(&deps.Config.Commission, deps.Export),
		serviceLogger,
	)

	renderer := report.NewExcelRenderer(deps.Config.Report.CompanyName, deps.Logger.Named("report"))

	return &ServiceBundle{
		Commission: commissionSvc,
		Approval: service.NewApprovalService(
			deps.Repos.Record,
			deps.Repos.Audit,
			deps.TxManager,
			serviceLogger,
		),
		Lead:         service.NewLeadService(deps.Repos.Lead, deps.Scorer, deps.Dispatcher, serviceLogger),
		Report:       service.NewReportService(commissionSvc, renderer, deps.Storage, serviceLogger),
		Notification: service.NewNotificationService(deps.Repos.Record, deps.Notifier, serviceLogger),
	}, nil
}

// ProvideStorage creates the local archive for generated reports.
func ProvideStorage(cfg *config.ReportConfig, logger *zap.Logger) port.FileStorage {
	if cfg == nil || cfg.OutputDir == "" {
		return nil
	}
	return storage.NewLocalFileStorage(cfg.OutputDir, logger.Named("storage"))
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Policies   service.PolicySource
	Dispatcher dispatcher.Dispatcher
	Services   *ServiceBundle
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine and registers event handlers.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	engine := workflow.NewEngine(
		deps.Repos.Record,
		deps.Repos.Audit,
		deps.TxManager,
		deps.Policies,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
	)

	if deps.Services != nil {
		deps.Dispatcher.SubscribeNamed(event.TypeApprovalStatusChanged, "notify_approvers",
			deps.Services.Notification.HandleApprovalStatusChanged)
		deps.Dispatcher.SubscribeNamed(event.TypeSaleConfirmed, "archive_statement",
			deps.Services.Report.HandleSaleConfirmed)
	}

	return engine, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Repos     *RepositoryBundle
	Exporter  port.PurchaseOrderExporter
	Leads     service.LeadService
	Scoring   bool
	WorkerCfg *config.WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates and registers background workers.
// Workers are registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	if deps.Exporter != nil {
		manager.Register(worker.NewExportWorker(worker.PollConfig{
			PollInterval: deps.WorkerCfg.ExportPollInterval,
			BatchSize:    deps.WorkerCfg.ExportBatchSize,
			Timeout:      deps.WorkerCfg.ExportTimeout,
		}, deps.Repos.PurchaseOrder, deps.Exporter, deps.Logger.Named("export_worker")))
	}

	if deps.Scoring && deps.Leads != nil {
		manager.Register(worker.NewLeadScoringWorker(worker.PollConfig{
			PollInterval: deps.WorkerCfg.ScoringPollInterval,
			BatchSize:    deps.WorkerCfg.ScoringBatchSize,
			Timeout:      deps.WorkerCfg.ScoringTimeout,
		}, deps.Leads, deps.Logger.Named("scoring_worker")))
	}

	return manager, nil
}
