package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/dispatcher"
	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/application/workflow"
	"github.com/osusproperties/brokerage-core/internal/config"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/external/odoo"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/repository"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/persistence/sqlite"
	"github.com/osusproperties/brokerage-core/internal/infrastructure/worker"
	"github.com/osusproperties/brokerage-core/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	raw          *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	odoo     *odoo.Client
	scorer   port.LeadScorer
	notifier port.ApproverNotifier
	storage  port.FileStorage

	// Application
	policies   *service.PolicyProvider
	dispatcher dispatcher.Dispatcher
	workflow   workflow.WorkflowEngine
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Sale          port.SaleRepository
	PurchaseOrder port.PurchaseOrderRepository
	Record        port.ApprovalRecordRepository
	Audit         port.AuditRepository
	// Param is concrete because it also serves as the local ParamReader
	Param *repository.ParamRepository
	Lead  port.LeadRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Commission   service.CommissionService
	Approval     service.ApprovalService
	Lead         service.LeadService
	Report       service.ReportService
	Notification service.NotificationService
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (Odoo, Lark, OpenAI) and report storage
// 3. Event dispatcher
// 4. Application services
// 5. Approval policy and workflow engine
// 6. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"database", c.initDatabase},
		{"external clients", c.initExternalClients},
		{"dispatcher", c.initDispatcher},
		{"services", c.initServices},
		{"workflow engine", c.initWorkflow},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			_ = c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever Start managed to build. Callers hold mu.
func (c *Container) teardown() error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 6)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
		c.workers = nil
	}

	// Step 2: Close dispatcher so in-flight notifications and archives finish
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
		c.dispatcher = nil
	}

	// Step 3: Close the ERP client
	if c.odoo != nil {
		if err := c.odoo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close odoo client: %w", err))
		}
		c.odoo = nil
	}

	// Step 4: Close database (reverse of step 1)
	if c.raw != nil {
		if err := c.raw.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.raw = nil
	}

	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health reports each backing component by name. A nil error means healthy.
func (c *Container) Health(ctx context.Context) map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make(map[string]error)

	if c.raw != nil {
		if err := c.raw.PingContext(ctx); err != nil {
			status["database"] = fmt.Errorf("ping failed: %w", err)
		} else {
			status["database"] = nil
		}
	} else {
		status["database"] = errors.New("not initialized")
	}

	if c.dispatcher != nil {
		status["dispatcher"] = nil
	} else {
		status["dispatcher"] = errors.New("not initialized")
	}

	if c.workers != nil && c.workers.GetWorkerCount() > 0 {
		if c.workers.IsRunning() {
			status["workers"] = nil
		} else {
			status["workers"] = errors.New("workers are not running")
		}
	}

	return status
}

// initDatabase opens the database and builds the repositories.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.raw = dbBundle.Raw
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients builds the optional Odoo, Lark and OpenAI adapters.
func (c *Container) initExternalClients() error {
	client, err := ProvideOdooClient(&c.config.Odoo, c.logger)
	if err != nil {
		return err
	}
	c.odoo = client

	scorer, err := ProvideLeadScorer(&c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.scorer = scorer

	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)
	c.storage = ProvideStorage(&c.config.Report, c.logger)
	return nil
}

func (c *Container) initDispatcher() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Config:     c.config,
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Scorer:     c.scorer,
		Notifier:   c.notifier,
		Storage:    c.storage,
		Export:     c.odoo != nil,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initWorkflow resolves the parameter source and builds the engine.
func (c *Container) initWorkflow() error {
	params, err := ProvideParamSource(&c.config.Approval, c.repositories, c.odoo)
	if err != nil {
		return err
	}
	c.policies = ProvidePolicySource(&c.config.Approval, params, c.logger)

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Policies:   c.policies,
		Dispatcher: c.dispatcher,
		Services:   c.services,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine
	return nil
}

// initWorkers registers and starts the background workers.
func (c *Container) initWorkers() error {
	var exporter port.PurchaseOrderExporter
	if c.odoo != nil {
		exporter = c.odoo
	}

	workers, err := ProvideWorkers(&WorkerDeps{
		Repos:     c.repositories,
		Exporter:  exporter,
		Leads:     c.services.Lead,
		Scoring:   c.scorer != nil,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.WorkflowEngine {
	return c.workflow
}

// Policies returns the approval policy source.
func (c *Container) Policies() service.PolicySource {
	return c.policies
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// ServiceLogger adapts the container logger to the key-value logger the
// services and the HTTP layer take.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
