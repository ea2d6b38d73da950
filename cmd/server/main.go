package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/config"
	"github.com/osusproperties/brokerage-core/internal/container"
	httpapi "github.com/osusproperties/brokerage-core/internal/interfaces/http"
	"github.com/osusproperties/brokerage-core/pkg/utils"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "brokerage-core",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting OSUS brokerage service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("odoo", cfg.Odoo.Enabled()),
		zap.Bool("lark", cfg.Lark.Enabled()),
		zap.Bool("openai", cfg.OpenAI.Enabled()))

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	handlers := httpapi.NewHandlers(httpapi.Deps{
		Commission: services.Commission,
		Approvals:  services.Approval,
		Engine:     c.WorkflowEngine(),
		Leads:      services.Lead,
		Reports:    services.Report,
		Health:     c,
		Version:    version,
	}, c.ServiceLogger())

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Mode:         cfg.Server.Mode,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, c.ServiceLogger())

	// Start blocks until a signal arrives, then shuts the listener down
	return server.Start(ctx)
}
