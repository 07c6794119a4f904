package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/finance-assistant/internal/domain/assistant/gateway"
	assistanthandler "github.com/FACorreiaa/finance-assistant/internal/domain/assistant/handler"
	assistantrepo "github.com/FACorreiaa/finance-assistant/internal/domain/assistant/repository"
	assistantservice "github.com/FACorreiaa/finance-assistant/internal/domain/assistant/service"
	goalshandler "github.com/FACorreiaa/finance-assistant/internal/domain/goals/handler"
	goalsrepo "github.com/FACorreiaa/finance-assistant/internal/domain/goals/repository"
	goalsservice "github.com/FACorreiaa/finance-assistant/internal/domain/goals/service"
	ledgerhandler "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/handler"
	ledgerrepo "github.com/FACorreiaa/finance-assistant/internal/domain/ledger/repository"
	reportshandler "github.com/FACorreiaa/finance-assistant/internal/domain/reports/handler"
	reportsrepo "github.com/FACorreiaa/finance-assistant/internal/domain/reports/repository"
	reportsservice "github.com/FACorreiaa/finance-assistant/internal/domain/reports/service"
	txhandler "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/handler"
	txrepo "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/repository"
	txservice "github.com/FACorreiaa/finance-assistant/internal/domain/transactions/service"
	userhandler "github.com/FACorreiaa/finance-assistant/internal/domain/user/handler"
	userrepo "github.com/FACorreiaa/finance-assistant/internal/domain/user/repository"

	"github.com/FACorreiaa/finance-assistant/pkg/config"
	"github.com/FACorreiaa/finance-assistant/pkg/cron"
	"github.com/FACorreiaa/finance-assistant/pkg/db"
	"github.com/FACorreiaa/finance-assistant/pkg/interceptors"
	"github.com/FACorreiaa/finance-assistant/pkg/storage"
)

const tokenTTL = 24 * time.Hour

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	UserRepo         userrepo.UserRepository
	LedgerRepo       ledgerrepo.LedgerRepository
	TransactionsRepo txrepo.TransactionRepository
	GoalsRepo        goalsrepo.GoalRepository
	AssistantRepo    assistantrepo.AssistantRepository
	ReportsRepo      reportsrepo.ReportRepository

	// Services
	TokenManager        *interceptors.TokenManager
	Metrics             *interceptors.Metrics
	RateLimiter         *interceptors.RateLimiter
	FileStorage         storage.Storage
	Gateway             gateway.Gateway
	TransactionsService *txservice.Service
	GoalsService        *goalsservice.Service
	AssistantService    *assistantservice.Service
	ReportsService      *reportsservice.Service
	Scheduler           *cron.Scheduler

	// Handlers
	UserHandler         *userhandler.UserHandler
	LedgerHandler       *ledgerhandler.LedgerHandler
	TransactionsHandler *txhandler.TransactionHandler
	GoalsHandler        *goalshandler.GoalsHandler
	AssistantHandler    *assistanthandler.AssistantHandler
	ReportsHandler      *reportshandler.ReportsHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	deps.initRepositories()
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the pool and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.UserRepo = userrepo.NewPostgresUserRepository(d.DB.Pool)
	d.LedgerRepo = ledgerrepo.NewPostgresLedgerRepository(d.DB.Pool)
	d.TransactionsRepo = txrepo.NewPostgresTransactionRepository(d.DB.Pool)
	d.GoalsRepo = goalsrepo.NewPostgresGoalRepository(d.DB.Pool)
	d.AssistantRepo = assistantrepo.NewPostgresAssistantRepository(d.DB.Pool)
	d.ReportsRepo = reportsrepo.NewPostgresReportRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices(ctx context.Context) error {
	cfg := d.Config

	d.TokenManager = interceptors.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, tokenTTL)
	d.Metrics = interceptors.NewMetrics()
	d.RateLimiter = interceptors.NewRateLimiter(float64(cfg.Server.RateLimitPerSecond), cfg.Server.RateLimitBurst)

	fileStorage, err := storage.New(ctx, storage.Config{
		Backend:   storage.Backend(cfg.Storage.Backend),
		LocalPath: cfg.Storage.LocalPath,
		GCSBucket: cfg.Storage.GCSBucket,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	gemini, err := gateway.NewGeminiGateway(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return fmt.Errorf("failed to init ai gateway: %w", err)
	}
	d.Gateway = gateway.NewInstrumented(gemini, cfg.Assistant.GatewayTimeout, d.Metrics.Registerer())

	currency := cfg.Server.DefaultCurrency
	d.TransactionsService = txservice.NewService(d.TransactionsRepo, d.UserRepo, d.LedgerRepo, currency, d.Logger)
	d.GoalsService = goalsservice.NewService(d.GoalsRepo, currency, d.Logger)

	contexts := assistantservice.NewContextBuilder(
		d.TransactionsService,
		d.GoalsService,
		d.LedgerRepo,
		cfg.Assistant.ContextTransactionLimit,
		cfg.Assistant.ContextMaxBytes,
	)
	d.AssistantService = assistantservice.NewService(d.AssistantRepo, contexts, d.Gateway, assistantservice.Config{
		HistoryLimit: cfg.Assistant.HistoryLimit,
		ContextTTL:   cfg.Assistant.ContextTTL,
	}, d.Metrics.Registerer(), d.Logger)

	d.ReportsService = reportsservice.NewService(d.ReportsRepo, d.TransactionsService, d.GoalsService, d.LedgerRepo, d.FileStorage, d.Logger)
	d.Scheduler = cron.NewScheduler(d.AssistantService, d.RateLimiter, d.Logger)

	d.Logger.Info("services initialized",
		slog.String("model", d.Gateway.Model()),
		slog.String("currency", currency),
	)
	return nil
}

func (d *Dependencies) initHandlers() {
	d.UserHandler = userhandler.NewUserHandler(d.UserRepo)
	d.LedgerHandler = ledgerhandler.NewLedgerHandler(d.LedgerRepo, d.Config.Server.DefaultCurrency)
	d.TransactionsHandler = txhandler.NewTransactionHandler(d.TransactionsService)
	d.GoalsHandler = goalshandler.NewGoalsHandler(d.GoalsService)
	d.AssistantHandler = assistanthandler.NewAssistantHandler(d.AssistantService)
	d.ReportsHandler = reportshandler.NewReportsHandler(d.ReportsService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
