package api

import (
	"fmt"
	"log/slog"
	"net/http"

	reporthandler "github.com/FACorreiaa/channel-profit/internal/domain/report/handler"
	reportservice "github.com/FACorreiaa/channel-profit/internal/domain/report/service"

	"github.com/FACorreiaa/channel-profit/pkg/config"
	"github.com/FACorreiaa/channel-profit/pkg/middleware"
	"github.com/FACorreiaa/channel-profit/pkg/telemetry"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Metrics *telemetry.Metrics

	// Services
	ReportService *reportservice.Service

	// Handlers
	ReportHandler *reporthandler.ReportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = telemetry.NewMetrics()
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		slog.Bool("metrics", deps.Metrics != nil),
		slog.Int("reference_year", cfg.Report.ReferenceYear))

	return deps, nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.ReportService = reportservice.NewService(reportservice.Options{
		ReferenceYear:  d.Config.Report.ReferenceYear,
		TopN:           d.Config.Report.TopProducts,
		ProgramToken:   d.Config.Report.ProgramToken,
		ProgramChannel: d.Config.Report.ProgramChannel,
	}, d.Logger).WithMetrics(d.Metrics)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ReportHandler = reporthandler.NewReportHandler(d.ReportService, d.Config.Server.MaxUploadBytes(), d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Router mounts every route behind the middleware stack.
func (d *Dependencies) Router() http.Handler {
	mux := http.NewServeMux()
	d.ReportHandler.Register(mux)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	return middleware.Chain(mux,
		middleware.Recover(d.Logger),
		middleware.Logging(d.Logger, d.Metrics),
		middleware.CORS(d.Config.Server.AllowedOrigins),
		middleware.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst),
	)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	d.Logger.Info("cleanup completed")
}
