package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"demandboard/internal/config"
	"demandboard/internal/dataset"
	apierrors "demandboard/internal/errors"
	"demandboard/internal/infrastructure"
	customMiddleware "demandboard/internal/middleware"
	"demandboard/internal/services"
	handlers "demandboard/internal/transport/http"
	ws "demandboard/internal/websocket"
	"demandboard/pkg/contracts"
	"demandboard/pkg/contracts/events"
)

// AppName is the display name logged at startup
const AppName = "Demand Dashboard"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	Dataset       *dataset.Dataset
	Dashboard     *services.DashboardService
	HealthService *services.HealthService
	WebSocketHub  *ws.Hub
	ErrorHandler  *apierrors.ErrorHandler
	Router        *chi.Mux
	Server        *http.Server
}

// NewApplication loads configuration, initializes logging and builds the
// application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an explicit configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateDashboardMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the dataset and every service that reads it
func (a *Application) initializeServices() error {
	ctx := context.Background()

	dsConfig, err := DatasetConfig(a.Config.Dataset)
	if err != nil {
		return err
	}
	data, err := GenerateDataset(ctx, a.OTelProviders.Tracer, dsConfig)
	if err != nil {
		return err
	}
	a.Dataset = data
	a.Logger.InfoContext(ctx, "Dataset generated",
		slog.Int("rows", data.Len()),
		slog.Int("products", len(data.Products())),
		slog.Uint64("seed", data.Seed()))

	opts := DashboardOptions(a.Config)
	opts.Tracer = a.OTelProviders.Tracer
	opts.Metrics = a.Metrics
	dashboard, err := services.NewDashboardService(data, opts, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard service: %w", err)
	}
	a.Dashboard = dashboard

	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)
	a.WebSocketHub = ws.NewHub(a.Logger, ws.HubOptions{
		Handler: ws.NewDashboardHandler(dashboard, validation, a.Logger),
		Metrics: a.Metrics,
		Timings: a.Config.WebSocket,
		Greeting: func(clientID string) interface{} {
			return events.ConnectData{
				ClientID: clientID,
				Products: dashboard.Products(),
				Version:  contracts.Version,
			}
		},
		AnnouncePresence: true,
	})

	a.HealthService = services.NewHealthService(dashboard, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter wires middleware and routes.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → CORS → RateLimit → Timeout
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger)

	// No timeout or rate limit on the long lived socket
	upgrader := ws.NewUpgrader(a.Config.WebSocket.ReadBufferSize, a.Config.WebSocket.WriteBufferSize, a.Config.Security.AllowedOrigins)
	r.With(
		otelMiddleware.Handler,
		customMiddleware.StructuredLogger(a.Logger),
		customMiddleware.Recoverer(a.ErrorHandler),
	).Get("/ws", ws.Handler(a.WebSocketHub, upgrader, a.Logger))

	// Prometheus scrape endpoint stays outside the API middleware
	r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, a.Logger, a.ErrorHandler)
		r.Mount("/dashboard", dashboardHandler.Routes())
	})

	a.Router = r
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves on the configured port until SIGINT or SIGTERM
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server and the WebSocket hub under one errgroup. It
// returns after ctx is done and both have shut down, or after either fails.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

// Stop gracefully stops the HTTP server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// DatasetConfig maps the dataset section of the configuration
func DatasetConfig(c config.DatasetConfig) (dataset.Config, error) {
	start, err := c.StartDate()
	if err != nil {
		return dataset.Config{}, err
	}
	return dataset.Config{
		Seed:     c.Seed,
		Products: c.Products,
		Weeks:    c.Weeks,
		Start:    start,
	}, nil
}

// DashboardOptions maps the cache and chart sections of the configuration
func DashboardOptions(cfg *config.Config) services.DashboardOptions {
	opts := services.DefaultDashboardOptions()
	opts.CacheEnabled = cfg.Cache.Enabled
	opts.CacheSize = cfg.Cache.Size
	opts.ChartWidth = cfg.Charts.Width
	opts.ChartHeight = cfg.Charts.Height
	return opts
}

// GenerateDataset generates the dataset inside a span
func GenerateDataset(ctx context.Context, tracer trace.Tracer, cfg dataset.Config) (*dataset.Dataset, error) {
	ctx, span := tracer.Start(ctx, "dataset.generate",
		trace.WithAttributes(
			attribute.Int64("seed", int64(cfg.Seed)),
			attribute.Int("products", cfg.Products),
			attribute.Int("weeks", cfg.Weeks),
		))
	defer span.End()

	data, err := dataset.Generate(cfg)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to generate dataset: %w", err)
	}
	span.SetAttributes(attribute.Int("rows", data.Len()))
	return data, nil
}
