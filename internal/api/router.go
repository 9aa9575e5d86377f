package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"loanbook/internal/api/handler"
	mw "loanbook/internal/api/middleware"
	"loanbook/internal/config"
	"loanbook/internal/domain/dashboard"
	"loanbook/internal/domain/loan"

	_ "loanbook/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const requestTimeout = 60 * time.Second

// SetupRouter builds the HTTP surface. ctx bounds background work started by
// the middleware, such as rate limiter eviction.
func SetupRouter(ctx context.Context, loanService loan.LoanService, dashboardService dashboard.DashboardService, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(ctx, router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, cfg, logger)
	setupLoanRoutes(router, loanService, cfg, logger)
	setupDashboardRoutes(router, dashboardService, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(ctx context.Context, router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(requestTimeout))
	router.Use(mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupLoanRoutes(router *chi.Mux, loanService loan.LoanService, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(loanService, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/", loanHandler.ListLoans)
		r.Post("/", loanHandler.CreateLoan)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Put("/status", loanHandler.UpdateStatus)
			r.Post("/notes", loanHandler.AddNote)
		})
	})
}

func setupDashboardRoutes(router *chi.Mux, dashboardService dashboard.DashboardService, cfg *config.Config, logger *slog.Logger) {
	dashboardHandler := handler.NewDashboardHandler(dashboardService, time.Now, logger)

	router.Route("/dashboard", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/stats", dashboardHandler.GetStats)
		r.Get("/recent-activity", dashboardHandler.GetRecentActivity)
	})
}
