package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loanbook/internal/api"
	"loanbook/internal/batch"
	"loanbook/internal/config"
	"loanbook/internal/domain/customer"
	"loanbook/internal/domain/dashboard"
	"loanbook/internal/domain/loan"
	"loanbook/internal/event"
	"loanbook/internal/infrastructure/cache"
	"loanbook/internal/infrastructure/database/memory"
	"loanbook/internal/infrastructure/database/postgres"
	"loanbook/internal/infrastructure/logging"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"

	defaultRefreshSchedule = "0 1 * * *"
	defaultRefreshTimeout  = 30 * time.Minute
	rabbitMQRetryCount     = 5
)

type repositories struct {
	loans     loan.Repository
	customers customer.Repository
	close     func()
}

type infrastructure struct {
	publisher event.Publisher
	cache     dashboard.StatsCache
	close     func()
}

// @title Loanbook API
// @version 1.0
// @description Loan portfolio tracking: listings, status transitions, notes and dashboard statistics.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := initializeRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer repos.close()

	infra := initializeInfrastructure(ctx, cfg, logger)
	defer infra.close()

	loanService, dashboardService := initializeServices(cfg, repos, infra, logger)

	refreshJob := batch.NewRefreshBalancesJob(loanService, cfg.Batch.BalanceRefreshConcurrency, logger)
	cronScheduler := startBatchJobs(cfg, logger, refreshJob)

	router := api.SetupRouter(ctx, loanService, dashboardService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	switch cfg.Database.Driver {
	case driverMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		seeds, err := seedCustomers(cfg.Database.SeedCustomers)
		if err != nil {
			return nil, err
		}
		logger.Info("Seeding in-memory customers", "count", len(seeds))
		store := memory.NewStore(memory.WithCustomers(seeds...))
		return &repositories{
			loans:     memory.NewLoanRepository(store),
			customers: memory.NewCustomerRepository(store),
			close:     func() {},
		}, nil
	case driverPostgres, "":
		logger.Info("Initializing database connection pool...")
		pool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return &repositories{
			loans:     postgres.NewLoanRepository(pool, cfg.Database.QueryTimeout, logger),
			customers: postgres.NewCustomerRepository(pool, cfg.Database.QueryTimeout, logger),
			close: func() {
				logger.Info("Closing database connection pool...")
				pool.Close()
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func seedCustomers(seeds []config.SeedCustomerConfig) ([]customer.Customer, error) {
	customers := make([]customer.Customer, 0, len(seeds))
	for i, seed := range seeds {
		id, err := uuid.Parse(seed.ID)
		if err != nil {
			return nil, fmt.Errorf("seed customer %d has an invalid id %q: %w", i, seed.ID, err)
		}
		customers = append(customers, customer.Customer{
			ID:           id,
			CustomerCode: seed.Code,
			FirstName:    seed.FirstName,
			LastName:     seed.LastName,
			Phone:        seed.Phone,
			Email:        seed.Email,
			Category:     seed.Category,
		})
	}
	return customers, nil
}

// initializeInfrastructure connects the optional broker and cache. Either one
// failing degrades to its no-op counterpart instead of stopping startup.
func initializeInfrastructure(ctx context.Context, cfg *config.Config, logger *slog.Logger) *infrastructure {
	infra := &infrastructure{
		publisher: event.NoopPublisher{},
		cache:     dashboard.NoopCache{},
	}
	var closers []func()

	if cfg.RabbitMQ.Enabled {
		conn, err := setupRabbitMQ(cfg, logger)
		if err != nil {
			logger.Error("RabbitMQ unavailable, loan events will not be published", "error", err)
		} else {
			publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
			if err != nil {
				logger.Error("Failed to create event publisher", "error", err)
				_ = conn.Close()
			} else {
				infra.publisher = publisher
				closers = append(closers, func() {
					logger.Info("Closing RabbitMQ connection...")
					_ = conn.Close()
				})
			}
		}
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Error("Redis unavailable, dashboard statistics will not be cached", "error", err)
		} else {
			infra.cache = cache.NewRedisStatsCache(client, cfg.Redis.StatsTTL, logger)
			closers = append(closers, func() {
				logger.Info("Closing Redis client...")
				_ = client.Close()
			})
		}
	}

	infra.close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return infra
}

func initializeServices(cfg *config.Config, repos *repositories, infra *infrastructure, logger *slog.Logger) (loan.LoanService, dashboard.DashboardService) {
	logger.Info("Initializing application components...")
	loanService := loan.NewLoanService(repos.loans, repos.customers, infra.publisher, logger,
		loan.WithPageLimits(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit),
		loan.WithStatsInvalidator(infra.cache))
	dashboardService := dashboard.NewDashboardService(repos.loans, repos.customers, infra.cache, logger)
	return loanService, dashboardService
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	select {
	case <-cronScheduler.Stop().Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, refreshJob *batch.RefreshBalancesJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.BalanceRefreshSchedule
	if scheduleSpec == "" {
		scheduleSpec = defaultRefreshSchedule
		logger.Warn("Balance refresh schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.BalanceRefreshTimeout
	if jobTimeout <= 0 {
		jobTimeout = defaultRefreshTimeout
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "BalanceRefresh")
		jobLogger.Info("Cron triggered: Running balance refresh job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := refreshJob.Run(ctx); runErr != nil {
			jobLogger.Error("Balance refresh job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Balance refresh job finished successfully.")
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule balance refresh job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled balance refresh job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func rabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", errors.New("RabbitMQ host is not configured")
	}
	host := cfg.Host
	if cfg.Port != 0 {
		host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	u := url.URL{Scheme: "amqp", Host: host, Path: "/"}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String(), nil
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) (*amqp.Connection, error) {
	uri, err := rabbitMQURI(cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}
	return connectRabbitMQ(uri, logger)
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 1; i <= rabbitMQRetryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error, 1))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					if e != nil {
						logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
					}
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", rabbitMQRetryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", rabbitMQRetryCount, err)
}
