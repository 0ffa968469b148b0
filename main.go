package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"projectflow/config"
	"projectflow/middleware"
	"projectflow/routes"
	"projectflow/services"
	"projectflow/store"
	"projectflow/utils"
	"projectflow/worker"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "projectflow",
	Short: "Project and task tracking API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		utils.InitLogger(config.AppConfig.Environment)
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the mail worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ConnectDB(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		logrus.Info("Database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg := config.AppConfig

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "projectflow@" + version,
		}); err != nil {
			logrus.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := config.ConnectDB(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	st := store.New(config.DB)

	retry := utils.RetryPolicy{Attempts: cfg.Auth.RetryAttempts, Backoff: cfg.Auth.RetryBackoff}

	mailer := utils.NewSMTPMailer(utils.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.FromEmail,
		FromName:  cfg.SMTP.FromName,
		AppURL:    cfg.AppURL,
	})
	mailWorker := worker.NewMailWorker(mailer, cfg.MailQueueSize, retry)
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go mailWorker.Start(workerCtx)

	authCfg := services.DefaultAuthConfig()
	authCfg.MaxFailedAttempts = cfg.Auth.MaxFailedAttempts
	authCfg.LockoutDuration = cfg.Auth.LockoutDuration
	authCfg.Retry = retry
	auth := services.NewAuthService(st, mailWorker, authCfg)

	app := fiber.New(fiber.Config{
		AppName:      "projectflow " + version,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AppURL)))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		status, code := "running", fiber.StatusOK
		if err := st.Ping(c.UserContext()); err != nil {
			utils.LogError("health_check", err, nil)
			status, code = "degraded", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  status,
			"version": version,
		})
	})

	limits := middleware.RateLimitStorage(cfg.Redis)
	if limits != nil {
		defer limits.Close()
	}

	routes.SetupRoutes(app, routes.Deps{
		Store:          st,
		Auth:           auth,
		JWTSecret:      cfg.JWTSecret,
		SecureCookie:   cfg.Environment == "production",
		LoginRateLimit: cfg.RateLimitLogin,
		RateLimitStore: limits,
	})

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("Server starting")
		errCh <- app.Listen(":" + cfg.ServerPort)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		logrus.Info("Shutting down")
		err = app.ShutdownWithTimeout(10 * time.Second)
	}

	// Let queued mail go out before exiting
	cancelWorker()
	select {
	case <-mailWorker.Done():
	case <-time.After(30 * time.Second):
		logrus.Warn("Mail queue did not drain in time")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
