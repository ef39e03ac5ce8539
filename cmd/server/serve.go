package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"user-auth/internal/config"
	"user-auth/internal/crypto"
	apphttp "user-auth/internal/http"
	"user-auth/internal/logging"
	"user-auth/internal/observability"
	"user-auth/internal/repository"
	"user-auth/internal/service"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openUserRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	gin.SetMode(gin.ReleaseMode)
	router, err := newRouter(cfg, users, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("driver", cfg.Database.Driver).Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
	return nil
}

// newRouter builds the auth service and the gin engine serving it.
func newRouter(cfg config.Config, users repository.UserRepository, logger *logrus.Logger) (*gin.Engine, error) {
	opts := apphttp.Options{
		Logger:        logger,
		SessionCookie: cfg.Auth.SessionCookie,
		ExcludedPaths: cfg.Auth.ExcludedPaths,
	}
	svcOpts := []service.Option{
		service.WithLogger(logger),
		service.WithEmailCaseSensitive(cfg.Auth.EmailCaseSensitive),
		service.WithEqualizedLoginTiming(cfg.Auth.EqualizeLoginTiming),
	}
	if cfg.Metrics.Enabled {
		registry := observability.NewRegistry()
		metrics := observability.NewMetrics(registry)
		opts.Registry = registry
		opts.Metrics = metrics
		svcOpts = append(svcOpts, service.WithMetrics(metrics))
	}

	auth, err := service.NewAuthService(users, crypto.NewBcryptHasher(cfg.Auth.BcryptCost), crypto.NewRandomTokenGenerator(), svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	apphttp.NewHandler(auth, opts).RegisterRoutes(router)
	return router, nil
}
