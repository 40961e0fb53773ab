package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocktrail/stocktrail/internal/api"
	"github.com/stocktrail/stocktrail/internal/app"
	"github.com/stocktrail/stocktrail/internal/app/maintenance"
	"github.com/stocktrail/stocktrail/internal/auth"
	"github.com/stocktrail/stocktrail/internal/database"
	"github.com/stocktrail/stocktrail/internal/permissions"
	"github.com/stocktrail/stocktrail/internal/services"
	"github.com/stocktrail/stocktrail/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "stocktrail: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Logging.Encoding == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.AutoMigrateAndSeed(db); err != nil {
		return err
	}

	if cfg.Auth.RootPassword != "" {
		created, err := database.EnsureRootUser(ctx, db,
			cfg.Auth.RootUsername, cfg.Auth.RootEmail, cfg.Auth.RootPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("root user created", zap.String("username", cfg.Auth.RootUsername))
		}
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.JWTIssuer,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	})
	if err != nil {
		return err
	}

	sessionService, err := auth.NewSessionService(db, jwtService, auth.SessionConfig{
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}

	auditService, err := services.NewAuditService(db)
	if err != nil {
		return err
	}
	authService, err := services.NewAuthService(db, sessionService, auditService, services.AuthConfig{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		LockoutDuration:   cfg.Auth.LockoutDuration,
	})
	if err != nil {
		return err
	}
	userService, err := services.NewUserService(db)
	if err != nil {
		return err
	}
	categoryService, err := services.NewCategoryService(db)
	if err != nil {
		return err
	}
	locationService, err := services.NewLocationService(db)
	if err != nil {
		return err
	}
	itemService, err := services.NewItemService(db)
	if err != nil {
		return err
	}
	transactionService, err := services.NewTransactionService(db, auditService)
	if err != nil {
		return err
	}
	taskService, err := services.NewTaskService(db, auditService)
	if err != nil {
		return err
	}
	dashboardService, err := services.NewDashboardService(db, auditService)
	if err != nil {
		return err
	}
	checker, err := permissions.NewChecker(db)
	if err != nil {
		return err
	}

	var cleaner *maintenance.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner, err = maintenance.NewCleaner(auditService, sessionService,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays))
		if err != nil {
			return err
		}
		if err := cleaner.Start(); err != nil {
			return err
		}
		defer cleaner.Stop()
	}

	router := api.NewRouter(api.Deps{
		DB:              db,
		JWT:             jwtService,
		Checker:         checker,
		Auth:            authService,
		Users:           userService,
		Categories:      categoryService,
		Locations:       locationService,
		Items:           itemService,
		Transactions:    transactionService,
		Tasks:           taskService,
		Audit:           auditService,
		Dashboard:       dashboardService,
		LoginRateLimit:  cfg.Auth.LoginRateLimit,
		LoginRateWindow: cfg.Auth.LoginRateWindow,
		EnableMetrics:   cfg.Monitoring.EnableMetrics,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
