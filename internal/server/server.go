// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ripplefund/ripple/internal/config"
	"github.com/ripplefund/ripple/internal/database"
	"github.com/ripplefund/ripple/internal/handlers"
	"github.com/ripplefund/ripple/internal/oauth"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/services/auth"
	"github.com/ripplefund/ripple/internal/services/email"
	"github.com/ripplefund/ripple/internal/services/payment"
	"github.com/ripplefund/ripple/internal/token"
	"github.com/ripplefund/ripple/internal/totp"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository
	repo := repository.New(db)

	// Token codec and TOTP engine
	codec, err := token.NewCodec(cfg.Auth.SecretKey,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, cfg.Auth.MagicTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	engine := totp.NewEngine(cfg.Auth.TOTPIssuer, cfg.Auth.TOTPAlgorithm)

	// Email
	var mailer auth.Mailer
	if cfg.SMTP.Enabled() {
		mailer, err = email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to create email service: %w", err)
		}
	} else {
		slog.Warn("SMTP is not configured, outbound email is disabled")
	}

	// Services
	authService := auth.NewService(repo, codec, engine, mailer, &cfg.Auth)
	paymentService := payment.NewService(repo, &cfg.Payment)

	// OAuth
	var registry *oauth.Registry
	if cfg.OAuth.StateHashKey != "" {
		registry, err = oauth.NewRegistry(&cfg.OAuth, cfg.Server.BaseURL)
		if err != nil {
			return fmt.Errorf("failed to create oauth registry: %w", err)
		}
	} else {
		slog.Warn("OAuth state key is not configured, oauth login is disabled")
	}

	// Bootstrap superuser
	if err := authService.EnsureSuperuser(ctx); err != nil {
		return fmt.Errorf("failed to ensure superuser: %w", err)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	setupMiddleware(e, cfg)

	// Routes
	h := handlers.New(repo, authService, paymentService, registry, cfg)
	setupRoutes(e, h)
	e.HTTPErrorHandler = h.HTTPErrorHandler

	// Start server
	return startWithGracefulShutdown(e, cfg)
}

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	e.Use(requestLogger())
}

// requestLogger logs every request through slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Error("request", attrs...)
			} else {
				slog.Info("request", attrs...)
			}
			return nil
		},
	})
}

func setupRoutes(e *echo.Echo, h *handlers.Handler) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")

	// Users
	api.POST("/users", h.Register)
	api.GET("/users/all", h.ListUsers, h.RequireUser, h.RequireSuperuser)
	api.GET("/users/me", h.CurrentUser, h.RequireUser)
	api.PUT("/users/me", h.UpdateProfile, h.RequireUser)
	api.PUT("/users/toggle-state", h.ToggleUserState, h.RequireUser, h.RequireSuperuser)
	api.POST("/users/new-totp", h.EnableTOTP, h.RequireUser)
	api.PUT("/users/new-totp", h.ConfirmTOTP, h.RequireUser)
	api.DELETE("/users/new-totp", h.DisableTOTP, h.RequireUser)

	// Auth
	api.POST("/auth/login", h.Login)
	api.POST("/auth/totp", h.LoginTOTP)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/revoke", h.Revoke)
	api.POST("/auth/verify/email", h.VerifyEmail)
	api.POST("/auth/resend-code", h.ResendVerificationPin)
	api.POST("/auth/recover/:email", h.RecoverPassword)
	api.POST("/auth/reset", h.ResetPassword)
	api.GET("/auth/login/:provider", h.OAuthRedirect)
	api.GET("/auth/callback/:provider", h.OAuthCallback)
	api.POST("/auth/login/oauth", h.OAuthTokenLogin)

	// Projects
	api.POST("/projects", h.CreateProject, h.RequireUser)
	api.GET("/projects", h.ListProjects)
	api.GET("/projects/:id", h.GetProject)
	api.PUT("/projects/:id", h.UpdateProject, h.RequireUser)
	api.DELETE("/projects/:id", h.DeleteProject, h.RequireUser)
	api.GET("/projects/:id/backers", h.ListBackers)

	// Categories
	api.GET("/categories", h.ListCategories)
	api.POST("/categories", h.CreateCategory, h.RequireUser, h.RequireSuperuser)
	api.DELETE("/categories/:id", h.DeleteCategory, h.RequireUser, h.RequireSuperuser)

	// Featured projects
	api.GET("/featured", h.ListFeatured)
	api.POST("/featured/:id", h.FeatureProject, h.RequireUser, h.RequireSuperuser)
	api.DELETE("/featured/:id", h.UnfeatureProject, h.RequireUser, h.RequireSuperuser)

	// Payments
	api.POST("/payments/initialize", h.InitializePayment, h.RequireUser)
	api.GET("/payments", h.ListPayments, h.RequireUser, h.RequireSuperuser)
	api.GET("/payments/verify/:reference", h.ConfirmPayment)
	api.POST("/payments/webhook", h.PaymentWebhook)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
