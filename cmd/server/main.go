// server runs the auth HTTP API.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"social-platform/backend/internal/audit"
	auditrepo "social-platform/backend/internal/audit/repository"
	authservice "social-platform/backend/internal/auth/service"
	"social-platform/backend/internal/config"
	"social-platform/backend/internal/db"
	"social-platform/backend/internal/events"
	identityrepo "social-platform/backend/internal/identity/repository"
	"social-platform/backend/internal/logging"
	"social-platform/backend/internal/notify"
	"social-platform/backend/internal/security"
	"social-platform/backend/internal/server"
	sessionrepo "social-platform/backend/internal/session/repository"
	"social-platform/backend/internal/verification"
	verificationrepo "social-platform/backend/internal/verification/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	tokens, err := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		logger.Error("tokens", slog.String("error", err.Error()))
		os.Exit(1)
	}

	identities := identityrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	audits := auditrepo.NewPostgresRepository(pool)
	codes := verification.NewService(verificationrepo.NewPostgresRepository(pool), cfg.CodeTTL())

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
	})
	sms := notify.NewHTTPSMSClient(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender)

	producer := events.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	defer producer.Close()

	auditor := audit.NewLogger(audits, nil)

	svc := authservice.NewAuthService(
		identities, sessions, codes, mailer, sms, auditor, producer,
		security.NewHasher(cfg.BcryptCost), tokens,
		cfg.RefreshTTL(), cfg.CodeTTL(), cfg.AppName)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		// Make the app logger reachable from every handler context.
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	server.Register(e, &server.Deps{
		Auth: &server.AuthHTTP{
			Svc:        svc,
			Identities: identities,
			Throttle:   server.NewThrottle(audits, cfg.ConfirmMaxAttempts, cfg.ThrottleWindow()),
		},
		Tokens:  tokens,
		Timeout: cfg.Timeout(),
	})

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("serve", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown", slog.String("error", err.Error()))
	}
	logger.Info("http server stopped")
}
