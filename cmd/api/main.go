package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wednerevents/inquiry-backend/internal/api"
	"github.com/wednerevents/inquiry-backend/internal/config"
	"github.com/wednerevents/inquiry-backend/internal/email"
	"github.com/wednerevents/inquiry-backend/internal/inquiry"
	"github.com/wednerevents/inquiry-backend/internal/listener"
	"github.com/wednerevents/inquiry-backend/internal/ratelimit"
	"github.com/wednerevents/inquiry-backend/internal/store"
	"github.com/wednerevents/inquiry-backend/internal/submission"
)

const version = "3.0"

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"mail_transport", cfg.MailTransport,
		"rate_limit_backend", cfg.RateLimitBackend,
	)

	// Root context cancelled by OS signal. Janitor, verification and the
	// listener all respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Rate limiter ──────────────────────────────────────────────────────────
	var limiter interface {
		ratelimit.Limiter
		ratelimit.Sweeper
	}
	switch cfg.RateLimitBackend {
	case "postgres":
		pool, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		st := store.New(pool, cfg.RateLimitWindow, cfg.RateLimitMax)
		if err := st.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		limiter = st
		logger.Info("ratelimit: using postgres")
	default:
		limiter = ratelimit.NewMemory(cfg.RateLimitWindow, cfg.RateLimitMax)
		logger.Info("ratelimit: using memory")
	}
	go ratelimit.RunJanitor(ctx, limiter, cfg.SweepInterval, logger)

	// ── Email ─────────────────────────────────────────────────────────────────
	transport := newTransport(cfg, logger)

	dates, err := inquiry.NewDateFormatter(cfg.MailLocale)
	if err != nil {
		return fmt.Errorf("mail locale: %w", err)
	}

	notifier, err := email.NewNotifier(transport, email.NotifierConfig{
		From:    email.FormatAddress(cfg.EmailFromName, cfg.EmailFromAddr),
		AdminTo: cfg.AdminEmail,
		Business: email.Business{
			Name:     cfg.BusinessName,
			Email:    cfg.AdminEmail,
			Phone:    cfg.BusinessPhone,
			WhatsApp: cfg.BusinessWhatsApp,
			Website:  cfg.BusinessWebsite,
		},
		Dates:    dates,
		Location: cfg.Location(),
		Timeout:  cfg.SendTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	// ── Submission handlers ───────────────────────────────────────────────────
	submit := submission.NewHandler(limiter, notifier, inquiry.Enhanced, logger)

	var legacy *submission.Handler
	if cfg.LegacyEnabled {
		var legacyLimiter ratelimit.Limiter
		if cfg.LegacyRateLimited {
			legacyLimiter = limiter
		}
		legacy = submission.NewHandler(legacyLimiter, notifier, inquiry.Basic, logger)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	staticDir := cfg.StaticDir
	if fi, err := os.Stat(staticDir); staticDir != "" && (err != nil || !fi.IsDir()) {
		logger.Warn("static: directory not found, frontend disabled", "dir", staticDir)
		staticDir = ""
	}

	handler := api.NewServer(submit, legacy, api.Config{
		Env:         cfg.Env,
		ServiceName: "Wedner Events API",
		Version:     version,
		TrustProxy:  cfg.TrustProxy,
		StaticDir:   staticDir,
	}, logger)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // covers SEND_TIMEOUT plus the response
		IdleTimeout:  120 * time.Second,
	}

	// ── gRPC health ───────────────────────────────────────────────────────────
	grpcSrv, health := listener.NewGRPCServer()
	email.VerifyAsync(ctx, transport, 30*time.Second, logger, health.SetMailStatus)
	go func() {
		<-ctx.Done()
		health.Shutdown()
	}()

	// ── Serve ─────────────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if err := listener.Serve(ctx, lis, srv, grpcSrv, 20*time.Second, logger); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newTransport picks the mail transport named by MAIL_TRANSPORT.
func newTransport(cfg *config.Config, logger *slog.Logger) email.Transport {
	switch cfg.MailTransport {
	case "resend":
		logger.Info("email: using resend")
		return email.NewResendTransport(cfg.ResendAPIKey)
	case "log":
		logger.Warn("email: using log transport, nothing will be delivered")
		return email.NewLogTransport(logger)
	default:
		logger.Info("email: using smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort, "user", cfg.EmailUser)
		return email.NewSMTPTransport(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.SMTPPassword,
		})
	}
}
