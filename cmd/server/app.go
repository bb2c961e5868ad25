package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"jobtrack/internal/auth"
	"jobtrack/internal/cache"
	"jobtrack/internal/config"
	"jobtrack/internal/db"
	"jobtrack/internal/gate"
	"jobtrack/internal/handler"
	"jobtrack/internal/logging"
	"jobtrack/internal/metrics"
	"jobtrack/internal/notify"
	"jobtrack/internal/repository"
	"jobtrack/internal/router"
	"jobtrack/internal/service"
)

const mailgunTimeout = 10 * time.Second

// loadConfig resolves the configuration for cmd and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("path", configFile).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	format := cfg.LogFormat
	if format == "" && !cfg.IsProduction() {
		format = "text"
	}
	return logging.Setup("jobtrack", version, format, os.Stderr)
}

// app holds the wired components shared by the serve and seed commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	cache   *cache.Client
	metrics *metrics.Metrics
	tokens  *auth.JWTService
	svc     service.AuthService
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	gormDB, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DBDriver).Wrap(err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      gormDB,
		metrics: metrics.New(),
	}

	if cfg.RedisAddr != "" {
		a.cache = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := a.cache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, profile cache disabled until it recovers",
				"addr", cfg.RedisAddr, "error", err)
		}
	}

	a.tokens, err = auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		a.Close()
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	a.svc, err = service.NewAuthService(service.Deps{
		Users:    repository.NewUserRepository(gormDB, nil),
		Hasher:   auth.NewBcryptHasher(cfg.BcryptCost),
		Tokens:   a.tokens,
		Notifier: newNotifier(cfg, logger),
		Cache:    a.cache,
		Metrics:  a.metrics,
		Logger:   logger,
	}, service.Config{
		ResetTokenExpiry:        cfg.ResetTokenExpiry,
		VerificationTokenExpiry: cfg.VerificationTokenExpiry,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.Notifier == "mailgun" {
		return notify.NewMailgunNotifier(&http.Client{Timeout: mailgunTimeout}, notify.MailgunSettings{
			APIHost:   cfg.MailgunAPIHost,
			Domain:    cfg.MailgunDomain,
			Username:  cfg.MailgunUsername,
			Password:  cfg.MailgunPassword,
			From:      cfg.MailFrom,
			ClientURL: cfg.ClientURL,
		})
	}
	return notify.NewLogNotifier(logger, cfg.ClientURL)
}

// routes builds the HTTP server for the app.
func (a *app) routes() *echo.Echo {
	checks := map[string]handler.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.cache != nil {
		checks["redis"] = a.cache.Ping
	}

	e := echo.New()
	router.Register(e, a.cfg, a.logger, a.metrics,
		gate.New(a.tokens, a.metrics, a.logger),
		handler.NewAuthHandler(a.svc, handler.CookieConfig{
			MaxAge: a.cfg.JWTExpiry,
			Secure: a.cfg.IsProduction(),
		}),
		handler.NewHealthHandler(a.cfg.Env, checks),
	)
	return e
}

// Close waits for pending notifications, then releases connections.
func (a *app) Close() {
	if a.svc != nil {
		a.svc.Wait()
	}
	if err := a.cache.Close(); err != nil {
		logging.LogError(a.logger, "close redis", err)
	}
	if err := db.Close(a.db); err != nil {
		logging.LogError(a.logger, "close database", err)
	}
}
