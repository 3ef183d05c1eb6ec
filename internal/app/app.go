// Package app wires the application together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	api "tinylink/internal/api/http"
	"tinylink/internal/cache"
	"tinylink/internal/config"
	dbpostgres "tinylink/internal/database/postgres"
	"tinylink/internal/service"
	"tinylink/pkg/postgres"
)

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	if env == config.EnvProd {
		opts.LogLevel = slog.LevelInfo
		opts.JSON = true
		opts.Concise = false
	}

	return httplog.NewLogger("tinylink", opts)
}

// Run starts the application and blocks until ctx is cancelled or a
// component fails.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	linkCache, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to cache: %w", op, err)
	}
	defer linkCache.Close()

	linkRepo := dbpostgres.NewLinkRepository(db)
	clickRepo := dbpostgres.NewClickRepository(db)
	userRepo := dbpostgres.NewUserRepository(db)

	linkSvc := service.NewLinkService(linkRepo, clickRepo, userRepo, linkCache,
		logger.Logger, cfg.BaseURL, cfg.ShortCodeLength)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	qrSvc := service.NewQRCodeService(&http.Client{Timeout: 10 * time.Second}, linkSvc)

	router := api.NewRouter(logger, linkSvc, authSvc, qrSvc, cfg.RateLimit)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
