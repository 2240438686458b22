package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medisecure/medisecure/internal/config"
	"github.com/medisecure/medisecure/internal/engine"
	"github.com/medisecure/medisecure/internal/gateway"
	"github.com/medisecure/medisecure/internal/platform/db"
	"github.com/medisecure/medisecure/internal/platform/middleware"
	"github.com/medisecure/medisecure/internal/server/assist"
	"github.com/medisecure/medisecure/internal/server/coverage"
	"github.com/medisecure/medisecure/internal/session"
	"github.com/medisecure/medisecure/internal/tui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medisecure",
		Short: "MediSecure AI patient insurance client and coverage service",
	}

	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importMembersCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the patient portal terminal client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// The terminal owns stdout, so client logs go to a file.
			logFile, err := os.OpenFile("medisecure-client.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()
			logger := zerolog.New(logFile).With().Timestamp().Logger()

			gw := gateway.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
			eng := engine.New(gw, session.NewStore(), logger)
			return tui.Run(eng)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coverage service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func importMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-members [csv-path]",
		Short: "Load the insurance member dataset into storage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			path := cfg.MembersCSV
			if len(args) == 1 {
				path = args[0]
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			store, cleanup, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := coverage.NewService(store, nil, logger)
			count, err := svc.LoadMembers(ctx, path)
			if err != nil {
				return err
			}
			logger.Info().Int("count", count).Msg("import complete")
			return nil
		},
	}
	return cmd
}

// openStore opens the configured storage backend and returns a cleanup
// function closing it.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (coverage.Store, func(), error) {
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := coverage.EnsureSchemaPG(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info().Msg("connected to postgres")
		return coverage.NewPGStore(pool), pool.Close, nil
	case "mongo":
		client, database, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("db", cfg.MongoDB).Msg("connected to mongo")
		cleanup := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(shutdownCtx)
		}
		return coverage.NewMongoStore(database), cleanup, nil
	default:
		return coverage.NewMemoryStore(), func() {}, nil
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer cleanup()

	// Chat responder: LLM first when configured, rules as the safety net.
	svc := coverage.NewService(store, nil, logger)
	if cfg.OpenAIAPIKey != "" {
		svc = coverage.NewService(store, assist.ChainResponder{
			assist.NewOpenAIResponder(cfg.OpenAIAPIKey, cfg.OpenAIModel),
			&assist.RuleResponder{FindMedication: svc.FindMedication},
		}, logger)
	}
	if err := svc.SeedFormulary(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to seed formulary")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	coverage.NewHandler(svc, cfg.MembersCSV).RegisterRoutes(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
