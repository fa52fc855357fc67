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

	"github.com/cdss/cdss/internal/config"
	"github.com/cdss/cdss/internal/domain/diagnosis"
	"github.com/cdss/cdss/internal/domain/knowledge"
	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
	"github.com/cdss/cdss/internal/domain/safety"
	"github.com/cdss/cdss/internal/domain/terminology"
	"github.com/cdss/cdss/internal/platform/cache"
	"github.com/cdss/cdss/internal/platform/db"
	"github.com/cdss/cdss/internal/platform/llm"
	"github.com/cdss/cdss/internal/platform/middleware"
	"github.com/cdss/cdss/internal/platform/scheduling"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cdss-server",
		Short: "Clinical decision support API server for hypertension and diabetes",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := "-"
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Down migrations are not supported. Restore from a backup instead.")
			return nil
		},
	}
	cmd.AddCommand(downCmd)

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	cacheStore, err := cache.New(cfg.RedisURL, cfg.CacheTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if cacheStore != nil {
		defer cacheStore.Close()
		logger.Info().Msg("connected to redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set, guideline search caching disabled")
	}

	mapper := terminology.NewMapper(logger)
	riskEngine := risk.NewEngine(logger)
	safetyGuard := safety.NewGuard(logger)
	llmClient := llm.NewClient(llm.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}, logger)

	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)

	knowledgeRepo := knowledge.NewRepoPG(pool)
	knowledgeSvc := knowledge.NewService(knowledgeRepo, mapper, cacheStore, logger)

	diagnosisSvc := diagnosis.NewService(patientSvc, knowledgeSvc, riskEngine, safetyGuard, mapper, llmClient, logger)

	// Periodically drop cached search results so queries pick up
	// guideline rows changed outside the API.
	refresher := scheduling.NewRefresher(cfg.KnowledgeRefreshInterval, func(ctx context.Context) error {
		guidelines, err := knowledgeRepo.ListGuidelines(ctx, knowledge.ListFilter{})
		if err != nil {
			return err
		}
		cacheStore.Flush(ctx)
		logger.Info().Int("guidelines", len(guidelines)).Msg("知识库缓存已刷新")
		return nil
	}, logger)
	refresher.Start()
	defer refresher.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	risk.NewHandler(patientSvc, riskEngine).RegisterRoutes(apiV1)
	safety.NewHandler(patientSvc, safetyGuard).RegisterRoutes(apiV1)
	terminology.NewHandler(mapper).RegisterRoutes(apiV1)
	knowledge.NewHandler(knowledgeSvc).RegisterRoutes(apiV1)
	diagnosis.NewHandler(diagnosisSvc).RegisterRoutes(apiV1)

	apiV1.GET("/system/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version":   version,
			"scheduler": refresher.Status(),
			"llm":       map[string]string{"breaker_state": llmClient.State()},
			"database":  db.GetPoolStats(pool),
			"cache":     map[string]bool{"enabled": cacheStore != nil},
		})
	})
	apiV1.POST("/system/refresh-knowledge", func(c echo.Context) error {
		refresher.TriggerNow(c.Request().Context())
		return c.JSON(http.StatusOK, refresher.Status())
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	return nil
}
