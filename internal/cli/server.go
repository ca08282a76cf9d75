package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/app"
	"safetyhub-assessment-service/internal/config"
	"safetyhub-assessment-service/internal/infra/memory"
	pgstore "safetyhub-assessment-service/internal/infra/postgres"
	redisinfra "safetyhub-assessment-service/internal/infra/redis"
	"safetyhub-assessment-service/internal/logging"
	transport "safetyhub-assessment-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.File)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		assessments app.AssessmentRepository
		attempts    app.AttemptStore
		users       app.UserDirectory
	)
	assessmentTTL := config.TTLDuration(cfg.Assessment.CacheTTL, 10*time.Minute)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := pgstore.NewStore(pool)
		attempts = store
		users = store
		if redisClient != nil {
			assessments = redisinfra.NewCachedAssessmentRepository(redisClient, store, assessmentTTL)
		} else {
			assessments = memory.NewCachedAssessmentRepository(store, assessmentTTL)
		}
		for _, demo := range cfg.DemoUsers {
			if err := store.UpsertUser(ctx, demo.User()); err != nil {
				return err
			}
		}
	} else {
		// No postgres configured: run fully in-memory with the demo dataset.
		memAssessments := memory.NewAssessmentStore()
		if err := memAssessments.CreateAssessment(ctx, earthquakeAssessment()); err != nil {
			return err
		}
		directory := memory.NewUserDirectory()
		for _, demo := range cfg.DemoUsers {
			directory.Put(demo.User())
		}
		assessments = memAssessments
		attempts = memory.NewAttemptLog()
		users = directory
		log.Warn("postgres not configured, using in-memory stores")
	}

	service := app.NewAssessmentService(assessments, attempts, users, log).
		WithLeaderboardSize(cfg.Leaderboard.Size)
	if redisClient != nil {
		lbTTL := config.TTLDuration(cfg.Leaderboard.CacheTTL, time.Minute)
		service.WithLeaderboardCache(redisinfra.NewLeaderboardCache(redisClient, lbTTL))
	}

	auth := transport.NewAuth(cfg.Auth.JWTSecret)
	handler := transport.NewHandler(service, auth, cfg.Auth.PublicLeaderboard, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting assessment service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
