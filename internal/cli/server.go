package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/config"
	"quiz-progress-service/internal/infra/memory"
	pgstore "quiz-progress-service/internal/infra/postgres"
	redisinfra "quiz-progress-service/internal/infra/redis"
	transport "quiz-progress-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
	}

	guardTTL := config.TTLDuration(cfg.Guard.TTL, 24*time.Hour)
	var guard app.AttemptGuard = memory.NewAttemptGuard()
	var locks app.UserLocker = memory.NewUserLocker()
	if redisClient != nil {
		guard = redisinfra.NewAttemptGuard(redisClient, guardTTL)
		locks = redisinfra.NewUserLocker(redisClient)
	}

	service := app.NewProgressionService(store, guard, locks)

	boardTTL := config.TTLDuration(cfg.Leaderboard.CacheTTL, 30*time.Second)
	boardLimit := cfg.Leaderboard.Limit
	if boardLimit <= 0 {
		boardLimit = app.DefaultLeaderboardLimit
	}
	board := memory.NewLeaderboardCache(store, boardTTL)

	handler := transport.NewHandler(service, board, boardLimit)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz progress service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
